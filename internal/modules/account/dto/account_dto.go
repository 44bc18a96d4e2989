package dto

import (
	"time"

	"anoa.com/mathter/internal/entity"
	commonDto "anoa.com/mathter/pkg/dto"
)

type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=150"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,oneof=student teacher"`
}

// CreateAccountInput is used by admins and may create any role.
type CreateAccountInput struct {
	Username  string `json:"username" binding:"required,min=3,max=150"`
	Email     string `json:"email" binding:"required,email,max=254"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	Role      string `json:"role" binding:"required,oneof=student teacher admin"`
	IsPremium bool   `json:"is_premium"`
}

type UpdateAccountInput struct {
	Email         *string        `json:"email" binding:"omitempty,email,max=254"`
	Password      *string        `json:"password" binding:"omitempty,min=8,max=72"`
	GradeLevel    *string        `json:"grade_level" binding:"omitempty,oneof=5-9 10-11 student older"`
	LearningStyle map[string]any `json:"learning_style"`
}

type LoginInput struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AccountFilter struct {
	commonDto.PaginationQuery
	Role   string `form:"role" binding:"omitempty,oneof=student teacher admin"`
	Active *bool  `form:"active"`
}

type ProfileResponse struct {
	GradeLevel    entity.GradeLevel `json:"grade_level,omitempty"`
	CurrentLevel  uint              `json:"current_level,omitempty"`
	LearningStyle map[string]any    `json:"learning_style,omitempty"`
}

type AccountResponse struct {
	ID        uint             `json:"id"`
	Username  string           `json:"username"`
	Email     *string          `json:"email,omitempty"`
	Role      entity.Role      `json:"role"`
	IsPremium bool             `json:"is_premium"`
	IsActive  bool             `json:"is_active"`
	AvatarURL *string          `json:"avatar_url,omitempty"`
	LastLogin *time.Time       `json:"last_login,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	Profile   *ProfileResponse `json:"profile,omitempty"`
}

type PaginatedAccountResponse struct {
	Data []AccountResponse        `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn   int64           `json:"expires_in"`
	Account     AccountResponse `json:"account"`
}

type AnonymizeResponse struct {
	AccountID         uint             `json:"account_id"`
	Username          string           `json:"username"`
	AlreadyAnonymized bool             `json:"already_anonymized"`
	Rewritten         map[string]int64 `json:"rewritten"`
}
