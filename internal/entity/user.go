package entity

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

type GradeLevel string

const (
	GradeMiddle     GradeLevel = "5-9"
	GradeHigh       GradeLevel = "10-11"
	GradeUniversity GradeLevel = "student"
	GradeOlder      GradeLevel = "older"
)

const DefaultGradeLevel = GradeMiddle

func (g GradeLevel) Valid() bool {
	switch g {
	case GradeMiddle, GradeHigh, GradeUniversity, GradeOlder:
		return true
	}
	return false
}

// DeletedUsernamePrefix is reserved for anonymized accounts.
const DeletedUsernamePrefix = "deleted_"

// DeletedStudentName is stored on dependent rows that lost their student without a frozen name.
const DeletedStudentName = "Deleted Student"

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        *string    `gorm:"size:254;uniqueIndex" json:"email,omitempty"`
	PasswordHash *string    `gorm:"size:255" json:"-"`
	Role         Role       `gorm:"size:20;not null;index" json:"role"`
	IsPremium    bool       `gorm:"not null" json:"is_premium"`
	IsActive     bool       `gorm:"not null" json:"is_active"`
	AvatarURL    *string    `gorm:"type:text" json:"avatar_url,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	AnonymizedAt *time.Time `json:"anonymized_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	StudentProfile *Student `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"student_profile,omitempty"`
	TeacherProfile *Teacher `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"teacher_profile,omitempty"`
}

func (u *User) IsAnonymized() bool {
	return u.AnonymizedAt != nil
}

// DeletedUsername is the placeholder username an account gets once anonymized.
func DeletedUsername(id uint) string {
	return fmt.Sprintf("%s%d", DeletedUsernamePrefix, id)
}

type Student struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	DeletedStudentName *string        `gorm:"size:255" json:"deleted_student_name,omitempty"`
	GradeLevel         GradeLevel     `gorm:"size:20;not null" json:"grade_level"`
	CurrentLevel       uint           `gorm:"not null" json:"current_level"`
	LearningStyle      datatypes.JSON `json:"learning_style"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type Teacher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// DisplayName returns the live username or the frozen name left behind by anonymization.
func DisplayName(student *User, frozen *string) string {
	if student != nil {
		return student.Username
	}
	if frozen != nil && *frozen != "" {
		return *frozen
	}
	return DeletedStudentName
}

// freezeMissingStudent fills the frozen name of a row whose student link is absent.
func freezeMissingStudent(studentID *uint, frozen **string) {
	if studentID != nil {
		return
	}
	if *frozen == nil || **frozen == "" {
		name := DeletedStudentName
		*frozen = &name
	}
}
