package dto

import "time"

type AskRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type DialogResponse struct {
	ID          uint      `json:"id"`
	TaskID      *uint     `json:"task_id"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	CreatedAt   time.Time `json:"created_at"`
}

type ChatMessageResponse struct {
	ID               uint      `json:"id"`
	Sender           string    `json:"sender"`
	MessageText      string    `json:"message_text"`
	ErrorType        *string   `json:"error_type,omitempty"`
	ErrorDescription *string   `json:"error_description,omitempty"`
	ConfidenceScore  *float64  `json:"confidence_score,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type SessionResponse struct {
	ID           uint                  `json:"id"`
	StartedAt    time.Time             `json:"started_at"`
	LastActivity time.Time             `json:"last_activity"`
	Messages     []ChatMessageResponse `json:"messages,omitempty"`
}

type ChatReplyResponse struct {
	SessionID uint                `json:"session_id"`
	Question  ChatMessageResponse `json:"question"`
	Reply     ChatMessageResponse `json:"reply"`
}

type RecommendationResponse struct {
	ID         uint      `json:"id"`
	TopicID    *uint     `json:"topic_id"`
	TopicTitle string    `json:"topic_title,omitempty"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}
