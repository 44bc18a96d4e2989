package dto

import (
	"time"

	commonDto "anoa.com/mathter/pkg/dto"
)

type SubmitAttemptRequest struct {
	Answer string `json:"answer" binding:"required,max=5000"`
}

type ProgressResponse struct {
	TopicID        uint      `json:"topic_id"`
	TopicTitle     string    `json:"topic_title,omitempty"`
	CompletionRate float64   `json:"completion_rate"`
	AverageScore   float64   `json:"average_score"`
	LastActivity   time.Time `json:"last_activity"`
}

type AttemptResponse struct {
	ID          uint              `json:"id"`
	TaskID      uint              `json:"task_id"`
	Student     string            `json:"student"`
	Answer      string            `json:"answer"`
	IsCorrect   *bool             `json:"is_correct"`
	Score       uint              `json:"score"`
	MaxScore    uint              `json:"max_score"`
	AIFeedback  string            `json:"ai_feedback,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
	Progress    *ProgressResponse `json:"progress,omitempty"`
}

type PaginatedAttemptResponse struct {
	Data []AttemptResponse        `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
