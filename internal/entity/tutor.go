package entity

import (
	"time"

	"gorm.io/gorm"
)

// AiDialog is a single question/answer exchange about a task.
// Conversation rows keep no frozen name once their student is gone.
type AiDialog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StudentID   *uint     `gorm:"index" json:"student_id"`
	Student     *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	TaskID      *uint     `gorm:"index" json:"task_id"`
	Task        *Task     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	UserMessage string    `gorm:"type:text;not null" json:"user_message"`
	AIResponse  string    `gorm:"type:text;not null" json:"ai_response"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type AiFreeChatSession struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	StudentID    *uint               `gorm:"index" json:"student_id"`
	Student      *User               `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	StartedAt    time.Time           `gorm:"autoCreateTime" json:"started_at"`
	LastActivity time.Time           `gorm:"autoUpdateTime" json:"last_activity"`
	Messages     []AiFreeChatMessage `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

type ChatSender string

const (
	SenderStudent ChatSender = "student"
	SenderAI      ChatSender = "ai"
)

type AiFreeChatMessage struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	SessionID        uint       `gorm:"not null;index" json:"session_id"`
	Sender           ChatSender `gorm:"size:20;not null" json:"sender"`
	MessageText      string     `gorm:"type:text;not null" json:"message_text"`
	ErrorType        *string    `gorm:"size:50" json:"error_type,omitempty"`
	ErrorDescription *string    `gorm:"type:text" json:"error_description,omitempty"`
	ConfidenceScore  *float64   `json:"confidence_score,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type AiRecommendation struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	StudentID          *uint     `gorm:"index" json:"student_id"`
	Student            *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	DeletedStudentName *string   `gorm:"size:255" json:"deleted_student_name,omitempty"`
	RecommendedTopicID *uint     `gorm:"index" json:"recommended_topic_id"`
	RecommendedTopic   *Topic    `gorm:"constraint:OnDelete:SET NULL" json:"recommended_topic,omitempty"`
	Reason             string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *AiRecommendation) BeforeSave(tx *gorm.DB) error {
	freezeMissingStudent(r.StudentID, &r.DeletedStudentName)
	return nil
}
