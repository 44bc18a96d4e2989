package entity

import (
	"time"

	"gorm.io/gorm"
)

type TaskAttempt struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	TaskID             uint      `gorm:"not null;index" json:"task_id"`
	Task               *Task     `gorm:"constraint:OnDelete:CASCADE" json:"task,omitempty"`
	StudentID          *uint     `gorm:"index" json:"student_id"`
	Student            *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	DeletedStudentName *string   `gorm:"size:255" json:"deleted_student_name,omitempty"`
	Answer             string    `gorm:"type:text;not null" json:"answer"`
	IsCorrect          *bool     `json:"is_correct"`
	Score              uint      `gorm:"not null" json:"score"`
	AIFeedback         string    `gorm:"type:text" json:"ai_feedback"`
	CompletedAt        time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

func (a *TaskAttempt) BeforeSave(tx *gorm.DB) error {
	freezeMissingStudent(a.StudentID, &a.DeletedStudentName)
	return nil
}

type StudentProgress struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	StudentID          *uint     `gorm:"uniqueIndex:idx_progress_student_topic" json:"student_id"`
	Student            *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	DeletedStudentName *string   `gorm:"size:255" json:"deleted_student_name,omitempty"`
	TopicID            uint      `gorm:"not null;uniqueIndex:idx_progress_student_topic" json:"topic_id"`
	Topic              *Topic    `gorm:"constraint:OnDelete:CASCADE" json:"topic,omitempty"`
	CompletionRate     float64   `gorm:"not null" json:"completion_rate"`
	AverageScore       float64   `gorm:"not null" json:"average_score"`
	LastActivity       time.Time `gorm:"autoUpdateTime" json:"last_activity"`
}

func (StudentProgress) TableName() string { return "student_progress" }

func (p *StudentProgress) BeforeSave(tx *gorm.DB) error {
	freezeMissingStudent(p.StudentID, &p.DeletedStudentName)
	return nil
}
