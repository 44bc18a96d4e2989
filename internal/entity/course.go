package entity

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MinCourseGrade = 5
	MaxCourseGrade = 11
)

type Course struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	GradeLevel  uint      `gorm:"not null" json:"grade_level"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Topics      []Topic   `gorm:"constraint:OnDelete:CASCADE" json:"topics,omitempty"`
}

type Topic struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedBy *uint     `gorm:"index" json:"created_by,omitempty"`
	Creator   *User     `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Tasks     []Task    `gorm:"constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
}

type TaskType string

const (
	TaskTest       TaskType = "test"
	TaskOpenAnswer TaskType = "open_answer"
	TaskSolution   TaskType = "solution"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTest, TaskOpenAnswer, TaskSolution:
		return true
	}
	return false
}

const (
	DifficultyEasy   = 1
	DifficultyMedium = 2
	DifficultyHard   = 3

	DefaultMaxScore = 10
)

type Task struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TopicID     uint           `gorm:"not null;index" json:"topic_id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	TaskType    TaskType       `gorm:"size:30;not null" json:"task_type"`
	Difficulty  uint           `gorm:"not null" json:"difficulty"`
	MaxScore    uint           `gorm:"not null" json:"max_score"`
	Content     datatypes.JSON `gorm:"not null" json:"content"`
}
