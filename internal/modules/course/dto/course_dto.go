package dto

import (
	"time"

	"anoa.com/mathter/internal/entity"
	commonDto "anoa.com/mathter/pkg/dto"
)

type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	GradeLevel  uint   `json:"grade_level" binding:"omitempty,min=5,max=11"`
}

type UpdateCourseRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	GradeLevel  *uint   `json:"grade_level" binding:"omitempty,min=5,max=11"`
}

type CourseFilter struct {
	commonDto.PaginationQuery
	GradeLevel uint   `form:"grade_level" binding:"omitempty,min=5,max=11"`
	Query      string `form:"q"`
}

type CreateTopicRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

type CreateTaskRequest struct {
	Title       string         `json:"title" binding:"required,max=255"`
	Description string         `json:"description"`
	TaskType    string         `json:"task_type" binding:"required,oneof=test open_answer solution"`
	Difficulty  uint           `json:"difficulty" binding:"omitempty,min=1,max=3"`
	MaxScore    uint           `json:"max_score" binding:"omitempty,min=1,max=100"`
	Content     map[string]any `json:"content"`
}

type TaskResponse struct {
	ID          uint            `json:"id"`
	TopicID     uint            `json:"topic_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TaskType    entity.TaskType `json:"task_type"`
	Difficulty  uint            `json:"difficulty"`
	MaxScore    uint            `json:"max_score"`
	Content     map[string]any  `json:"content"`
}

type TopicResponse struct {
	ID        uint           `json:"id"`
	CourseID  uint           `json:"course_id"`
	Title     string         `json:"title"`
	CreatedBy *uint          `json:"created_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Tasks     []TaskResponse `json:"tasks,omitempty"`
}

type CourseResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	GradeLevel  uint            `json:"grade_level"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Topics      []TopicResponse `json:"topics,omitempty"`
}

type PaginatedCourseResponse struct {
	Data []CourseResponse         `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
