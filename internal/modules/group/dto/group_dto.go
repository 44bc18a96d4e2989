package dto

import "time"

type CreateGroupRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

type AddMemberRequest struct {
	StudentID uint `json:"student_id" binding:"required,min=1"`
}

type CreateHomeworkRequest struct {
	TopicID uint      `json:"topic_id" binding:"required,min=1"`
	TaskIDs []uint    `json:"task_ids" binding:"required,min=1,dive,min=1"`
	DueDate time.Time `json:"due_date" binding:"required"`
}

type MemberResponse struct {
	StudentID *uint     `json:"student_id"`
	Name      string    `json:"name"`
	JoinedAt  time.Time `json:"joined_at"`
}

type GroupResponse struct {
	ID        uint             `json:"id"`
	TeacherID uint             `json:"teacher_id"`
	Name      string           `json:"name"`
	CreatedAt time.Time        `json:"created_at"`
	Members   []MemberResponse `json:"members,omitempty"`
}

type HomeworkResponse struct {
	ID        uint      `json:"id"`
	GroupID   uint      `json:"group_id"`
	TopicID   uint      `json:"topic_id"`
	TaskIDs   []uint    `json:"task_ids"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
}

type ResultResponse struct {
	HomeworkID  uint       `json:"homework_id"`
	StudentID   *uint      `json:"student_id"`
	Student     string     `json:"student"`
	TotalScore  uint       `json:"total_score"`
	MaxScore    uint       `json:"max_score"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
