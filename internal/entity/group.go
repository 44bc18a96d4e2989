package entity

import (
	"time"

	"gorm.io/gorm"
)

type StudyGroup struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TeacherID uint           `gorm:"not null;index" json:"teacher_id"`
	Teacher   *User          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	Students  []GroupStudent `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"students,omitempty"`
}

type GroupStudent struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	GroupID            uint      `gorm:"not null;uniqueIndex:idx_group_student" json:"group_id"`
	StudentID          *uint     `gorm:"uniqueIndex:idx_group_student" json:"student_id"`
	Student            *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	DeletedStudentName *string   `gorm:"size:255" json:"deleted_student_name,omitempty"`
	JoinedAt           time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (m *GroupStudent) BeforeSave(tx *gorm.DB) error {
	freezeMissingStudent(m.StudentID, &m.DeletedStudentName)
	return nil
}

type Homework struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	GroupID   uint        `gorm:"not null;index" json:"group_id"`
	Group     *StudyGroup `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TopicID   uint        `gorm:"not null;index" json:"topic_id"`
	Topic     *Topic      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Tasks     []Task      `gorm:"many2many:homework_tasks;" json:"tasks,omitempty"`
	DueDate   time.Time   `gorm:"not null;index" json:"due_date"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

type HomeworkResult struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	HomeworkID         uint       `gorm:"not null;uniqueIndex:idx_homework_student" json:"homework_id"`
	Homework           *Homework  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	StudentID          *uint      `gorm:"uniqueIndex:idx_homework_student" json:"student_id"`
	Student            *User      `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	DeletedStudentName *string    `gorm:"size:255" json:"deleted_student_name,omitempty"`
	TotalScore         uint       `gorm:"not null" json:"total_score"`
	Completed          bool       `gorm:"not null" json:"completed"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

func (r *HomeworkResult) BeforeSave(tx *gorm.DB) error {
	freezeMissingStudent(r.StudentID, &r.DeletedStudentName)
	return nil
}
