package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationHomeworkAssigned = "homework_assigned"
	NotificationHomeworkDue      = "homework_due"
	NotificationRecommendation   = "recommendation"
)

type Notification struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Type       string    `gorm:"size:50;not null" json:"type"`
	EntityType string    `gorm:"size:50;not null" json:"entity_type"`
	EntityID   uint      `gorm:"not null" json:"entity_id"`
	Message    string    `gorm:"type:text" json:"message"`
	IsRead     bool      `gorm:"not null" json:"is_read"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
