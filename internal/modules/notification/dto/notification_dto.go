package dto

import (
	"anoa.com/mathter/internal/entity"
	commonDto "anoa.com/mathter/pkg/dto"
)

// Message describes one notification to deliver.
type Message struct {
	UserID     uint
	Type       string
	EntityType string
	EntityID   uint
	Text       string
}

type PaginatedNotificationResponse struct {
	Data []entity.Notification    `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}
