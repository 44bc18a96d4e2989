package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/internal/modules/notification/dto"
	notifRepo "anoa.com/mathter/internal/modules/notification/repository"
	"anoa.com/mathter/pkg/apperror"
	commonDto "anoa.com/mathter/pkg/dto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the redis channel carrying live notifications for one account.
func Channel(userID uint) string {
	return fmt.Sprintf("user_notifications:%d", userID)
}

type NotificationService interface {
	Notify(ctx context.Context, messages ...dto.Message) error
	// AlreadyNotified reports whether the account received this notification before.
	AlreadyNotified(ctx context.Context, msg dto.Message) (bool, error)
	GetNotifications(ctx context.Context, userID uint, query commonDto.PaginationQuery) (*dto.PaginatedNotificationResponse, error)
	MarkAsRead(ctx context.Context, userID uint, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uint) error
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

func (s *notificationService) Notify(ctx context.Context, messages ...dto.Message) error {
	notifications := make([]*entity.Notification, 0, len(messages))
	for _, msg := range messages {
		notifications = append(notifications, &entity.Notification{
			UserID:     msg.UserID,
			Type:       msg.Type,
			EntityType: msg.EntityType,
			EntityID:   msg.EntityID,
			Message:    msg.Text,
		})
	}

	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return err
	}

	if s.redisClient == nil {
		return nil
	}
	for _, notification := range notifications {
		payload, err := json.Marshal(notification)
		if err != nil {
			continue
		}
		if err := s.redisClient.Publish(ctx, Channel(notification.UserID), payload).Err(); err != nil {
			log.Printf("Failed to publish notification %s: %v", notification.ID, err)
		}
	}

	return nil
}

func (s *notificationService) AlreadyNotified(ctx context.Context, msg dto.Message) (bool, error) {
	return s.repo.Exists(ctx, msg.UserID, msg.Type, msg.EntityType, msg.EntityID)
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uint, query commonDto.PaginationQuery) (*dto.PaginatedNotificationResponse, error) {
	notifications, total, err := s.repo.GetByUserID(ctx, userID, query.Limit, query.Offset())
	if err != nil {
		return nil, err
	}

	return &dto.PaginatedNotificationResponse{
		Data: notifications,
		Meta: commonDto.NewPaginationMeta(query, total),
	}, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID uint, id uuid.UUID) error {
	found, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: notification %s", apperror.ErrNotFound, id)
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uint) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
