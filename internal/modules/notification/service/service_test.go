package service

import (
	"context"
	"testing"

	"anoa.com/mathter/internal/entity"
	"anoa.com/mathter/internal/modules/notification/dto"
	notifRepo "anoa.com/mathter/internal/modules/notification/repository"
	"anoa.com/mathter/internal/testutil"
	"anoa.com/mathter/pkg/apperror"
	commonDto "anoa.com/mathter/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationFlow(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := NewNotificationService(notifRepo.NewNotificationRepository(db), nil)
	ctx := context.Background()

	alice := testutil.CreateAccount(t, db, "alice", entity.RoleStudent)
	bob := testutil.CreateAccount(t, db, "bob", entity.RoleStudent)

	msg := dto.Message{UserID: alice.ID, Type: entity.NotificationHomeworkAssigned, EntityType: "homework", EntityID: 7, Text: "New homework"}
	require.NoError(t, svc.Notify(ctx, msg,
		dto.Message{UserID: alice.ID, Type: entity.NotificationHomeworkDue, EntityType: "homework", EntityID: 7},
		dto.Message{UserID: bob.ID, Type: entity.NotificationHomeworkAssigned, EntityType: "homework", EntityID: 7},
	))

	sent, err := svc.AlreadyNotified(ctx, msg)
	require.NoError(t, err)
	assert.True(t, sent)

	msg.EntityID = 8
	sent, err = svc.AlreadyNotified(ctx, msg)
	require.NoError(t, err)
	assert.False(t, sent)

	list, err := svc.GetNotifications(ctx, alice.ID, commonDto.PaginationQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Data, 2)
	assert.NotEqual(t, uuid.Nil, list.Data[0].ID)

	count, err := svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.ErrorIs(t, svc.MarkAsRead(ctx, bob.ID, list.Data[0].ID), apperror.ErrNotFound)
	require.NoError(t, svc.MarkAsRead(ctx, alice.ID, list.Data[0].ID))

	count, err = svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.MarkAllAsRead(ctx, alice.ID))
	count, err = svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = svc.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "user_notifications:42", Channel(42))
}
