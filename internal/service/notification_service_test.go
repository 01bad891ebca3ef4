package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/domain"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

func seedNotification(t *testing.T, repo *memNotificationRepo, userID string) *domain.Notification {
	t.Helper()
	n := &domain.Notification{
		UserID:    userID,
		EventType: "QUESTION_REPLIED",
		EventID:   "q-1",
		Title:     "new reply",
		Body:      "a staff member replied",
	}
	require.NoError(t, repo.Create(context.Background(), n))
	return n
}

func TestNotificationListCountsUnread(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := NewNotificationService(repo, zap.NewNop())

	seedNotification(t, repo, "user-1")
	second := seedNotification(t, repo, "user-1")
	seedNotification(t, repo, "user-2")

	_, err := svc.MarkRead(context.Background(), second.ID, "user-1")
	require.NoError(t, err)

	items, total, unread, err := svc.List(context.Background(), "user-1", NotificationListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, total)
	assert.EqualValues(t, 1, unread)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := NewNotificationService(repo, zap.NewNop())
	n := seedNotification(t, repo, "user-1")

	first, err := svc.MarkRead(context.Background(), n.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusRead, first.Status)
	require.NotNil(t, first.ReadAt)

	second, err := svc.MarkRead(context.Background(), n.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusRead, second.Status)
	require.NotNil(t, second.ReadAt)
	assert.Equal(t, *first.ReadAt, *second.ReadAt)
}

func TestMarkReadHidesOtherUsersNotifications(t *testing.T) {
	repo := newMemNotificationRepo()
	svc := NewNotificationService(repo, zap.NewNop())
	n := seedNotification(t, repo, "user-1")

	_, err := svc.MarkRead(context.Background(), n.ID, "user-2")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	// The real owner still sees it unread.
	stored, err := repo.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationStatusUnread, stored.Status)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc := NewNotificationService(newMemNotificationRepo(), zap.NewNop())

	_, err := svc.MarkRead(context.Background(), "missing", "user-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
