package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/domain"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

func TestReminderCreateValidation(t *testing.T) {
	svc := NewReminderService(newMemReminderTaskRepo(), zap.NewNop())

	cases := []struct {
		name  string
		input ReminderCreateInput
	}{
		{"missing user", ReminderCreateInput{EventType: "FOLLOW_UP", Channel: domain.ChannelInApp, FireAt: time.Now()}},
		{"missing event type", ReminderCreateInput{UserID: "u1", Channel: domain.ChannelInApp, FireAt: time.Now()}},
		{"unknown channel", ReminderCreateInput{UserID: "u1", EventType: "FOLLOW_UP", Channel: "CARRIER_PIGEON", FireAt: time.Now()}},
		{"missing fire time", ReminderCreateInput{UserID: "u1", EventType: "FOLLOW_UP", Channel: domain.ChannelInApp}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			require.Error(t, err)

			var domainErr *apperrors.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
		})
	}
}

func TestReminderCancelOnlyWhilePending(t *testing.T) {
	repo := newMemReminderTaskRepo()
	svc := NewReminderService(repo, zap.NewNop())

	task, err := svc.Create(context.Background(), ReminderCreateInput{
		UserID:    "u1",
		EventType: "FOLLOW_UP",
		EventID:   "q-1",
		Channel:   domain.ChannelInApp,
		Title:     "follow up",
		FireAt:    time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReminderStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(context.Background(), task.ID)
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "CONFLICT", domainErr.Code)
}
