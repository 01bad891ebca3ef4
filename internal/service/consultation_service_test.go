package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/domain"
	apperrors "github.com/spec-kit/consult-service/pkg/util"
)

type consultationFixture struct {
	service       *ConsultationService
	consultations *memConsultationRepo
	messages      *memMessageRepo
	attachments   *memAttachmentRepo
	publisher     *fakePublisher
}

func newConsultationFixture() *consultationFixture {
	consultations := newMemConsultationRepo()
	messages := newMemMessageRepo()
	attachments := newMemAttachmentRepo()
	publisher := &fakePublisher{}

	svc := NewConsultationService(ConsultationDependencies{
		ConsultationRepo: consultations,
		MessageRepo:      messages,
		AttachmentRepo:   attachments,
		UnitOfWork: &memUnitOfWork{
			consultations: consultations,
			messages:      messages,
			attachments:   attachments,
		},
		Publisher: publisher,
		Logger:    zap.NewNop(),
	})

	return &consultationFixture{
		service:       svc,
		consultations: consultations,
		messages:      messages,
		attachments:   attachments,
		publisher:     publisher,
	}
}

func (f *consultationFixture) createThread(t *testing.T) *domain.Consultation {
	t.Helper()
	created, err := f.service.CreateConsultation(context.Background(), ConsultationCreateInput{
		Title:         "knee pain after surgery",
		CreatorRole:   domain.RolePatient,
		CreatorID:     "patient-1",
		TargetStaffID: "staff-1",
	})
	require.NoError(t, err)
	return created
}

func TestCreateConsultationDefaults(t *testing.T) {
	f := newConsultationFixture()

	created := f.createThread(t)

	assert.Equal(t, domain.ConsultationStatusPending, created.Status)
	assert.Equal(t, domain.ConsultationPriorityNormal, created.Priority)
	assert.True(t, strings.HasPrefix(created.Code, "CSL-"))
	assert.NotEmpty(t, created.ID)
}

func TestPostMessagePersistsAndBroadcasts(t *testing.T) {
	f := newConsultationFixture()
	thread := f.createThread(t)

	content := "how is the swelling today?"
	msg, err := f.service.PostMessage(context.Background(), thread.ID, MessageCreateInput{
		SenderRole:  domain.RoleStaff,
		SenderID:    strPtr("staff-1"),
		ContentType: domain.ContentTypeText,
		Content:     &content,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, domain.DeliveryStatusSent, msg.DeliveryStatus)

	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, msg.ID, f.publisher.messages[0].ID)
}

func TestPostMessageWithAttachmentsIsAtomic(t *testing.T) {
	f := newConsultationFixture()
	thread := f.createThread(t)
	f.attachments.createErr = errors.New("disk full")

	content := "see attached photo"
	_, err := f.service.PostMessage(context.Background(), thread.ID, MessageCreateInput{
		SenderRole:  domain.RolePatient,
		SenderID:    strPtr("patient-1"),
		ContentType: domain.ContentTypeImage,
		Content:     &content,
		Attachments: []MessageAttachmentInput{{URL: "https://cdn.example.com/a.jpg"}},
	})
	require.Error(t, err)

	// The failed attachment insert must take the message down with it.
	msgs, total, listErr := f.service.ListMessages(context.Background(), thread.ID, 10, 0)
	require.NoError(t, listErr)
	assert.Empty(t, msgs)
	assert.Zero(t, total)
	assert.Empty(t, f.publisher.messages)
}

func TestPostMessageFirstReplyAdvancesStatus(t *testing.T) {
	f := newConsultationFixture()
	thread := f.createThread(t)

	content := "first reply"
	_, err := f.service.PostMessage(context.Background(), thread.ID, MessageCreateInput{
		SenderRole:  domain.RoleStaff,
		SenderID:    strPtr("staff-1"),
		ContentType: domain.ContentTypeText,
		Content:     &content,
	})
	require.NoError(t, err)

	stored, err := f.service.GetConsultation(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsultationStatusInProgress, stored.Status)

	// Later messages leave an already-advanced thread alone.
	_, err = f.service.UpdateStatus(context.Background(), thread.ID, domain.ConsultationStatusResolved)
	require.NoError(t, err)
	_, err = f.service.PostMessage(context.Background(), thread.ID, MessageCreateInput{
		SenderRole:  domain.RolePatient,
		SenderID:    strPtr("patient-1"),
		ContentType: domain.ContentTypeText,
		Content:     &content,
	})
	require.NoError(t, err)

	stored, err = f.service.GetConsultation(context.Background(), thread.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsultationStatusResolved, stored.Status)
}

func TestPostMessageUnknownThread(t *testing.T) {
	f := newConsultationFixture()

	content := "hello"
	_, err := f.service.PostMessage(context.Background(), "missing-id", MessageCreateInput{
		SenderRole:  domain.RolePatient,
		ContentType: domain.ContentTypeText,
		Content:     &content,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListMessagesOrderedBySentAt(t *testing.T) {
	f := newConsultationFixture()
	thread := f.createThread(t)

	base := time.Now().UTC()
	for i, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		content := "msg"
		msg := &domain.Message{
			ConsultationID: thread.ID,
			SenderRole:     domain.RolePatient,
			ContentType:    domain.ContentTypeText,
			Content:        &content,
			SentAt:         base.Add(offset),
			DeliveryStatus: domain.DeliveryStatusSent,
			Visible:        true,
		}
		require.NoError(t, f.messages.Create(context.Background(), msg), "message %d", i)
	}

	msgs, total, err := f.service.ListMessages(context.Background(), thread.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, msgs, 3)
	assert.True(t, msgs[0].SentAt.Before(msgs[1].SentAt))
	assert.True(t, msgs[1].SentAt.Before(msgs[2].SentAt))
}

func TestListConsultationsRejectsUnknownSortField(t *testing.T) {
	f := newConsultationFixture()

	_, _, err := f.service.ListConsultations(context.Background(), ConsultationListFilter{
		SortBy: "creator_id; DROP TABLE consultations",
	})
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestUpdateStatusForwardOnly(t *testing.T) {
	f := newConsultationFixture()
	thread := f.createThread(t)

	updated, err := f.service.UpdateStatus(context.Background(), thread.ID, domain.ConsultationStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.ConsultationStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)

	_, err = f.service.UpdateStatus(context.Background(), thread.ID, domain.ConsultationStatusInProgress)
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func strPtr(s string) *string {
	return &s
}
