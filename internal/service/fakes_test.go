package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/repository"
)

type memConsultationRepo struct {
	mu    sync.Mutex
	items map[string]domain.Consultation
}

func newMemConsultationRepo() *memConsultationRepo {
	return &memConsultationRepo{items: map[string]domain.Consultation{}}
}

func (r *memConsultationRepo) Create(ctx context.Context, c *domain.Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.items[c.ID] = *c
	return nil
}

func (r *memConsultationRepo) GetByID(ctx context.Context, id string) (*domain.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &stored, nil
}

func (r *memConsultationRepo) ListWithFilter(ctx context.Context, filter repository.ConsultationFilter) ([]domain.Consultation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Consultation
	for _, item := range r.items {
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		if filter.CreatorID != nil && item.CreatorID != *filter.CreatorID {
			continue
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, int64(len(result)), nil
}

func (r *memConsultationRepo) AdvanceStatus(ctx context.Context, id string, from, to domain.ConsultationStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = to
	now := time.Now().UTC()
	stored.UpdatedAt = now
	switch to {
	case domain.ConsultationStatusResolved:
		stored.ResolvedAt = &now
	case domain.ConsultationStatusClosed:
		stored.ClosedAt = &now
	}
	r.items[id] = stored
	return true, nil
}

func (r *memConsultationRepo) snapshot() map[string]domain.Consultation {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[string]domain.Consultation, len(r.items))
	for k, v := range r.items {
		copied[k] = v
	}
	return copied
}

func (r *memConsultationRepo) restore(snap map[string]domain.Consultation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = snap
}

type memMessageRepo struct {
	mu        sync.Mutex
	items     map[string]domain.Message
	createErr error
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{items: map[string]domain.Message{}}
}

func (r *memMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()
	stored := *msg
	stored.Attachments = nil
	r.items[msg.ID] = stored
	return nil
}

func (r *memMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &stored, nil
}

func (r *memMessageRepo) ListByConsultation(ctx context.Context, consultationID string, limit, offset int) ([]domain.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Message
	for _, item := range r.items {
		if item.ConsultationID == consultationID {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SentAt.Equal(result[j].SentAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].SentAt.Before(result[j].SentAt)
	})
	total := int64(len(result))
	if offset > len(result) {
		return nil, total, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, total, nil
}

func (r *memMessageRepo) snapshot() map[string]domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[string]domain.Message, len(r.items))
	for k, v := range r.items {
		copied[k] = v
	}
	return copied
}

func (r *memMessageRepo) restore(snap map[string]domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = snap
}

type memAttachmentRepo struct {
	mu        sync.Mutex
	items     map[string][]domain.Attachment
	createErr error
}

func newMemAttachmentRepo() *memAttachmentRepo {
	return &memAttachmentRepo{items: map[string][]domain.Attachment{}}
}

func (r *memAttachmentRepo) CreateBatch(ctx context.Context, messageID string, attachments []domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for i := range attachments {
		attachments[i].ID = uuid.NewString()
		attachments[i].MessageID = messageID
		attachments[i].CreatedAt = time.Now().UTC()
	}
	r.items[messageID] = append(r.items[messageID], attachments...)
	return nil
}

func (r *memAttachmentRepo) ListByMessage(ctx context.Context, messageID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Attachment(nil), r.items[messageID]...), nil
}

func (r *memAttachmentRepo) snapshot() map[string][]domain.Attachment {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[string][]domain.Attachment, len(r.items))
	for k, v := range r.items {
		copied[k] = append([]domain.Attachment(nil), v...)
	}
	return copied
}

func (r *memAttachmentRepo) restore(snap map[string][]domain.Attachment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = snap
}

// memUnitOfWork mimics transactional semantics over the in-memory stores by
// snapshotting before the callback and restoring on error.
type memUnitOfWork struct {
	consultations *memConsultationRepo
	messages      *memMessageRepo
	attachments   *memAttachmentRepo
}

func (u *memUnitOfWork) WithinTx(ctx context.Context, fn func(tx repository.TxRepos) error) error {
	consultationsSnap := u.consultations.snapshot()
	messagesSnap := u.messages.snapshot()
	attachmentsSnap := u.attachments.snapshot()

	err := fn(repository.TxRepos{
		Consultations: u.consultations,
		Messages:      u.messages,
		Attachments:   u.attachments,
	})
	if err != nil {
		u.consultations.restore(consultationsSnap)
		u.messages.restore(messagesSnap)
		u.attachments.restore(attachmentsSnap)
	}
	return err
}

type memNotificationRepo struct {
	mu    sync.Mutex
	items map[string]domain.Notification
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{items: map[string]domain.Notification{}}
}

func (r *memNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	if n.Status == "" {
		n.Status = domain.NotificationStatusUnread
	}
	r.items[n.ID] = *n
	return nil
}

func (r *memNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &stored, nil
}

func (r *memNotificationRepo) ListByUser(ctx context.Context, userID string, filter repository.NotificationFilter) ([]domain.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Notification
	for _, item := range r.items {
		if item.UserID != userID {
			continue
		}
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, int64(len(result)), nil
}

func (r *memNotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, item := range r.items {
		if item.UserID == userID && item.Status == domain.NotificationStatusUnread {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) MarkRead(ctx context.Context, id string, readAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok || stored.Status != domain.NotificationStatusUnread {
		return false, nil
	}
	stored.Status = domain.NotificationStatusRead
	stored.ReadAt = &readAt
	r.items[id] = stored
	return true, nil
}

type memReminderTaskRepo struct {
	mu    sync.Mutex
	items map[string]domain.ReminderTask
}

func newMemReminderTaskRepo() *memReminderTaskRepo {
	return &memReminderTaskRepo{items: map[string]domain.ReminderTask{}}
}

func (r *memReminderTaskRepo) Create(ctx context.Context, task *domain.ReminderTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = uuid.NewString()
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = domain.ReminderStatusPending
	}
	r.items[task.ID] = *task
	return nil
}

func (r *memReminderTaskRepo) GetByID(ctx context.Context, id string) (*domain.ReminderTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &stored, nil
}

func (r *memReminderTaskRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ReminderTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ReminderTask
	for _, item := range r.items {
		if item.Status == domain.ReminderStatusPending && !item.FireAt.After(now) {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FireAt.Before(result[j].FireAt) })
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *memReminderTaskRepo) MarkSent(ctx context.Context, id string) (bool, error) {
	return r.transition(id, domain.ReminderStatusSent, nil)
}

func (r *memReminderTaskRepo) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	return r.transition(id, domain.ReminderStatusFailed, &reason)
}

func (r *memReminderTaskRepo) Cancel(ctx context.Context, id string) (bool, error) {
	return r.transition(id, domain.ReminderStatusCancelled, nil)
}

func (r *memReminderTaskRepo) transition(id string, to domain.ReminderTaskStatus, reason *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok || stored.Status != domain.ReminderStatusPending {
		return false, nil
	}
	stored.Status = to
	stored.FailureReason = reason
	stored.UpdatedAt = time.Now().UTC()
	r.items[id] = stored
	return true, nil
}

type publishedNotification struct {
	UserID       string
	Notification domain.Notification
}

type fakePublisher struct {
	mu            sync.Mutex
	messages      []domain.Message
	notifications []publishedNotification
}

func (p *fakePublisher) PublishMessage(ctx context.Context, consultationID string, msg *domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, *msg)
}

func (p *fakePublisher) PublishNotification(ctx context.Context, userID string, n *domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, publishedNotification{UserID: userID, Notification: *n})
}
