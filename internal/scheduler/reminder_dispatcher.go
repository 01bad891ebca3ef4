package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/consult-service/internal/domain"
	"github.com/spec-kit/consult-service/internal/observability"
	"github.com/spec-kit/consult-service/internal/realtime"
	"github.com/spec-kit/consult-service/internal/repository"
)

// ReminderDispatcher owns the timer-driven reminder sweeps. It is
// constructed once by the process entry point; only the owner starts it, and
// starting twice is an error. It assumes a single active instance, since two
// schedulers against the same store would double-process due tasks.
type ReminderDispatcher struct {
	tasks         repository.ReminderTaskRepository
	notifications repository.NotificationRepository
	careTasks     repository.CareTaskRepository
	publisher     realtime.Publisher
	logger        *zap.Logger
	metrics       *observability.Metrics
	batchLimit    int

	cron *cron.Cron
}

// DispatcherDependencies bundles collaborators for the dispatcher.
type DispatcherDependencies struct {
	TaskRepo         repository.ReminderTaskRepository
	NotificationRepo repository.NotificationRepository
	CareTaskRepo     repository.CareTaskRepository
	Publisher        realtime.Publisher
	Logger           *zap.Logger
	Metrics          *observability.Metrics
	BatchLimit       int
}

// SweepResult summarizes one dispatch sweep.
type SweepResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// NewReminderDispatcher constructs the dispatcher.
func NewReminderDispatcher(deps DispatcherDependencies) *ReminderDispatcher {
	limit := deps.BatchLimit
	if limit <= 0 {
		limit = 200
	}
	return &ReminderDispatcher{
		tasks:         deps.TaskRepo,
		notifications: deps.NotificationRepo,
		careTasks:     deps.CareTaskRepo,
		publisher:     deps.Publisher,
		logger:        deps.Logger.With(zap.String("component", "reminder_dispatcher")),
		metrics:       deps.Metrics,
		batchLimit:    limit,
	}
}

// Start schedules the daily sweeps at the configured hours.
func (d *ReminderDispatcher) Start(dispatchHour, careSweepHour int) error {
	if d.cron != nil {
		return errors.New("dispatcher already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * *", dispatchHour), func() {
		result, err := d.RunOnce(context.Background())
		if err != nil {
			d.logger.Error("reminder sweep failed", zap.Error(err))
			return
		}
		d.logger.Info("reminder sweep completed",
			zap.Int("processed", result.Processed),
			zap.Int("sent", result.Sent),
			zap.Int("failed", result.Failed))
	}); err != nil {
		return err
	}
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * *", careSweepHour), func() {
		notified, err := d.RunCareSweep(context.Background())
		if err != nil {
			d.logger.Error("care-task sweep failed", zap.Error(err))
			return
		}
		d.logger.Info("care-task sweep completed", zap.Int("users_notified", notified))
	}); err != nil {
		return err
	}

	c.Start()
	d.cron = c
	d.logger.Info("dispatcher started",
		zap.Int("dispatch_hour", dispatchHour),
		zap.Int("care_sweep_hour", careSweepHour))
	return nil
}

// Stop halts the timers and waits for any in-flight sweep to finish.
func (d *ReminderDispatcher) Stop() {
	if d.cron == nil {
		return
	}
	<-d.cron.Stop().Done()
}

// RunOnce executes one dispatch sweep: find due tasks, deliver each, record
// the per-task outcome. Tasks are processed sequentially, each with its own
// status write, so one failing task never blocks its siblings. Also serves
// the manual operational trigger.
func (d *ReminderDispatcher) RunOnce(ctx context.Context) (SweepResult, error) {
	now := time.Now().UTC()
	due, err := d.tasks.ListDue(ctx, now, d.batchLimit)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Processed: len(due)}
	for i := range due {
		task := &due[i]
		if err := d.dispatch(ctx, task); err != nil {
			result.Failed++
			d.metrics.RecordDispatch("failed")
			d.logger.Warn("reminder dispatch failed",
				zap.String("task_id", task.ID),
				zap.String("channel", string(task.Channel)),
				zap.Error(err))
			if _, markErr := d.tasks.MarkFailed(ctx, task.ID, err.Error()); markErr != nil {
				d.logger.Error("mark task failed", zap.String("task_id", task.ID), zap.Error(markErr))
			}
			continue
		}
		result.Sent++
		d.metrics.RecordDispatch("sent")
		if _, markErr := d.tasks.MarkSent(ctx, task.ID); markErr != nil {
			d.logger.Error("mark task sent", zap.String("task_id", task.ID), zap.Error(markErr))
		}
	}
	return result, nil
}

// dispatch delivers one task by channel. Only IN_APP and SYSTEM_MESSAGE are
// implemented; SMS and PUSH are accepted at creation but fail at dispatch so
// their tasks end up terminally FAILED rather than silently succeeding.
func (d *ReminderDispatcher) dispatch(ctx context.Context, task *domain.ReminderTask) error {
	switch task.Channel {
	case domain.ChannelInApp, domain.ChannelSystemMessage:
		notification := &domain.Notification{
			UserID:    task.UserID,
			EventType: task.EventType,
			EventID:   task.EventID,
			Title:     task.Title,
			Body:      task.Body,
			Status:    domain.NotificationStatusUnread,
		}
		if err := d.notifications.Create(ctx, notification); err != nil {
			return err
		}
		if d.publisher != nil {
			d.publisher.PublishNotification(ctx, task.UserID, notification)
		}
		return nil
	default:
		return fmt.Errorf("unsupported reminder channel %q", task.Channel)
	}
}

// RunCareSweep groups today's unfinished care tasks per user and delivers
// one combined reminder each: a durable inbox row first, then the live push.
// Returns the number of users notified.
func (d *ReminderDispatcher) RunCareSweep(ctx context.Context) (int, error) {
	today := time.Now().UTC()
	pending, err := d.careTasks.ListPendingForDate(ctx, today)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	byUser := make(map[string][]domain.CareTask)
	for _, task := range pending {
		byUser[task.UserID] = append(byUser[task.UserID], task)
	}

	notified := 0
	for userID, tasks := range byUser {
		names := make([]string, 0, len(tasks))
		for _, task := range tasks {
			names = append(names, task.Name)
		}
		notification := &domain.Notification{
			UserID:    userID,
			EventType: "CARE_TASK_REMINDER",
			EventID:   today.Format("2006-01-02"),
			Title:     fmt.Sprintf("%d care tasks still open today", len(tasks)),
			Body:      strings.Join(names, ", "),
			Status:    domain.NotificationStatusUnread,
		}
		if err := d.notifications.Create(ctx, notification); err != nil {
			d.logger.Warn("care reminder persist failed",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if d.publisher != nil {
			d.publisher.PublishNotification(ctx, userID, notification)
		}
		notified++
	}
	return notified, nil
}
