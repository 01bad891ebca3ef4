package domain

import "time"

// ReminderChannel selects how a reminder task is delivered.
type ReminderChannel string

const (
	ChannelInApp         ReminderChannel = "IN_APP"
	ChannelSystemMessage ReminderChannel = "SYSTEM_MESSAGE"
	ChannelSMS           ReminderChannel = "SMS"
	ChannelPush          ReminderChannel = "PUSH"
)

// ReminderTaskStatus enumerates task outcomes. A task leaves PENDING
// exactly once and is never re-queued.
type ReminderTaskStatus string

const (
	ReminderStatusPending   ReminderTaskStatus = "PENDING"
	ReminderStatusSent      ReminderTaskStatus = "SENT"
	ReminderStatusFailed    ReminderTaskStatus = "FAILED"
	ReminderStatusCancelled ReminderTaskStatus = "CANCELLED"
)

// ReminderTask is a scheduled delivery created ahead of time by a producer.
type ReminderTask struct {
	ID            string
	EventType     string
	EventID       string
	UserID        string
	Channel       ReminderChannel
	Title         string
	Body          string
	FireAt        time.Time
	Status        ReminderTaskStatus
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
