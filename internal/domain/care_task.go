package domain

import "time"

// CareTaskStatus tracks completion of a scheduled care task instance.
type CareTaskStatus string

const (
	CareTaskStatusPending CareTaskStatus = "PENDING"
	CareTaskStatusDone    CareTaskStatus = "DONE"
)

// CareTask is a single dated instance of a care plan item. The daily
// reminder sweep groups unfinished instances per user.
type CareTask struct {
	ID          string
	PlanID      string
	PlanTitle   string
	UserID      string
	Name        string
	ScheduledOn time.Time
	Status      CareTaskStatus
	CreatedAt   time.Time
}
