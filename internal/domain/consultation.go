package domain

import "time"

// ConsultationStatus enumerates lifecycle states for consultations.
// Transitions are monotonic: PENDING -> IN_PROGRESS -> RESOLVED -> CLOSED.
type ConsultationStatus string

const (
	ConsultationStatusPending    ConsultationStatus = "PENDING"
	ConsultationStatusInProgress ConsultationStatus = "IN_PROGRESS"
	ConsultationStatusResolved   ConsultationStatus = "RESOLVED"
	ConsultationStatusClosed     ConsultationStatus = "CLOSED"
)

// ConsultationPriority enumerates urgency levels.
type ConsultationPriority string

const (
	ConsultationPriorityLow    ConsultationPriority = "LOW"
	ConsultationPriorityNormal ConsultationPriority = "NORMAL"
	ConsultationPriorityHigh   ConsultationPriority = "HIGH"
	ConsultationPriorityUrgent ConsultationPriority = "URGENT"
)

// ActorRole identifies which kind of party performed an action.
type ActorRole string

const (
	RolePatient ActorRole = "PATIENT"
	RoleFamily  ActorRole = "FAMILY"
	RoleStaff   ActorRole = "STAFF"
	RoleSystem  ActorRole = "SYSTEM"
)

// Consultation is the aggregate for a question thread between a
// patient/family member and a staff member.
type Consultation struct {
	ID            string
	Code          string
	Title         string
	Description   *string
	CreatorRole   ActorRole
	CreatorID     string
	TargetStaffID string
	Category      *string
	Status        ConsultationStatus
	Priority      ConsultationPriority
	Anonymous     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
	ClosedAt      *time.Time
}
