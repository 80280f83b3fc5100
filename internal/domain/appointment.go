package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
	AppointmentStatusNoShow     AppointmentStatus = "no_show"
)

// Active reports whether the appointment occupies its slot. Completed,
// cancelled and no-show appointments do not block new bookings.
func (s AppointmentStatus) Active() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed, AppointmentStatusInProgress:
		return true
	}
	return false
}

// ActiveAppointmentStatuses is the set of statuses that occupy a slot,
// in the form the store layer needs for filtering.
var ActiveAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusConfirmed,
	AppointmentStatusInProgress,
}

// AppointmentKind distinguishes a real patient booking from a manual block
// a provider placed on their own calendar. Blocked entries carry no patient.
type AppointmentKind string

const (
	AppointmentKindBooking AppointmentKind = "booking"
	AppointmentKindBlocked AppointmentKind = "blocked"
)

const (
	DefaultDurationMinutes = 30
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 240
)

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID                uuid.UUID         `bun:"id,pk,type:uuid" json:"id"`
	ProviderID        string            `bun:"provider_id,notnull" json:"provider_id"`
	PatientID         string            `bun:"patient_id" json:"patient_id,omitempty"`
	Kind              AppointmentKind   `bun:"kind,notnull" json:"kind"`
	StartTime         time.Time         `bun:"start_time,notnull" json:"start_time"`
	DurationMinutes   int               `bun:"duration_minutes,notnull" json:"duration_minutes"`
	Status            AppointmentStatus `bun:"status,notnull" json:"status"`
	Reason            string            `bun:"reason" json:"reason,omitempty"`
	ConsultationType  string            `bun:"consultation_type" json:"consultation_type,omitempty"`
	IsRecurring       bool              `bun:"is_recurring,notnull" json:"is_recurring"`
	RecurrencePattern RecurrencePattern `bun:"recurrence_pattern" json:"recurrence_pattern,omitempty"`
	CreatedAt         time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

// EndTime is the exclusive end of the occupied interval. A missing duration
// counts as the default 30 minutes.
func (a *Appointment) EndTime() time.Time {
	d := a.DurationMinutes
	if d <= 0 {
		d = DefaultDurationMinutes
	}
	return a.StartTime.Add(time.Duration(d) * time.Minute)
}

// Overlaps reports full interval intersection with [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && a.EndTime().After(start)
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.Kind == "" {
			a.Kind = AppointmentKindBooking
		}
		if a.Status == "" {
			a.Status = AppointmentStatusScheduled
		}
		if a.DurationMinutes == 0 {
			a.DurationMinutes = DefaultDurationMinutes
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
