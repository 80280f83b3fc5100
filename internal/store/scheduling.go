package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"telecare/backend/internal/domain"
)

// OverlapLookbehind is how far before a requested range appointment reads
// are widened so that appointments starting earlier but still overlapping
// the range are fetched. It equals the maximum allowed appointment duration.
const OverlapLookbehind = time.Duration(domain.MaxDurationMinutes) * time.Minute

type SchedulingRepository interface {
	ListAvailabilityWindows(ctx context.Context, providerID string, day domain.Weekday) ([]domain.AvailabilityWindow, error)
	ReplaceAvailabilityWindows(ctx context.Context, providerID string, windows []domain.AvailabilityWindow) error

	// ListActiveAppointments returns active-status appointments whose start
	// time falls in [rangeStart, rangeEnd), ordered by start time.
	ListActiveAppointments(ctx context.Context, providerID string, rangeStart, rangeEnd time.Time) ([]domain.Appointment, error)

	// CreateAppointments persists all records in one atomic transaction and
	// returns the generated ids. A slot-uniqueness violation surfaces as
	// ErrConflict with nothing persisted.
	CreateAppointments(ctx context.Context, appts []domain.Appointment) ([]uuid.UUID, error)
}

// SchedulingTx is the transaction-scoped view of the calendar used inside a
// provider-locked transaction.
type SchedulingTx interface {
	InsertAppointments(ctx context.Context, appts []domain.Appointment) ([]uuid.UUID, error)
	ListActiveAppointments(ctx context.Context, providerID string, rangeStart, rangeEnd time.Time) ([]domain.Appointment, error)
	DeleteAvailabilityWindows(ctx context.Context, providerID string) error
	InsertAvailabilityWindows(ctx context.Context, windows []domain.AvailabilityWindow) error
}
