package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"telecare/backend/internal/domain"
	"telecare/backend/internal/store"
)

type SchedulingRepo struct {
	db *bun.DB
}

func NewSchedulingRepo(db *bun.DB) *SchedulingRepo {
	return &SchedulingRepo{db: db}
}

type schedulingTx struct {
	tx bun.Tx
}

func (r *SchedulingRepo) ListAvailabilityWindows(ctx context.Context, providerID string, day domain.Weekday) ([]domain.AvailabilityWindow, error) {
	var rows []domain.AvailabilityWindow
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("weekday = ?", int(day)).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) ReplaceAvailabilityWindows(ctx context.Context, providerID string, windows []domain.AvailabilityWindow) error {
	return r.InProviderTransaction(ctx, providerID, func(ctx context.Context, tx store.SchedulingTx) error {
		if err := tx.DeleteAvailabilityWindows(ctx, providerID); err != nil {
			return err
		}
		if len(windows) == 0 {
			return nil
		}
		return tx.InsertAvailabilityWindows(ctx, windows)
	})
}

func (r *SchedulingRepo) ListActiveAppointments(ctx context.Context, providerID string, rangeStart, rangeEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status IN (?)", bun.In(domain.ActiveAppointmentStatuses)).
		Where("start_time >= ?", rangeStart).
		Where("start_time < ?", rangeEnd).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SchedulingRepo) CreateAppointments(ctx context.Context, appts []domain.Appointment) ([]uuid.UUID, error) {
	if len(appts) == 0 {
		return []uuid.UUID{}, nil
	}

	var ids []uuid.UUID
	err := r.InProviderTransaction(ctx, appts[0].ProviderID, func(ctx context.Context, tx store.SchedulingTx) error {
		out, err := tx.InsertAppointments(ctx, appts)
		if err != nil {
			return err
		}
		ids = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// InProviderTransaction serializes writes against one provider's calendar
// with a transaction-scoped advisory lock, closing the check-then-act race
// between concurrent bookings for the same slot.
func (r *SchedulingRepo) InProviderTransaction(ctx context.Context, providerID string, fn func(ctx context.Context, tx store.SchedulingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderCalendar(ctx, tx, providerID); err != nil {
			return err
		}
		return fn(ctx, schedulingTx{tx: tx})
	})
}

func lockProviderCalendar(ctx context.Context, tx bun.Tx, providerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID).Exec(ctx)
	return err
}

// mapWriteError translates the slot-uniqueness constraint violations into
// store.ErrConflict: the appointments_no_overlap exclusion constraint (23P01)
// and the partial unique index on active (provider_id, start_time) (23505).
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return store.ErrConflict
		}
		if pgErr.Code == "23505" {
			return store.ErrConflict
		}
	}
	return err
}

func (r schedulingTx) InsertAppointments(ctx context.Context, appts []domain.Appointment) ([]uuid.UUID, error) {
	rows := make([]domain.Appointment, len(appts))
	copy(rows, appts)

	_, err := r.tx.NewInsert().Model(&rows).Exec(ctx)
	if err != nil {
		return nil, mapWriteError(err)
	}

	ids := make([]uuid.UUID, len(rows))
	for i, a := range rows {
		ids[i] = a.ID
	}
	return ids, nil
}

func (r schedulingTx) ListActiveAppointments(ctx context.Context, providerID string, rangeStart, rangeEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status IN (?)", bun.In(domain.ActiveAppointmentStatuses)).
		Where("start_time >= ?", rangeStart).
		Where("start_time < ?", rangeEnd).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r schedulingTx) DeleteAvailabilityWindows(ctx context.Context, providerID string) error {
	_, err := r.tx.NewDelete().
		Model((*domain.AvailabilityWindow)(nil)).
		Where("provider_id = ?", providerID).
		Exec(ctx)
	return err
}

func (r schedulingTx) InsertAvailabilityWindows(ctx context.Context, windows []domain.AvailabilityWindow) error {
	rows := make([]domain.AvailabilityWindow, len(windows))
	copy(rows, windows)
	_, err := r.tx.NewInsert().Model(&rows).Exec(ctx)
	return err
}
