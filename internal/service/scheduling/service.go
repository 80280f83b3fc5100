package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"telecare/backend/internal/domain"
	"telecare/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Service is the scheduling core: it evaluates slot availability, generates
// a provider's day grid, and expands recurrence requests into validated
// appointment records. It owns no state beyond the injected repository.
type Service struct {
	repo store.SchedulingRepository
	log  *slog.Logger
}

func NewService(repo store.SchedulingRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "service.scheduling")),
	}
}

func normalizeDuration(minutes int) (int, error) {
	if minutes == 0 {
		return domain.DefaultDurationMinutes, nil
	}
	if minutes < domain.MinDurationMinutes || minutes > domain.MaxDurationMinutes {
		return 0, validationError(fmt.Sprintf(
			"duration_minutes must be between %d and %d",
			domain.MinDurationMinutes, domain.MaxDurationMinutes,
		))
	}
	return minutes, nil
}

func loadTimezone(name string) (*time.Location, error) {
	loc, err := domain.LoadTimezone(strings.TrimSpace(name))
	if err != nil {
		return nil, validationError("invalid timezone")
	}
	return loc, nil
}

type CheckSlotInput struct {
	ProviderID           string
	StartTime            time.Time
	DurationMinutes      int
	Timezone             string
	ExcludeAppointmentID uuid.UUID
}

type SlotCheck struct {
	Available      bool
	ConflictReason string
}

// CheckSlot is the single conflict-detection primitive: it reports whether
// the exact requested interval is bookable. A conflict is an outcome, not an
// error. Overlap is full interval intersection against every active
// appointment, including ones that start before the requested window.
func (s *Service) CheckSlot(ctx context.Context, in CheckSlotInput) (SlotCheck, error) {
	if in.ProviderID == "" {
		return SlotCheck{}, validationError("provider_id is required")
	}
	duration, err := normalizeDuration(in.DurationMinutes)
	if err != nil {
		return SlotCheck{}, err
	}
	loc, err := loadTimezone(in.Timezone)
	if err != nil {
		return SlotCheck{}, err
	}

	start := in.StartTime.UTC()
	end := start.Add(time.Duration(duration) * time.Minute)

	appts, err := s.repo.ListActiveAppointments(ctx, in.ProviderID, start.Add(-store.OverlapLookbehind), end)
	if err != nil {
		return SlotCheck{}, err
	}
	for _, a := range appts {
		if in.ExcludeAppointmentID != uuid.Nil && a.ID == in.ExcludeAppointmentID {
			continue
		}
		if a.Overlaps(start, end) {
			return SlotCheck{
				Available: false,
				ConflictReason: fmt.Sprintf(
					"Conflicts with an existing appointment at %s",
					a.StartTime.UTC().Format(time.RFC3339),
				),
			}, nil
		}
	}

	windows, err := s.repo.ListAvailabilityWindows(ctx, in.ProviderID, domain.WeekdayOf(start.In(loc)))
	if err != nil {
		return SlotCheck{}, err
	}
	tod := domain.TimeOfDayIn(start, loc)
	for _, w := range windows {
		if w.IsAvailable && w.Contains(tod) {
			return SlotCheck{Available: true}, nil
		}
	}
	return SlotCheck{Available: false, ConflictReason: "Provider is not available at this time"}, nil
}

type DaySlotsInput struct {
	ProviderID      string
	Date            string // YYYY-MM-DD, a calendar day in Timezone
	Timezone        string
	DurationMinutes int
}

// DaySlots produces the full grid of fixed-duration candidate slots for one
// local calendar day, each pre-flagged available or booked, for display.
// A provider with no hours that day yields an empty grid, not an error.
func (s *Service) DaySlots(ctx context.Context, in DaySlotsInput) ([]domain.TimeSlot, error) {
	if in.ProviderID == "" {
		return nil, validationError("provider_id is required")
	}
	duration, err := normalizeDuration(in.DurationMinutes)
	if err != nil {
		return nil, err
	}
	loc, err := loadTimezone(in.Timezone)
	if err != nil {
		return nil, err
	}
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(in.Date), loc)
	if err != nil {
		return nil, validationError("invalid date, want YYYY-MM-DD")
	}

	windows, err := s.repo.ListAvailabilityWindows(ctx, in.ProviderID, domain.WeekdayOf(date))
	if err != nil {
		return nil, err
	}
	open := make([]domain.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		if w.IsAvailable {
			open = append(open, w)
		}
	}
	if len(open) == 0 {
		return []domain.TimeSlot{}, nil
	}

	dayStart := date.UTC()
	dayEnd := date.AddDate(0, 0, 1).UTC()
	appts, err := s.repo.ListActiveAppointments(ctx, in.ProviderID, dayStart.Add(-store.OverlapLookbehind), dayEnd)
	if err != nil {
		return nil, err
	}

	step := time.Duration(duration) * time.Minute
	slots := make([]domain.TimeSlot, 0, 32)
	for _, w := range open {
		windowStart := domain.AtTimeOfDay(date.Year(), date.Month(), date.Day(), w.StartTime, loc)
		windowEnd := domain.AtTimeOfDay(date.Year(), date.Month(), date.Day(), w.EndTime, loc)

		// A final partial slot that would extend past the window is dropped.
		for t := windowStart; !t.Add(step).After(windowEnd); t = t.Add(step) {
			slot := domain.TimeSlot{StartTime: t, EndTime: t.Add(step), Available: true}
			for _, a := range appts {
				if a.Overlaps(slot.StartTime, slot.EndTime) {
					slot.Available = false
					slot.ConflictReason = "Time slot already booked"
					break
				}
			}
			slots = append(slots, slot)
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
	return slots, nil
}

type CreateRecurringSeriesInput struct {
	PatientID        string
	ProviderID       string
	StartTime        time.Time
	DurationMinutes  int
	Reason           string
	ConsultationType string
	Pattern          domain.RecurrencePattern
	Count            *int
	EndDate          *time.Time
	Timezone         string
}

// CreateRecurringSeries expands one recurrence request into a bounded list
// of individually validated appointments and persists them in a single
// atomic transaction. Occurrences whose slot is taken are skipped, not
// failed: partial success is the contract. Zero bookable occurrences still
// succeeds with an empty result.
func (s *Service) CreateRecurringSeries(ctx context.Context, in CreateRecurringSeriesInput) ([]uuid.UUID, error) {
	if in.PatientID == "" {
		return nil, validationError("patient_id is required")
	}
	if in.ProviderID == "" {
		return nil, validationError("provider_id is required")
	}
	if !in.Pattern.Valid() {
		return nil, validationError("recurrence_pattern must be daily, weekly or monthly")
	}
	duration, err := normalizeDuration(in.DurationMinutes)
	if err != nil {
		return nil, err
	}
	loc, err := loadTimezone(in.Timezone)
	if err != nil {
		return nil, err
	}

	start := in.StartTime.UTC()

	// The 52-occurrence ceiling applies regardless of what the caller asked
	// for, to bound runaway series.
	maxOccurrences := domain.MaxSeriesOccurrences
	if in.Count != nil {
		if *in.Count < 1 {
			return nil, validationError("recurrence_count must be at least 1")
		}
		if *in.Count < maxOccurrences {
			maxOccurrences = *in.Count
		}
	}
	var endDate *time.Time
	if in.EndDate != nil {
		e := in.EndDate.UTC()
		if e.Before(start) {
			return nil, validationError("recurrence_end_date must be after start_time")
		}
		endDate = &e
	}

	staged := make([]domain.Appointment, 0, maxOccurrences)
	cursor := start
	for i := 0; i < maxOccurrences; i++ {
		if endDate != nil && cursor.After(*endDate) {
			break
		}

		check, err := s.CheckSlot(ctx, CheckSlotInput{
			ProviderID:      in.ProviderID,
			StartTime:       cursor,
			DurationMinutes: duration,
			Timezone:        in.Timezone,
		})
		if err != nil {
			return nil, err
		}
		if check.Available {
			staged = append(staged, domain.Appointment{
				ProviderID:        in.ProviderID,
				PatientID:         in.PatientID,
				Kind:              domain.AppointmentKindBooking,
				StartTime:         cursor,
				DurationMinutes:   duration,
				Status:            domain.AppointmentStatusScheduled,
				Reason:            fmt.Sprintf("%s (Recurring %d)", in.Reason, i+1),
				ConsultationType:  in.ConsultationType,
				IsRecurring:       true,
				RecurrencePattern: in.Pattern,
			})
		} else {
			s.log.Info(
				"recurring occurrence skipped",
				slog.String("provider_id", in.ProviderID),
				slog.Time("start_time", cursor),
				slog.String("reason", check.ConflictReason),
			)
		}

		cursor = domain.NextOccurrence(cursor, in.Pattern, loc)
	}

	ids, err := s.repo.CreateAppointments(ctx, staged)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type BlockSlotInput struct {
	ProviderID      string
	StartTime       time.Time
	DurationMinutes int
	Reason          string
}

// BlockSlot places a manual block on a provider's calendar. Blocks are an
// explicit appointment kind with no patient attached; while active they
// occupy the slot exactly like a booking, and once cancelled they are inert.
func (s *Service) BlockSlot(ctx context.Context, in BlockSlotInput) (uuid.UUID, error) {
	if in.ProviderID == "" {
		return uuid.Nil, validationError("provider_id is required")
	}
	duration, err := normalizeDuration(in.DurationMinutes)
	if err != nil {
		return uuid.Nil, err
	}

	ids, err := s.repo.CreateAppointments(ctx, []domain.Appointment{{
		ProviderID:      in.ProviderID,
		Kind:            domain.AppointmentKindBlocked,
		StartTime:       in.StartTime.UTC(),
		DurationMinutes: duration,
		Status:          domain.AppointmentStatusScheduled,
		Reason:          in.Reason,
	}})
	if err != nil {
		return uuid.Nil, err
	}
	if len(ids) != 1 {
		return uuid.Nil, errors.New("expected one created block")
	}
	return ids[0], nil
}

type WindowInput struct {
	Weekday     domain.Weekday
	StartTime   string // HH:MM
	EndTime     string // HH:MM
	IsAvailable bool
}

// PutAvailability replaces a provider's weekly availability windows. Windows
// on the same weekday must not overlap; that invariant is enforced here, at
// write time, so the read paths can assume it.
func (s *Service) PutAvailability(ctx context.Context, providerID string, inputs []WindowInput) error {
	if providerID == "" {
		return validationError("provider_id is required")
	}

	windows := make([]domain.AvailabilityWindow, 0, len(inputs))
	for _, in := range inputs {
		if !in.Weekday.Valid() {
			return validationError("weekday must be between 1 (Monday) and 7 (Sunday)")
		}
		startTime, err := domain.ParseTimeOfDay(in.StartTime)
		if err != nil {
			return validationError("start_time must be HH:MM")
		}
		endTime, err := domain.ParseTimeOfDay(in.EndTime)
		if err != nil {
			return validationError("end_time must be HH:MM")
		}
		if startTime >= endTime {
			return validationError("start_time must be before end_time")
		}
		windows = append(windows, domain.AvailabilityWindow{
			ProviderID:  providerID,
			Weekday:     in.Weekday,
			StartTime:   startTime,
			EndTime:     endTime,
			IsAvailable: in.IsAvailable,
		})
	}

	sorted := make([]domain.AvailabilityWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weekday != sorted[j].Weekday {
			return sorted[i].Weekday < sorted[j].Weekday
		}
		return sorted[i].StartTime < sorted[j].StartTime
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Weekday == sorted[i-1].Weekday && sorted[i].StartTime < sorted[i-1].EndTime {
			return validationError(fmt.Sprintf(
				"windows overlap on weekday %d: %s and %s",
				int(sorted[i].Weekday), sorted[i-1].StartTime, sorted[i].StartTime,
			))
		}
	}

	return s.repo.ReplaceAvailabilityWindows(ctx, providerID, windows)
}
