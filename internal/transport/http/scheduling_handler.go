package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"telecare/backend/internal/domain"
	"telecare/backend/internal/service/scheduling"
	"telecare/backend/internal/store"
)

type SchedulingHandler struct {
	svc schedulingService
	log *slog.Logger
}

type schedulingService interface {
	CheckSlot(ctx context.Context, in scheduling.CheckSlotInput) (scheduling.SlotCheck, error)
	DaySlots(ctx context.Context, in scheduling.DaySlotsInput) ([]domain.TimeSlot, error)
	CreateRecurringSeries(ctx context.Context, in scheduling.CreateRecurringSeriesInput) ([]uuid.UUID, error)
	BlockSlot(ctx context.Context, in scheduling.BlockSlotInput) (uuid.UUID, error)
	PutAvailability(ctx context.Context, providerID string, windows []scheduling.WindowInput) error
}

func NewSchedulingHandler(svc schedulingService, log *slog.Logger) *SchedulingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.scheduling")),
	}
}

func (h *SchedulingHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/providers/:id/slots", h.DaySlots)
	g.POST("/appointments/check", h.CheckSlot)
	g.POST("/appointments/recurring", h.CreateRecurringSeries)
	g.POST("/providers/:id/blocks", h.BlockSlot)
	g.PUT("/providers/:id/availability", h.PutAvailability)
}

// DaySlots handles GET /providers/:id/slots.
func (h *SchedulingHandler) DaySlots(c echo.Context) error {
	log := h.log.With(slog.String("handler", "DaySlots"))

	providerID := c.Param("id")
	date := c.QueryParam("date")
	if date == "" {
		log.Warn("invalid request", slog.String("reason", "missing_date"), slog.String("provider_id", providerID))
		return echo.NewHTTPError(http.StatusBadRequest, "date query parameter is required")
	}

	duration := 0
	if d := c.QueryParam("duration"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "invalid_duration"), slog.String("provider_id", providerID))
			return echo.NewHTTPError(http.StatusBadRequest, "duration must be an integer")
		}
		duration = parsed
	}

	slots, err := h.svc.DaySlots(c.Request().Context(), scheduling.DaySlotsInput{
		ProviderID:      providerID,
		Date:            date,
		Timezone:        c.QueryParam("timezone"),
		DurationMinutes: duration,
	})
	if err != nil {
		return h.mapError(log, err, slog.String("provider_id", providerID))
	}

	log.Debug(
		"day slots listed",
		slog.String("provider_id", providerID),
		slog.String("date", date),
		slog.Int("count", len(slots)),
	)
	return c.JSON(http.StatusOK, slots)
}

type checkSlotRequest struct {
	ProviderID      string    `json:"provider_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Timezone        string    `json:"timezone"`
}

type checkSlotResponse struct {
	Available      bool   `json:"available"`
	ConflictReason string `json:"conflict_reason,omitempty"`
}

// CheckSlot handles POST /appointments/check.
func (h *SchedulingHandler) CheckSlot(c echo.Context) error {
	log := h.log.With(slog.String("handler", "CheckSlot"))

	var req checkSlotRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bind_failed"))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StartTime.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.String("provider_id", req.ProviderID))
		return echo.NewHTTPError(http.StatusBadRequest, "start_time is required")
	}

	check, err := h.svc.CheckSlot(c.Request().Context(), scheduling.CheckSlotInput{
		ProviderID:      req.ProviderID,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Timezone:        req.Timezone,
	})
	if err != nil {
		return h.mapError(log, err, slog.String("provider_id", req.ProviderID))
	}

	log.Debug(
		"slot checked",
		slog.String("provider_id", req.ProviderID),
		slog.Time("start_time", req.StartTime),
		slog.Bool("available", check.Available),
	)
	return c.JSON(http.StatusOK, checkSlotResponse{
		Available:      check.Available,
		ConflictReason: check.ConflictReason,
	})
}

type recurringRequest struct {
	PatientID         string     `json:"patient_id"`
	ProviderID        string     `json:"provider_id"`
	StartTime         time.Time  `json:"start_time"`
	DurationMinutes   int        `json:"duration_minutes"`
	Reason            string     `json:"reason"`
	ConsultationType  string     `json:"consultation_type"`
	RecurrencePattern string     `json:"recurrence_pattern"`
	RecurrenceCount   *int       `json:"recurrence_count,omitempty"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty"`
	Timezone          string     `json:"timezone"`
}

type recurringResponse struct {
	AppointmentIDs []string `json:"appointment_ids"`
}

// CreateRecurringSeries handles POST /appointments/recurring.
func (h *SchedulingHandler) CreateRecurringSeries(c echo.Context) error {
	log := h.log.With(slog.String("handler", "CreateRecurringSeries"))

	var req recurringRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bind_failed"))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StartTime.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.String("provider_id", req.ProviderID))
		return echo.NewHTTPError(http.StatusBadRequest, "start_time is required")
	}

	ids, err := h.svc.CreateRecurringSeries(c.Request().Context(), scheduling.CreateRecurringSeriesInput{
		PatientID:        req.PatientID,
		ProviderID:       req.ProviderID,
		StartTime:        req.StartTime,
		DurationMinutes:  req.DurationMinutes,
		Reason:           req.Reason,
		ConsultationType: req.ConsultationType,
		Pattern:          domain.RecurrencePattern(req.RecurrencePattern),
		Count:            req.RecurrenceCount,
		EndDate:          req.RecurrenceEndDate,
		Timezone:         req.Timezone,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Info(
				"recurring series conflict on write",
				slog.String("provider_id", req.ProviderID),
				slog.Time("start_time", req.StartTime),
			)
			return echo.NewHTTPError(http.StatusConflict, "A slot in the series was booked by someone else. Try again.")
		}
		return h.mapError(log, err, slog.String("provider_id", req.ProviderID))
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}

	log.Info(
		"recurring series created",
		slog.String("provider_id", req.ProviderID),
		slog.String("patient_id", req.PatientID),
		slog.Int("count", len(out)),
	)
	return c.JSON(http.StatusCreated, recurringResponse{AppointmentIDs: out})
}

type blockSlotRequest struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Reason          string    `json:"reason"`
}

// BlockSlot handles POST /providers/:id/blocks.
func (h *SchedulingHandler) BlockSlot(c echo.Context) error {
	log := h.log.With(slog.String("handler", "BlockSlot"))

	providerID := c.Param("id")
	var req blockSlotRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bind_failed"), slog.String("provider_id", providerID))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StartTime.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.String("provider_id", providerID))
		return echo.NewHTTPError(http.StatusBadRequest, "start_time is required")
	}

	id, err := h.svc.BlockSlot(c.Request().Context(), scheduling.BlockSlotInput{
		ProviderID:      providerID,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Info("block conflict", slog.String("provider_id", providerID), slog.Time("start_time", req.StartTime))
			return echo.NewHTTPError(http.StatusConflict, "That time is already occupied.")
		}
		return h.mapError(log, err, slog.String("provider_id", providerID))
	}

	log.Info("slot blocked", slog.String("provider_id", providerID), slog.String("appointment_id", id.String()))
	return c.JSON(http.StatusCreated, map[string]string{"id": id.String()})
}

type availabilityWindowRequest struct {
	Weekday     int    `json:"weekday"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

// PutAvailability handles PUT /providers/:id/availability.
func (h *SchedulingHandler) PutAvailability(c echo.Context) error {
	log := h.log.With(slog.String("handler", "PutAvailability"))

	providerID := c.Param("id")
	var req []availabilityWindowRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bind_failed"), slog.String("provider_id", providerID))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	windows := make([]scheduling.WindowInput, 0, len(req))
	for _, w := range req {
		windows = append(windows, scheduling.WindowInput{
			Weekday:     domain.Weekday(w.Weekday),
			StartTime:   w.StartTime,
			EndTime:     w.EndTime,
			IsAvailable: w.IsAvailable,
		})
	}

	if err := h.svc.PutAvailability(c.Request().Context(), providerID, windows); err != nil {
		return h.mapError(log, err, slog.String("provider_id", providerID))
	}

	log.Info("availability replaced", slog.String("provider_id", providerID), slog.Int("windows", len(windows)))
	return c.NoContent(http.StatusNoContent)
}

func (h *SchedulingHandler) mapError(log *slog.Logger, err error, args ...any) error {
	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", append([]any{slog.Any("err", err)}, args...)...)
		return echo.NewHTTPError(http.StatusBadRequest, vErr.Error())
	case errors.Is(err, store.ErrConflict):
		log.Info("conflict", append([]any{slog.Any("err", err)}, args...)...)
		return echo.NewHTTPError(http.StatusConflict, "The requested time is no longer available.")
	case errors.Is(err, store.ErrNotFound):
		log.Info("not found", append([]any{slog.Any("err", err)}, args...)...)
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	default:
		log.Error("request failed", append([]any{slog.Any("err", err)}, args...)...)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
