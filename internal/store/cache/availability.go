package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"telecare/backend/internal/domain"
	"telecare/backend/internal/store"
)

// AvailabilityCache is a read-through LRU decorator over a
// SchedulingRepository. Availability windows change rarely but are read on
// every slot query, so they are cached per provider and weekday; appointment
// reads and all writes pass straight through. A window replacement evicts
// the provider's cached weekdays.
type AvailabilityCache struct {
	repo  store.SchedulingRepository
	cache *lru.Cache[string, []domain.AvailabilityWindow]
	log   *slog.Logger
}

func NewAvailabilityCache(repo store.SchedulingRepository, size int, log *slog.Logger) (*AvailabilityCache, error) {
	if log == nil {
		log = slog.Default()
	}
	c, err := lru.New[string, []domain.AvailabilityWindow](size)
	if err != nil {
		return nil, err
	}
	return &AvailabilityCache{
		repo:  repo,
		cache: c,
		log:   log.With(slog.String("component", "cache.availability")),
	}, nil
}

func windowKey(providerID string, day domain.Weekday) string {
	return fmt.Sprintf("%s|%d", providerID, int(day))
}

func (c *AvailabilityCache) ListAvailabilityWindows(ctx context.Context, providerID string, day domain.Weekday) ([]domain.AvailabilityWindow, error) {
	key := windowKey(providerID, day)
	if rows, ok := c.cache.Get(key); ok {
		c.log.Debug("availability cache hit", slog.String("provider_id", providerID), slog.Int("weekday", int(day)))
		return rows, nil
	}

	rows, err := c.repo.ListAvailabilityWindows(ctx, providerID, day)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, rows)
	return rows, nil
}

func (c *AvailabilityCache) ReplaceAvailabilityWindows(ctx context.Context, providerID string, windows []domain.AvailabilityWindow) error {
	if err := c.repo.ReplaceAvailabilityWindows(ctx, providerID, windows); err != nil {
		return err
	}
	for day := domain.Monday; day <= domain.Sunday; day++ {
		c.cache.Remove(windowKey(providerID, day))
	}
	c.log.Debug("availability cache invalidated", slog.String("provider_id", providerID))
	return nil
}

func (c *AvailabilityCache) ListActiveAppointments(ctx context.Context, providerID string, rangeStart, rangeEnd time.Time) ([]domain.Appointment, error) {
	return c.repo.ListActiveAppointments(ctx, providerID, rangeStart, rangeEnd)
}

func (c *AvailabilityCache) CreateAppointments(ctx context.Context, appts []domain.Appointment) ([]uuid.UUID, error) {
	return c.repo.CreateAppointments(ctx, appts)
}
