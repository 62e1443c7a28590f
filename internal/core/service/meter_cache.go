package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/core/port"
	"github.com/plugwise/p1-legacy/internal/metrics"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"go.uber.org/zap"
)

const MinTimeBetweenUpdates = 30 * time.Second

// moduleSnapshots is swapped as a whole so readers always see
// electricity and gas from the same refresh.
type moduleSnapshots struct {
	electricity *smile_p1.Snapshot
	gas         *smile_p1.Snapshot
	fetchedAt   time.Time
}

func (s *moduleSnapshots) module(kind smile_p1.ModuleKind) *smile_p1.Snapshot {
	switch kind {
	case smile_p1.ModuleElectricity:
		return s.electricity
	case smile_p1.ModuleGas:
		return s.gas
	}
	return nil
}

type MeterDataCache struct {
	reader      smile_p1.SmileP1Reader
	host        string
	minInterval time.Duration
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *zap.Logger

	mu        sync.Mutex
	snapshots atomic.Pointer[moduleSnapshots]
}

type CacheOption func(*MeterDataCache)

func WithClock(now func() time.Time) CacheOption {
	return func(c *MeterDataCache) {
		c.now = now
	}
}

func WithMinInterval(d time.Duration) CacheOption {
	return func(c *MeterDataCache) {
		c.minInterval = d
	}
}

func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(c *MeterDataCache) {
		c.metrics = m
	}
}

func NewMeterDataCache(reader smile_p1.SmileP1Reader, host string, logger *zap.Logger, opts ...CacheOption) *MeterDataCache {
	c := &MeterDataCache{
		reader:      reader,
		host:        host,
		minInterval: MinTimeBetweenUpdates,
		now:         time.Now,
		logger:      logger.With(zap.String("component", "meter_cache")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh fetches both gateway modules unless the last successful refresh
// is younger than the minimum interval. On failure the held snapshots are
// kept and a *domain.ConnectivityError is returned.
func (c *MeterDataCache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if current := c.snapshots.Load(); current != nil && now.Sub(current.fetchedAt) < c.minInterval {
		c.metrics.RefreshResult(metrics.REFRESH_THROTTLED)
		return nil
	}

	electricity, err := c.reader.GetModule(ctx, smile_p1.ModuleElectricity)
	if err != nil {
		c.metrics.RefreshResult(metrics.REFRESH_FAILED)
		return &domain.ConnectivityError{Host: c.host, Module: smile_p1.ModuleElectricity, Err: err}
	}
	gas, err := c.reader.GetModule(ctx, smile_p1.ModuleGas)
	if err != nil {
		c.metrics.RefreshResult(metrics.REFRESH_FAILED)
		return &domain.ConnectivityError{Host: c.host, Module: smile_p1.ModuleGas, Err: err}
	}

	c.snapshots.Store(&moduleSnapshots{
		electricity: electricity,
		gas:         gas,
		fetchedAt:   now,
	})
	c.metrics.RefreshResult(metrics.REFRESH_FETCHED)
	c.logger.Debug("meter_cache refreshed",
		zap.Int("electricity_fields", electricity.Len()),
		zap.Int("gas_fields", gas.Len()))
	return nil
}

func (c *MeterDataCache) GetField(kind smile_p1.ModuleKind, field string) (float64, error) {
	current := c.snapshots.Load()
	if current == nil {
		return 0, &domain.FieldNotFoundError{Module: kind, Field: field, Empty: true}
	}
	snapshot := current.module(kind)
	if snapshot == nil {
		return 0, &domain.FieldNotFoundError{Module: kind, Field: field, Empty: true}
	}
	value, ok := snapshot.Field(field)
	if !ok {
		return 0, &domain.FieldNotFoundError{Module: kind, Field: field}
	}
	return value, nil
}

// Populated reports whether a refresh ever succeeded.
func (c *MeterDataCache) Populated() bool {
	return c.snapshots.Load() != nil
}

func (c *MeterDataCache) LastRefresh() time.Time {
	if current := c.snapshots.Load(); current != nil {
		return current.fetchedAt
	}
	return time.Time{}
}

// LogDate is the newest measurement date reported by the gateway.
func (c *MeterDataCache) LogDate() time.Time {
	current := c.snapshots.Load()
	if current == nil {
		return time.Time{}
	}
	latest := current.electricity.LogDate()
	if gas := current.gas.LogDate(); gas.After(latest) {
		latest = gas
	}
	return latest
}

// ensure interface compliance
var _ port.MeterData = (*MeterDataCache)(nil)
