package port

import (
	"context"
	"time"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"
)

type MeterData interface {
	Refresh(ctx context.Context) error
	GetField(kind smile_p1.ModuleKind, field string) (float64, error)
	LastRefresh() time.Time
	LogDate() time.Time
}

type ReadingResolver interface {
	Resolve(ctx context.Context, key string) (float64, error)
	ResolveAll(ctx context.Context, keys []string) ([]domain.Reading, error)
}
