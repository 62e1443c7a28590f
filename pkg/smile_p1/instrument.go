package smile_p1

import (
	"time"

	"go.uber.org/zap"
)

type ReaderInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

func RecordTimer(name string, instrument []ReaderInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

func traceLoggerInstrumentation(logger *zap.Logger) *ReaderInstrument {
	if logger == nil {
		return nil
	}
	return &ReaderInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("smile", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}
