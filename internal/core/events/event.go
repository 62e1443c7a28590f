package events

import (
	"time"

	"github.com/plugwise/p1-legacy/internal/core/domain"
)

// ReadingsToUpdateEvents maps resolved readings to sensor updates.
// Failed readings produce no event, leaving the last published state.
func ReadingsToUpdateEvents(readings []domain.Reading) []domain.SensorUpdateEvent {
	var events []domain.SensorUpdateEvent
	for _, r := range readings {
		if r.Ok() {
			events = append(events, domain.ReadingUpdateEvent{Key: r.Key, Value: r.Value, Decimals: domain.READING_DECIMALS})
		}
	}
	return events
}

func LogDateToUpdateEvents(logDate time.Time) []domain.SensorUpdateEvent {
	if logDate.IsZero() {
		return nil
	}
	return []domain.SensorUpdateEvent{domain.GatewayDateUpdateEvent{LogDate: logDate}}
}
