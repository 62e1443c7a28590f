package domain

import (
	"strconv"
	"time"
)

// SensorUpdateEvent is published on the event stream for every new sensor state.
type SensorUpdateEvent interface {
	SensorId() string
	StatePayload() string
}

// ReadingUpdateEvent carries one resolved measurement.
type ReadingUpdateEvent struct {
	Key      string
	Value    float64
	Decimals int
}

func (e ReadingUpdateEvent) SensorId() string {
	return e.Key
}

func (e ReadingUpdateEvent) StatePayload() string {
	return strconv.FormatFloat(e.Value, 'f', e.Decimals, 64)
}

// GatewayDateUpdateEvent carries the newest gateway log date.
type GatewayDateUpdateEvent struct {
	LogDate time.Time
}

func (e GatewayDateUpdateEvent) SensorId() string {
	return SENSOR_ID_GATEWAY_LAST_DATA
}

func (e GatewayDateUpdateEvent) StatePayload() string {
	return e.LogDate.Format(time.RFC3339)
}
