package domain

import (
	"time"

	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/asynkron/protoactor-go/actor"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_SMILE        = "smile"
	ACTOR_ID_READINGS     = "readings"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// ActorRequest is implemented by requests that may be answered on behalf
// of another actor, as when the master forwards a request to a child.
type ActorRequest interface {
	ReplyTo() *actor.PID
}

type ActorRequestMixIn struct {
	ReplyToRef *actor.PID
}

func (r ActorRequestMixIn) ReplyTo() *actor.PID {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type GetDevicesInfoRequest struct {
	ActorRequestMixIn
}

type GetDevicesInfoResponse struct {
	ActorResponseMixIn
	Gateway *smile_p1.GatewayInfo
}

// Reading is the outcome of resolving one measurement key.
// Exactly one of Value or Error is meaningful.
type Reading struct {
	Key   string
	Value float64
	Error error
}

func (r Reading) Ok() bool {
	return r.Error == nil
}

type GetReadingsRequest struct {
	ActorRequestMixIn
	Keys []string
}

type GetReadingsResponse struct {
	ActorResponseMixIn
	Readings    []Reading
	LastRefresh time.Time
	LogDate     time.Time
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
