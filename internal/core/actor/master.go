package actor

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	adactor "github.com/plugwise/p1-legacy/internal/adapter/actor"
	"github.com/plugwise/p1-legacy/internal/config"
	"github.com/plugwise/p1-legacy/internal/core/domain"
	. "github.com/plugwise/p1-legacy/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const childHealthTimeout = 500 * time.Millisecond

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type SmileActorProvider func() *adactor.SmileActor

// MasterOfPuppetsActor owns the smile, mqtt, readings and (optional)
// hadiscovery children, routes gateway requests to smile and aggregates
// child health.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	eventStream        *eventstream.EventStream
	children           map[string]*actor.PID
	health             *healthCheck
	smileActorProvider SmileActorProvider
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

// children asked on every health request
var healthCheckedChildren = []string{domain.ACTOR_ID_SMILE, domain.ACTOR_ID_MQTT, domain.ACTOR_ID_READINGS}

type healthCheck struct {
	answers   map[string]domain.ActorHealthResponse
	respondTo *actor.PID
}

type childSpec struct {
	id         string
	producer   actor.Producer
	supervisor actor.SupervisorStrategy
}

func NewMasterOfPuppetsActor(config config.Config, smileActorProvider SmileActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:             config,
		behavior:           actor.NewBehavior(),
		stash:              &Stash{},
		logger:             ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:        &eventstream.EventStream{},
		children:           map[string]*actor.PID{},
		smileActorProvider: smileActorProvider,
		mqttActorProvider:  mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")
		for _, child := range state.childSpecs() {
			pid, err := ctx.SpawnNamed(actor.PropsFromProducer(child.producer, actor.WithSupervisor(child.supervisor)), child.id)
			if err != nil {
				panic(fmt.Errorf("spawn %s: %w", child.id, err))
			}
			state.children[child.id] = pid
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// childSpecs lists children in spawn order; producers read the pids of
// children spawned before them.
func (state *MasterOfPuppetsActor) childSpecs() []childSpec {
	backoff := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)
	restartOnce := actor.NewOneForOneStrategy(1, 10*time.Second, func(reason any) actor.Directive {
		state.logger.Warn("master@supervisor restarting child", zap.Any("reason", reason))
		return actor.RestartDirective
	})

	specs := []childSpec{
		{domain.ACTOR_ID_SMILE, func() actor.Actor {
			return state.smileActorProvider()
		}, backoff},
		{domain.ACTOR_ID_MQTT, func() actor.Actor {
			return state.mqttActorProvider(state.eventStream)
		}, backoff},
		{domain.ACTOR_ID_READINGS, func() actor.Actor {
			return NewReadingsActor(&state.config, state.children[domain.ACTOR_ID_SMILE], state.eventStream, state.logger)
		}, restartOnce},
	}
	if state.config.MQTT.HADiscoveryEnable {
		specs = append(specs, childSpec{domain.ACTOR_ID_HA_DISCOVERY, func() actor.Actor {
			return NewHADiscoveryActor(&state.config, state.children[domain.ACTOR_ID_SMILE], state.children[domain.ACTOR_ID_MQTT], state.logger)
		}, restartOnce})
	}
	return specs
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.health = &healthCheck{
			answers:   map[string]domain.ActorHealthResponse{},
			respondTo: ctx.Sender(),
		}
		for _, id := range healthCheckedChildren {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.children[id], domain.ActorHealthRequest{}, childHealthTimeout), func(err error) any {
				return domain.ActorHealthResponse{Id: id, State: "unresponsive"}
			})
		}
		ctx.SetReceiveTimeout(2 * childHealthTimeout)
		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.GetReadingsRequest:
		// smile answers the original sender
		if msg.ReplyToRef == nil {
			msg.ReplyToRef = ctx.Sender()
		}
		ctx.Send(state.children[domain.ACTOR_ID_SMILE], msg)
	case domain.GetDevicesInfoRequest:
		if msg.ReplyToRef == nil {
			msg.ReplyToRef = ctx.Sender()
		}
		ctx.Send(state.children[domain.ACTOR_ID_SMILE], msg)
	case adactor.HomeAssistantOnline:
		if pid, ok := state.children[domain.ACTOR_ID_HA_DISCOVERY]; ok {
			ctx.Send(pid, msg)
		}
	case domain.ActorHealthResponse:
		// late answer to a finished health check
	case *actor.Terminated:
		if smile := state.children[domain.ACTOR_ID_SMILE]; smile != nil && msg.Who.Id == smile.Id {
			state.logger.Error("master@default smile terminated")
			panic(errors.New("smile terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		state.finishHealthCheck(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy), zap.String("state", msg.State))
		state.health.answers[msg.Id] = msg
		if len(state.health.answers) == len(healthCheckedChildren) {
			state.finishHealthCheck(ctx)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) finishHealthCheck(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	if state.health.respondTo != nil {
		ctx.Send(state.health.respondTo, state.health.response())
	}
	state.health = nil
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

// response is healthy only if every checked child answered healthy. State
// lists each child as id=state, sorted by id.
func (h *healthCheck) response() domain.ActorHealthResponse {
	healthy := true
	states := make([]string, 0, len(healthCheckedChildren))
	for _, id := range healthCheckedChildren {
		answer, ok := h.answers[id]
		if !ok {
			answer = domain.ActorHealthResponse{State: "unresponsive"}
		}
		healthy = healthy && answer.Healthy
		states = append(states, fmt.Sprintf("%s=%s", id, answer.State))
	}
	slices.Sort(states)
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: healthy,
		State:   strings.Join(states, " "),
	}
}
