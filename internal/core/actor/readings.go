package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/plugwise/p1-legacy/internal/config"
	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/core/events"
	. "github.com/plugwise/p1-legacy/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// ReadingsActor polls the smile actor for the configured keys and puts
// one update event per resolved reading on the event stream.
type ReadingsActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	smileActor  *actor.PID
	config      *config.Config
	eventStream *eventstream.EventStream
	failures    uint

	logger *zap.Logger
}

type readingsTick struct {
}

func NewReadingsActor(config *config.Config, smileActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *ReadingsActor {
	act := &ReadingsActor{
		config:      config,
		smileActor:  smileActor,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_READINGS, logger),
		eventStream: eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ReadingsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ReadingsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("readings@starting started", zap.Strings("keys", state.config.Smile.Resources))

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		// first poll right away, the next one a poll interval after each response
		ctx.Send(ctx.Self(), readingsTick{})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("readings@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ReadingsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("readings@default ActorHealthRequest")
		ctx.Respond(state.health("idle"))
	case readingsTick:
		state.logger.Debug("readings@default tick")

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.smileActor, domain.GetReadingsRequest{
			Keys: state.config.Smile.Resources,
		}, state.requestTimeout()), func(err error) any {
			return domain.GetReadingsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})

		state.behavior.BecomeStacked(state.WaitingReadingsReceive)
	default:
		state.logger.Debug("readings@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ReadingsActor) WaitingReadingsReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetReadingsResponse:
		if msg.HasResponseError() {
			state.failures++
			var connErr *domain.ConnectivityError
			if errors.As(msg.GetResponseError(), &connErr) {
				state.logger.Warn("readings@waiting gateway unreachable, keeping last values",
					zap.Uint("failures", state.failures), zap.Error(connErr))
			} else {
				state.logger.Error("readings@waiting GetReadingsResponse error", zap.Error(msg.GetResponseError()))
			}
		} else {
			state.failures = 0
			state.logger.Debug("readings@waiting GetReadingsResponse", zap.Int("readings", len(msg.Readings)))
			for _, r := range msg.Readings {
				if !r.Ok() {
					state.logger.Warn("readings@waiting reading failed", zap.String("key", r.Key), zap.Error(r.Error))
				}
			}
			for _, ev := range events.ReadingsToUpdateEvents(msg.Readings) {
				state.eventStream.Publish(ev)
			}
			for _, ev := range events.LogDateToUpdateEvents(msg.LogDate) {
				state.eventStream.Publish(ev)
			}
		}
		// schedule next tick
		state.scheduler.RequestOnce(state.config.MonitorConfig.PollInterval(), ctx.Self(), readingsTick{})
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health("polling"))
	default:
		state.logger.Debug("readings@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ReadingsActor) health(s string) domain.ActorHealthResponse {
	if state.failures > 0 {
		s = fmt.Sprintf("%s, %d failed polls", s, state.failures)
	}
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_READINGS,
		Healthy: state.failures < state.config.MonitorConfig.MaxFailedPolls,
		State:   s,
	}
}

// requestTimeout leaves room for both module fetches of one refresh.
func (state *ReadingsActor) requestTimeout() time.Duration {
	return 2*state.config.Smile.Timeout() + 2*time.Second
}
