package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/core/port"
	"github.com/plugwise/p1-legacy/internal/util/actorutil"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type SmileActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   smile_p1.SmileP1Reader
	data     port.MeterData
	resolver port.ReadingResolver
	timeout  time.Duration
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

// NewSmileActor serves gateway info and readings. timeout bounds one
// gateway request; a readings task may issue two of them.
func NewSmileActor(reader smile_p1.SmileP1Reader, data port.MeterData, resolver port.ReadingResolver, timeout time.Duration, logger *zap.Logger) *SmileActor {
	act := &SmileActor{
		reader:   reader,
		data:     data,
		resolver: resolver,
		timeout:  timeout,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_SMILE, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *SmileActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SmileActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("smile@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("smile@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SMILE,
			Healthy: true,
			State:   state.dataState(),
		})
	case domain.GetDevicesInfoRequest:
		state.logger.Debug("smile@default GetDevicesInfoRequest")
		sender := actorutil.ReplyTo(ctx, msg)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getDevicesInfo),
			mapTaskResult[domain.GetDevicesInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetDevicesInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout(1)).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingSmile)
	case domain.GetReadingsRequest:
		state.logger.Debug("smile@default GetReadingsRequest", zap.Strings("keys", msg.Keys))
		sender := actorutil.ReplyTo(ctx, msg)
		keys := msg.Keys

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.GetReadingsResponse, error) {
			return state.getReadings(keys)
		}), mapTaskResult[domain.GetReadingsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetReadingsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.taskTimeout(len(smile_p1.ModuleKinds))).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingSmile)
	default:
		state.logger.Debug("smile@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SmileActor) WaitingSmile(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("smile@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		// a gateway round trip can outlast the health check deadline
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SMILE,
			Healthy: true,
			State:   "fetching",
		})
	default:
		state.logger.Debug("smile@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SmileActor) getDevicesInfo() (*domain.GetDevicesInfoResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), state.taskTimeout(1))
	defer cancel()

	info, err := state.reader.GetInfo(ctx)
	if err != nil {
		state.logger.Error("smile@task GetInfo failed", zap.Error(err))
		return nil, err
	}
	return &domain.GetDevicesInfoResponse{
		Gateway: info,
	}, nil
}

func (state *SmileActor) getReadings(keys []string) (*domain.GetReadingsResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), state.taskTimeout(len(smile_p1.ModuleKinds)))
	defer cancel()

	readings, err := state.resolver.ResolveAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	return &domain.GetReadingsResponse{
		Readings:    readings,
		LastRefresh: state.data.LastRefresh(),
		LogDate:     state.data.LogDate(),
	}, nil
}

func (state *SmileActor) taskTimeout(requests int) time.Duration {
	return time.Duration(requests)*state.timeout + 1*time.Second
}

func (state *SmileActor) dataState() string {
	if state.data.LastRefresh().IsZero() {
		return "empty"
	}
	return "populated"
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
