package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/plugwise/p1-legacy/internal/adapter/actor"
	"github.com/plugwise/p1-legacy/internal/config"
	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/util/actorutil"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type HADiscoveryActor struct {
	config            *config.Config
	behavior          actor.Behavior
	stash             *actorutil.Stash
	smileActor        *actor.PID
	mqttActor         *actor.PID
	smileActorHealthy bool
	mqttActorHealthy  bool
	healthyRecv       int
	sensors           []domain.GenericSensor

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, smileActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:     config,
		smileActor: smileActor,
		mqttActor:  mqttActor,
		behavior:   actor.NewBehavior(),
		stash:      &actorutil.Stash{},
		logger:     actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check Smile and MQTT actor healthy
		state.healthyRecv = 0
		state.smileActorHealthy = false
		state.mqttActorHealthy = false
		// Smile Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.smileActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_SMILE,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_SMILE:
				state.smileActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.smileActorHealthy && state.mqttActorHealthy {
				// Ask Smile GetDevicesInfoRequest
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.smileActor, domain.GetDevicesInfoRequest{}, state.infoTimeout()), func(err error) any {
					return domain.GetDevicesInfoResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingInfoReceive)
			} else {
				panic(errors.New("MQTT Actor or Smile Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDevicesInfoResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info GetDevicesInfoResponse", zap.Any("gateway", msg.Gateway))

		state.sensors = DiscoverySensors(state.config, msg.Gateway)
		state.publish(ctx)

		state.behavior.Become(state.Done)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@info stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case adactor.HomeAssistantOnline:
		state.logger.Info("hadiscovery@done home assistant online, publishing discovery again")
		state.publish(ctx)
	default:
		state.logger.Debug("hadiscovery@done default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) publish(ctx actor.Context) {
	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Sensors: state.sensors,
	})
}

func (state *HADiscoveryActor) infoTimeout() time.Duration {
	return state.config.Smile.Timeout() + 2*time.Second
}

// DiscoverySensors lists the bridge sensors followed by one sensor per
// configured measurement key on the gateway device.
func DiscoverySensors(cfg *config.Config, gateway *smile_p1.GatewayInfo) []domain.GenericSensor {
	var sensors []domain.GenericSensor

	bridgeDevice := domain.BridgeDevice(cfg.MQTT.BaseTopic)
	sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)

	gatewayDevice := domain.GatewayDevice(gateway)
	gatewayDevice.ViaDevice = bridgeDevice.Id
	gatewaySensors := domain.MeasurementSensors(gatewayDevice, cfg.Smile.Resources)
	for i := range gatewaySensors {
		if i > 0 {
			gatewaySensors[i].Device = domain.IdDevice(gatewayDevice)
		}
		sensors = append(sensors, gatewaySensors[i])
	}

	return sensors
}
