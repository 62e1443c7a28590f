package actor

import (
	"errors"
	"testing"
	"time"

	adactor "github.com/plugwise/p1-legacy/internal/adapter/actor"
	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/core/service"
	"github.com/plugwise/p1-legacy/internal/util"
	"github.com/plugwise/p1-legacy/internal/util/actorutil"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collectEvents(es *eventstream.EventStream) (<-chan domain.SensorUpdateEvent, *eventstream.Subscription) {
	ch := make(chan domain.SensorUpdateEvent, 32)
	sub := es.Subscribe(func(evt any) {
		if ev, ok := evt.(domain.SensorUpdateEvent); ok {
			ch <- ev
		}
	})
	return ch, sub
}

func spawnReadings(t *testing.T, reader *smile_p1.TestReader, es *eventstream.EventStream, maxFailedPolls uint) (*actor.ActorSystem, *actor.PID) {
	cfg := util.LoadTestConfig()
	cfg.MonitorConfig.MaxFailedPolls = maxFailedPolls
	cfg.Smile.Resources = []string{
		domain.MEASUREMENT_NET_ELECTRICITY_POINT,
		domain.MEASUREMENT_GAS_CONSUMED_CUMULATIVE,
		"gas_produced_cumulative",
	}
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)

	cache := service.NewMeterDataCache(reader, cfg.Smile.Host, logger)
	resolver := service.NewDerivedReadingResolver(cache, nil)
	smilePID := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewSmileActor(reader, cache, resolver, cfg.Smile.Timeout(), logger)
	}))
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewReadingsActor(&cfg, smilePID, es, logger)
	}))
	t.Cleanup(as.Shutdown)
	return as, pid
}

func TestReadingsActorPublishes(t *testing.T) {

	es := &eventstream.EventStream{}
	evs, sub := collectEvents(es)
	defer es.Unsubscribe(sub)

	spawnReadings(t, smile_p1.NewTestReader(), es, 3)

	got := map[string]domain.SensorUpdateEvent{}
	timeout := time.After(5 * time.Second)
	for len(got) < 3 {
		select {
		case ev := <-evs:
			got[ev.SensorId()] = ev
		case <-timeout:
			t.Fatalf("only got %d events", len(got))
		}
	}

	net, ok := got[domain.MEASUREMENT_NET_ELECTRICITY_POINT].(domain.ReadingUpdateEvent)
	require.True(t, ok)
	assert.Equal(t, 115.0, net.Value)
	assert.Equal(t, "115.000", net.StatePayload())

	gas, ok := got[domain.MEASUREMENT_GAS_CONSUMED_CUMULATIVE].(domain.ReadingUpdateEvent)
	require.True(t, ok)
	assert.InDelta(t, 3812.401, gas.Value, 1e-9)

	_, ok = got[domain.SENSOR_ID_GATEWAY_LAST_DATA].(domain.GatewayDateUpdateEvent)
	assert.True(t, ok)

	_, ok = got["gas_produced_cumulative"]
	assert.False(t, ok, "a missing field publishes nothing")
}

func TestReadingsActorGatewayDown(t *testing.T) {

	es := &eventstream.EventStream{}
	evs, sub := collectEvents(es)
	defer es.Unsubscribe(sub)

	reader := smile_p1.NewTestReader()
	reader.SetError(errors.New("connection refused"))
	spawnReadings(t, reader, es, 3)

	select {
	case ev := <-evs:
		t.Errorf("unexpected event %v", ev)
	case <-time.After(1 * time.Second):
	}
	assert.GreaterOrEqual(t, reader.Fetches(), 1)
}

func readingsHealth(t *testing.T, as *actor.ActorSystem, pid *actor.PID) domain.ActorHealthResponse {
	res, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	return resp
}

func TestReadingsActorHealth(t *testing.T) {

	as, pid := spawnReadings(t, smile_p1.NewTestReader(), &eventstream.EventStream{}, 1)
	time.Sleep(500 * time.Millisecond)

	resp := readingsHealth(t, as, pid)
	assert.True(t, resp.Healthy)
	assert.Equal(t, "idle", resp.State)
}

func TestReadingsActorUnhealthyAfterFailedPolls(t *testing.T) {

	reader := smile_p1.NewTestReader()
	reader.SetError(errors.New("connection refused"))
	as, pid := spawnReadings(t, reader, &eventstream.EventStream{}, 1)
	time.Sleep(500 * time.Millisecond)

	resp := readingsHealth(t, as, pid)
	assert.False(t, resp.Healthy)
	assert.Equal(t, "idle, 1 failed polls", resp.State)
}

func TestReadingsActorHealthyBelowFailedPollLimit(t *testing.T) {

	reader := smile_p1.NewTestReader()
	reader.SetError(errors.New("connection refused"))
	as, pid := spawnReadings(t, reader, &eventstream.EventStream{}, 2)
	time.Sleep(500 * time.Millisecond)

	resp := readingsHealth(t, as, pid)
	assert.True(t, resp.Healthy)
	assert.Contains(t, resp.State, "1 failed polls")
}
