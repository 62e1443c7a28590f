package actor

import (
	"testing"
	"time"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/util"
	"github.com/plugwise/p1-legacy/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type publishedMessage struct {
	topic   string
	payload string
}

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	published := make(chan publishedMessage, 10)
	sink := func(topic, payload string) {
		published <- publishedMessage{topic: topic, payload: payload}
	}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, sink, logger) })
	pid := context.Spawn(props)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	es.Publish(domain.ReadingUpdateEvent{
		Key:      domain.MEASUREMENT_NET_ELECTRICITY_POINT,
		Value:    115,
		Decimals: domain.READING_DECIMALS,
	})
	es.Publish(domain.GatewayDateUpdateEvent{
		LogDate: time.Date(2020, 3, 5, 12, 10, 0, 0, time.FixedZone("CET", 3600)),
	})
	// not a sensor update, filtered out
	es.Publish("noise")

	first := receivePublished(t, published)
	assert.Equal(t, "p1legacy/sensor/net_electricity_point/state", first.topic)
	assert.Equal(t, "115.000", first.payload)

	second := receivePublished(t, published)
	assert.Equal(t, "p1legacy/sensor/smile_last_update/state", second.topic)
	assert.Equal(t, "2020-03-05T12:10:00+01:00", second.payload)

	select {
	case extra := <-published:
		t.Errorf("unexpected publish %v", extra)
	case <-time.After(200 * time.Millisecond):
	}

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	as.Shutdown()
}

func TestMQTTActorDiscovery(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	published := make(chan publishedMessage, 10)
	sink := func(topic, payload string) {
		published <- publishedMessage{topic: topic, payload: payload}
	}

	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewTestMQTTActor(&cfg, nil, sink, logger)
	}))
	defer as.Root.Stop(pid)

	bridge := domain.BridgeDevice(cfg.MQTT.BaseTopic)
	as.Root.Send(pid, domain.PublishDiscoveryRequest{Sensors: domain.BridgeSensors(bridge)})

	msg := receivePublished(t, published)
	assert.Equal(t, "homeassistant/binary_sensor/"+bridge.Id+"/bridge/config", msg.topic)
	assert.Contains(t, msg.payload, `"state_topic":"p1legacy/bridge/state"`)
	assert.Contains(t, msg.payload, `"payload_on":"online"`)
}

func receivePublished(t *testing.T, published <-chan publishedMessage) publishedMessage {
	t.Helper()
	select {
	case msg := <-published:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("nothing published")
	}
	return publishedMessage{}
}
