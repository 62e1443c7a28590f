package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "github.com/plugwise/p1-legacy/internal/adapter/actor"
	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/core/service"
	"github.com/plugwise/p1-legacy/internal/util"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	reader := smile_p1.NewTestReader()
	cache := service.NewMeterDataCache(reader, cfg.Smile.Host, logger)
	resolver := service.NewDerivedReadingResolver(cache, nil)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.SmileActor {
			return adactor.NewSmileActor(reader, cache, resolver, cfg.Smile.Timeout(), logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, nil, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)

	time.Sleep(1 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")
	assert.Equal(t, "mqtt=idle readings=idle smile=populated", healthResp.State)

	// readings are answered by the smile child
	res, err = context.RequestFuture(pid, domain.GetReadingsRequest{
		Keys: []string{domain.MEASUREMENT_NET_ELECTRICITY_POINT},
	}, 10*time.Second).Result()
	require.NoError(t, err)
	readings := res.(domain.GetReadingsResponse)
	require.Len(t, readings.Readings, 1)
	assert.Equal(t, 115.0, readings.Readings[0].Value)

	context.Stop(pid)

	as.Shutdown()
}

func TestHealthCheckResponse(t *testing.T) {

	h := &healthCheck{answers: map[string]domain.ActorHealthResponse{
		domain.ACTOR_ID_SMILE:    {Id: domain.ACTOR_ID_SMILE, Healthy: true, State: "populated"},
		domain.ACTOR_ID_READINGS: {Id: domain.ACTOR_ID_READINGS, Healthy: false, State: "idle, 3 failed polls"},
	}}

	resp := h.response()
	assert.Equal(t, domain.ACTOR_ID_MASTER, resp.Id)
	assert.False(t, resp.Healthy)
	assert.Equal(t, "mqtt=unresponsive readings=idle, 3 failed polls smile=populated", resp.State)
}
