package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/core/service"
	"github.com/plugwise/p1-legacy/internal/util/actorutil"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnTestSmileActor(t *testing.T, reader *smile_p1.TestReader) (*actor.ActorSystem, *actor.PID) {
	logger := zap.Must(zap.NewDevelopment())

	cache := service.NewMeterDataCache(reader, "smile-test", logger)
	resolver := service.NewDerivedReadingResolver(cache, nil)

	as := actorutil.NewActorSystemWithZapLogger(logger)
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSmileActor(reader, cache, resolver, 1*time.Second, logger)
	})
	pid := as.Root.Spawn(props)
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})
	return as, pid
}

func TestGetDevicesInfoSmileActor(t *testing.T) {

	assert := assert.New(t)

	as, pid := spawnTestSmileActor(t, smile_p1.NewTestReader())

	result, err := as.Root.RequestFuture(pid, domain.GetDevicesInfoRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.GetDevicesInfoResponse)

	assert.False(resp.HasResponseError())
	assert.Equal("Plugwise", resp.Gateway.Manufacturer, "Gateway manufacturer")
	assert.Equal("Smile P1", resp.Gateway.Model, "Gateway model")
}

func TestGetReadingsSmileActor(t *testing.T) {

	assert := assert.New(t)

	as, pid := spawnTestSmileActor(t, smile_p1.NewTestReader())

	msg := domain.GetReadingsRequest{
		Keys: []string{
			domain.MEASUREMENT_NET_ELECTRICITY_POINT,
			domain.MEASUREMENT_NET_ELECTRICITY_CUMULATIVE,
			"gas_produced_cumulative",
		},
	}
	result, err := as.Root.RequestFuture(pid, msg, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.GetReadingsResponse)

	require.False(t, resp.HasResponseError())
	require.Len(t, resp.Readings, 3)
	assert.Equal(115.0, resp.Readings[0].Value)
	assert.Equal(2300.0, resp.Readings[1].Value)
	assert.False(resp.Readings[2].Ok())
	assert.False(resp.LastRefresh.IsZero())
	assert.False(resp.LogDate.IsZero())

	health, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Equal("populated", health.(domain.ActorHealthResponse).State)
}

func TestGetReadingsSmileActorUnreachable(t *testing.T) {

	reader := smile_p1.NewTestReader()
	reader.SetError(errors.New("connection refused"))
	as, pid := spawnTestSmileActor(t, reader)

	result, err := as.Root.RequestFuture(pid, domain.GetReadingsRequest{
		Keys: []string{domain.MEASUREMENT_ELECTRICITY_CONSUMED_POINT},
	}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.GetReadingsResponse)

	require.True(t, resp.HasResponseError())
	var connErr *domain.ConnectivityError
	assert.ErrorAs(t, resp.GetResponseError(), &connErr)
	assert.Empty(t, resp.Readings)

	health, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, "empty", health.(domain.ActorHealthResponse).State)
}
