package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/metrics"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMaster answers like the master actor would.
func fakeMaster(healthy bool, readingsErr error) actor.ReceiveFunc {
	return func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case domain.ActorHealthRequest:
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: healthy})
		case domain.GetReadingsRequest:
			if readingsErr != nil {
				ctx.Respond(domain.GetReadingsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: readingsErr},
				})
				return
			}
			var readings []domain.Reading
			for _, key := range msg.Keys {
				if key == domain.MEASUREMENT_NET_ELECTRICITY_POINT {
					readings = append(readings, domain.Reading{Key: key, Value: 115})
				} else {
					readings = append(readings, domain.Reading{Key: key, Error: &domain.FieldNotFoundError{Module: smile_p1.ModuleGas, Field: key}})
				}
			}
			ctx.Respond(domain.GetReadingsResponse{
				Readings:    readings,
				LastRefresh: time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
			})
		}
	}
}

func newTestServer(t *testing.T, master actor.ReceiveFunc, gatherer prometheus.Gatherer) http.Handler {
	as := actor.NewActorSystem()
	t.Cleanup(as.Shutdown)
	pid := as.Root.Spawn(actor.PropsFromFunc(master))
	s := &Server{
		keys:        []string{domain.MEASUREMENT_NET_ELECTRICITY_POINT, "gas_produced_cumulative"},
		timeout:     2 * time.Second,
		rootContext: as.Root,
		masterActor: pid,
		gatherer:    gatherer,
	}
	return s.RegisterRoutes()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheckHandler(t *testing.T) {

	rec := get(newTestServer(t, fakeMaster(true, nil), nil), "/healthcheck")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "health_check: OK", rec.Body.String())

	rec = get(newTestServer(t, fakeMaster(false, nil), nil), "/healthcheck")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadingsHandler(t *testing.T) {

	rec := get(newTestServer(t, fakeMaster(true, nil), nil), "/readings")
	require.Equal(t, http.StatusOK, rec.Code)

	var body readingsJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Readings, 2)
	assert.NotNil(t, body.LastRefresh)
	assert.Nil(t, body.LogDate)

	net := body.Readings[0]
	assert.Equal(t, "Net Electricity Point", net.Label)
	assert.Equal(t, "W", net.Unit)
	require.NotNil(t, net.Value)
	assert.Equal(t, 115.0, *net.Value)

	missing := body.Readings[1]
	assert.Nil(t, missing.Value)
	assert.Contains(t, missing.Error, "gas_produced_cumulative")
}

func TestReadingsHandlerQuery(t *testing.T) {

	rec := get(newTestServer(t, fakeMaster(true, nil), nil), "/readings?key=NET_ELECTRICITY_POINT")
	require.Equal(t, http.StatusOK, rec.Code)

	var body readingsJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Readings, 1)
	assert.Equal(t, domain.MEASUREMENT_NET_ELECTRICITY_POINT, body.Readings[0].Key)

	rec = get(newTestServer(t, fakeMaster(true, nil), nil), "/readings?key=,")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadingsHandlerRejectsInvalidKey(t *testing.T) {

	requested := make(chan []string, 4)
	master := func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.GetReadingsRequest); ok {
			requested <- msg.Keys
		}
		fakeMaster(true, nil)(ctx)
	}
	h := newTestServer(t, master, nil)

	for _, query := range []string{
		"/readings?key=gas_%FF",
		"/readings?key=net_electricity_point,gas-produced",
		"/readings?key=%7Bjunk%7D",
	} {
		rec := get(h, query)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.Contains(t, rec.Body.String(), "invalid resource", query)
	}
	assert.Empty(t, requested, "rejected keys never reach the gateway")
}

func TestReadingsHandlerGatewayDown(t *testing.T) {

	err := &domain.ConnectivityError{Host: "smile", Module: smile_p1.ModuleElectricity, Err: errors.New("connection refused")}
	rec := get(newTestServer(t, fakeMaster(true, err), nil), "/readings")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsHandler(t *testing.T) {

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RefreshResult(metrics.REFRESH_FETCHED)

	rec := get(newTestServer(t, fakeMaster(true, nil), reg), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `p1legacy_cache_refresh_total{result="fetched"} 1`)

	rec = get(newTestServer(t, fakeMaster(true, nil), nil), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
