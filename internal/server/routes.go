package server

import (
	"net/http"
	"time"

	"github.com/plugwise/p1-legacy/internal/config"
	"github.com/plugwise/p1-legacy/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type readingJSON struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Unit  string   `json:"unit,omitempty"`
	Value *float64 `json:"value,omitempty"`
	Error string   `json:"error,omitempty"`
}

type readingsJSON struct {
	LastRefresh *time.Time    `json:"last_refresh,omitempty"`
	LogDate     *time.Time    `json:"log_date,omitempty"`
	Readings    []readingJSON `json:"readings"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/readings", s.ReadingsHandler)
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// ReadingsHandler resolves the configured keys, or the comma separated
// keys of the "key" query parameter.
func (s *Server) ReadingsHandler(c echo.Context) error {
	keys := s.keys
	if q := c.QueryParam("key"); q != "" {
		var err error
		if keys, err = config.CheckResources([]string{q}); err != nil {
			return c.JSON(http.StatusBadRequest, errorJSON{Error: err.Error()})
		}
	}

	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetReadingsRequest{Keys: keys}, s.timeout).Result()
	if err != nil {
		return c.JSON(http.StatusGatewayTimeout, errorJSON{Error: err.Error()})
	}
	response, ok := res.(domain.GetReadingsResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorJSON{Error: "unexpected response"})
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusServiceUnavailable, errorJSON{Error: response.GetResponseError().Error()})
	}

	body := readingsJSON{
		LastRefresh: optionalTime(response.LastRefresh),
		LogDate:     optionalTime(response.LogDate),
		Readings:    make([]readingJSON, 0, len(response.Readings)),
	}
	for _, r := range response.Readings {
		m, _ := domain.LookupMeasurement(r.Key)
		item := readingJSON{
			Key:   r.Key,
			Label: m.Label,
			Unit:  m.Unit,
		}
		if r.Ok() {
			value := r.Value
			item.Value = &value
		} else {
			item.Error = r.Error.Error()
		}
		body.Readings = append(body.Readings, item)
	}
	return c.JSON(http.StatusOK, body)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
