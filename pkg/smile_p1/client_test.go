package smile_p1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, password string, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != DefaultUsername || pass != password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != ModulesPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readerFor(t *testing.T, srv *httptest.Server, password string) SmileP1Reader {
	t.Helper()
	host := strings.TrimPrefix(srv.URL, "http://")
	reader, err := CreateSmileP1HTTPReader(ReaderConfig{
		Host:     host,
		Password: password,
		Timeout:  2 * time.Second,
	}, zap.NewNop(), nil)
	require.NoError(t, err)
	return reader
}

func TestHTTPReaderGetModule(t *testing.T) {

	srv := newTestGateway(t, "abcdefgh", TestModulesDocument)

	var recorded []string
	host := strings.TrimPrefix(srv.URL, "http://")
	reader, err := CreateSmileP1HTTPReader(ReaderConfig{
		Host:     host,
		Password: "abcdefgh",
		Timeout:  2 * time.Second,
	}, zap.NewNop(), &ReaderInstrument{
		RecordTime: func(fnName string, _ time.Duration) {
			recorded = append(recorded, fnName)
		},
	})
	require.NoError(t, err)

	s, err := reader.GetModule(context.Background(), ModuleElectricity)
	require.NoError(t, err)

	v, ok := s.Field("electricity_consumed_point")
	assert.True(t, ok)
	assert.Equal(t, 120.0, v)
	assert.Equal(t, []string{"GetModule/electricity"}, recorded)
}

func TestHTTPReaderGetInfo(t *testing.T) {

	srv := newTestGateway(t, "abcdefgh", TestModulesDocument)
	reader := readerFor(t, srv, "abcdefgh")

	info, err := reader.GetInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Plugwise", info.Manufacturer)
	assert.Equal(t, "Smile P1", info.Model)
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), info.Host)
}

func TestHTTPReaderUnauthorized(t *testing.T) {

	srv := newTestGateway(t, "abcdefgh", TestModulesDocument)
	reader := readerFor(t, srv, "wrong")

	_, err := reader.GetModule(context.Background(), ModuleElectricity)
	assert.ErrorContains(t, err, "401")
}

func TestHTTPReaderMalformedBody(t *testing.T) {

	srv := newTestGateway(t, "abcdefgh", "<html>not the gateway</p>")
	reader := readerFor(t, srv, "abcdefgh")

	_, err := reader.GetModule(context.Background(), ModuleGas)
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestHTTPReaderUnreachable(t *testing.T) {

	srv := newTestGateway(t, "abcdefgh", TestModulesDocument)
	reader := readerFor(t, srv, "abcdefgh")
	srv.Close()

	_, err := reader.GetModule(context.Background(), ModuleElectricity)
	assert.Error(t, err)
}

func TestCreateReaderRequiresHost(t *testing.T) {

	_, err := CreateSmileP1HTTPReader(ReaderConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestReaderConfigBaseURL(t *testing.T) {

	assert.Equal(t, "http://smile", ReaderConfig{Host: "smile"}.baseURL())
	assert.Equal(t, "https://10.0.0.2:8443", ReaderConfig{Host: "10.0.0.2", Port: 8443, TLS: true}.baseURL())
}
