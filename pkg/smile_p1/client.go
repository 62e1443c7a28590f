package smile_p1

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	ModulesPath     = "/core/modules"
	DefaultUsername = "smile"
)

type SmileP1HTTPReader struct {
	client     *resty.Client
	host       string
	instrument []ReaderInstrument
}

type ReaderConfig struct {
	Host     string
	Port     uint
	TLS      bool
	Username string
	Password string
	Timeout  time.Duration
}

func (cfg ReaderConfig) baseURL() string {
	scheme := "http"
	if cfg.TLS {
		scheme = "https"
	}
	if cfg.Port > 0 {
		return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
	}
	return fmt.Sprintf("%s://%s", scheme, cfg.Host)
}

func CreateSmileP1HTTPReader(cfg ReaderConfig, logger *zap.Logger, instrumentation *ReaderInstrument) (SmileP1Reader, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smile: missing host")
	}
	username := cfg.Username
	if username == "" {
		username = DefaultUsername
	}

	client := resty.New().
		SetBaseURL(cfg.baseURL()).
		SetBasicAuth(username, cfg.Password).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/xml")

	// instrumentation
	var inst []ReaderInstrument
	if logger != nil {
		logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "smile")).With(zap.String("host", cfg.Host)))
		if logInst != nil {
			inst = append(inst, *logInst)
		}
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	return &SmileP1HTTPReader{
		client:     client,
		host:       cfg.Host,
		instrument: inst,
	}, nil
}

func (reader *SmileP1HTTPReader) fetchModules(ctx context.Context, fnName string) (*xmlModules, error) {
	defer RecordTimer(fnName, reader.instrument)()
	resp, err := reader.client.R().SetContext(ctx).Get(ModulesPath)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("smile: %s returned %s", ModulesPath, resp.Status())
	}
	return parseModules(resp.Body())
}

func (reader *SmileP1HTTPReader) GetInfo(ctx context.Context) (*GatewayInfo, error) {
	doc, err := reader.fetchModules(ctx, "GetInfo")
	if err != nil {
		return nil, err
	}
	info, err := doc.info()
	if err != nil {
		return nil, err
	}
	info.Host = reader.host
	return info, nil
}

func (reader *SmileP1HTTPReader) GetModule(ctx context.Context, kind ModuleKind) (*Snapshot, error) {
	doc, err := reader.fetchModules(ctx, fmt.Sprintf("GetModule/%s", kind))
	if err != nil {
		return nil, err
	}
	return doc.snapshot(kind)
}

// ensure interface compliance
var _ SmileP1Reader = (*SmileP1HTTPReader)(nil)
