package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/plugwise/p1-legacy/internal/adapter/actor"
	"github.com/plugwise/p1-legacy/internal/config"
	"github.com/plugwise/p1-legacy/internal/core/actor"
	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/internal/core/service"
	"github.com/plugwise/p1-legacy/internal/metrics"
	"github.com/plugwise/p1-legacy/internal/server"
	"github.com/plugwise/p1-legacy/internal/util/actorutil"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	defer logger.Sync()

	for _, key := range cfg.Smile.Resources {
		if !domain.IsKnownMeasurement(key) {
			logger.Warn("unknown measurement key, using fallback metadata", zap.String("key", key))
		}
	}

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	// gateway reader, cache and resolver
	reader, err := smile_p1.CreateSmileP1HTTPReader(cfg.Smile.ReaderConfig(), logger, m.ReaderInstrument())
	if err != nil {
		logger.Fatal("could not create smile reader", zap.Error(err))
	}
	cache := service.NewMeterDataCache(reader, cfg.Smile.Host, logger, service.WithMetrics(m))
	resolver := service.NewDerivedReadingResolver(cache, m)

	// the gateway must answer once before anything is registered
	setupCtx, cancel := context.WithTimeout(context.Background(), 2*cfg.Smile.Timeout()+time.Second)
	err = cache.Refresh(setupCtx)
	cancel()
	if err != nil {
		logger.Fatal("smile gateway not reachable", zap.String("host", cfg.Smile.Host), zap.Error(err))
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	smileProv := func() *adactor.SmileActor {
		return adactor.NewSmileActor(reader, cache, resolver, cfg.Smile.Timeout(), logger)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, smileProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Error("could not spawn master actor", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid, registry)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => P1LEGACY_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("P1LEGACY_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("p1legacy")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// gateway
	if cfg.Smile.Host == "" {
		return nil, errors.New("config param smile.host is required")
	}
	if cfg.Smile.Password == "" {
		return nil, errors.New("config param smile.password (the Smile ID) is required")
	}
	resources, err := config.CheckResources(viper.GetStringSlice("smile.resources"))
	if err != nil {
		return nil, err
	}
	cfg.Smile.Resources = resources

	// check bounds
	if cfg.Smile.TimeoutMillis < 500 {
		return nil, errors.New("config param smile.timeout_millis should be >= 500")
	}
	if cfg.MonitorConfig.PollIntervalMillis < 1000 {
		return nil, errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}
	if cfg.MonitorConfig.MaxFailedPolls < 1 {
		return nil, errors.New("config param monitor.max_failed_polls should be >= 1")
	}

	return &cfg, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("smile.host", "")
	viper.SetDefault("smile.port", 0)
	viper.SetDefault("smile.username", smile_p1.DefaultUsername)
	viper.SetDefault("smile.password", "")
	viper.SetDefault("smile.tls", false)
	viper.SetDefault("smile.timeout_millis", 5000)
	viper.SetDefault("smile.resources", domain.MeasurementKeys())
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "p1legacy")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("monitor.poll_interval_millis", 10000)
	viper.SetDefault("monitor.max_failed_polls", 3)
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Smile.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
