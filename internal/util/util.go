package util

import (
	"github.com/plugwise/p1-legacy/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Smile: config.SmileConfig{
			Host:          "-.-.-.-",
			Username:      "smile",
			Password:      "abcdefgh",
			TimeoutMillis: 2000,
			Resources: []string{
				"electricity_consumed_point",
				"electricity_produced_point",
				"net_electricity_point",
				"net_electricity_cumulative",
				"gas_consumed_cumulative",
			},
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "p1legacy",
			HADiscoveryTopic: "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 5000,
			MaxFailedPolls:     3,
		},
		Port: 8080,
	}
}
