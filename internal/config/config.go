package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/plugwise/p1-legacy/internal/core/domain"
	"github.com/plugwise/p1-legacy/pkg/smile_p1"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel      zapcore.Level
	Smile         SmileConfig   `mapstructure:"smile"`
	MQTT          MQTTConfig    `mapstructure:"mqtt"`
	MonitorConfig MonitorConfig `mapstructure:"monitor"`
	Port          uint          `mapstructure:"port"`
	HttpLog       bool          `mapstructure:"http_log"`
}

type SmileConfig struct {
	Host          string
	Port          uint
	Username      string
	Password      string
	TLS           bool     `mapstructure:"tls"`
	TimeoutMillis uint32   `mapstructure:"timeout_millis"`
	Resources     []string `mapstructure:"resources"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	// consecutive failed polls after which the poller reports unhealthy
	MaxFailedPolls uint `mapstructure:"max_failed_polls"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c SmileConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

func (c SmileConfig) ReaderConfig() smile_p1.ReaderConfig {
	return smile_p1.ReaderConfig{
		Host:     c.Host,
		Port:     c.Port,
		TLS:      c.TLS,
		Username: c.Username,
		Password: c.Password,
		Timeout:  c.Timeout(),
	}
}

func (c MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// CheckResources lower-cases the configured measurement keys and drops
// blanks and duplicates, keeping the configured order.
func CheckResources(resources []string) ([]string, error) {
	keyRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	seen := make(map[string]bool, len(resources))
	var keys []string
	for _, r := range resources {
		// viper hands env lists over as one space separated value
		for _, key := range strings.FieldsFunc(r, func(c rune) bool { return c == ',' || c == ' ' }) {
			key = domain.NormalizeMeasurementKey(key)
			if key == "" || seen[key] {
				continue
			}
			if !keyRegexp.MatchString(key) {
				return nil, errors.New("invalid resource " + key + ". can only contain letters, numbers and underscores")
			}
			seen[key] = true
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("at least one smile.resources entry is required")
	}
	return keys, nil
}
