package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/nzai/vpa/constants"
)

// Duration toml and env friendly duration, eg: 10s, 2h
type Duration struct {
	time.Duration
}

// UnmarshalText parse duration text
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText format duration text
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Log log config
type Log struct {
	Level      string `toml:"level" env:"LOG_LEVEL"`
	Dir        string `toml:"dir" env:"VPA_LOG_DIR"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
}

// Venue streaming venue config
type Venue struct {
	SocketURL        string   `toml:"socket_url" env:"VPA_SOCKET_URL"`
	Hub              string   `toml:"hub"`
	Cookie           string   `toml:"cookie" env:"VPA_COOKIE"`
	UserAgent        string   `toml:"user_agent" env:"VPA_USER_AGENT"`
	ReconnectTimeout Duration `toml:"reconnect_timeout"`
	NegotiateRetry   int      `toml:"negotiate_retry"`
}

// Aggregator minute aggregator config
type Aggregator struct {
	Interval Duration `toml:"interval" env:"VPA_AGGREGATE_INTERVAL"`
}

// Server read api config
type Server struct {
	Address string `toml:"address" env:"VPA_SERVER_ADDRESS"`
	Port    string `toml:"-" env:"SERVER_PORT"`
}

// Notifier decision notifier config
type Notifier struct {
	Type    string `toml:"type" env:"VPA_NOTIFIER"`
	Broker  string `toml:"broker" env:"VPA_NSQ_BROKER"`
	Topic   string `toml:"topic"`
	TLSCert string `toml:"tls_cert"`
	TLSKey  string `toml:"tls_key"`
}

// Metrics metrics config
type Metrics struct {
	Enabled bool `toml:"enabled" env:"VPA_METRICS"`
}

// Config global config
type Config struct {
	Env        string     `toml:"env" env:"ENV"`
	Markets    []string   `toml:"markets" env:"VPA_MARKETS" envSeparator:","`
	Store      string     `toml:"store" env:"VPA_STORE"`
	Strategies string     `toml:"strategies" env:"VPA_STRATEGIES"`
	History    Duration   `toml:"history" env:"VPA_HISTORY"`
	Log        Log        `toml:"log"`
	Venue      Venue      `toml:"venue"`
	Aggregator Aggregator `toml:"aggregator"`
	Server     Server     `toml:"server"`
	Notifier   Notifier   `toml:"notifier"`
	Metrics    Metrics    `toml:"metrics"`
}

var marketRegexp = regexp.MustCompile(constants.MarketPattern)

// Valid validate config and fill defaults
func (s *Config) Valid() error {
	if strings.TrimSpace(s.Store) == "" {
		return errors.New("store undefined")
	}

	for _, market := range s.Markets {
		if !marketRegexp.MatchString(market) {
			return fmt.Errorf("market invalid: %s", market)
		}
	}

	if s.Env == "" {
		s.Env = "development"
	}

	if strings.TrimSpace(s.Strategies) == "" {
		s.Strategies = constants.DefaultStrategies
	}

	if s.History.Duration <= 0 {
		s.History.Duration = constants.DefaultHistory
	}

	if s.Log.Level == "" {
		s.Log.Level = "info"
	}

	if s.Log.MaxSize <= 0 {
		s.Log.MaxSize = 100
	}

	if s.Log.MaxBackups <= 0 {
		s.Log.MaxBackups = 7
	}

	if s.Log.MaxAge <= 0 {
		s.Log.MaxAge = 30
	}

	if s.Venue.SocketURL == "" {
		s.Venue.SocketURL = constants.SocketURL
	}

	if s.Venue.Hub == "" {
		s.Venue.Hub = constants.SocketHub
	}

	if s.Venue.ReconnectTimeout.Duration <= 0 {
		s.Venue.ReconnectTimeout.Duration = constants.ReconnectTimeout
	}

	if s.Venue.NegotiateRetry <= 0 {
		s.Venue.NegotiateRetry = constants.RetryCount
	}

	if s.Aggregator.Interval.Duration <= 0 {
		s.Aggregator.Interval.Duration = constants.AggregateInterval
	}

	if s.Server.Port != "" {
		s.Server.Address = ":" + s.Server.Port
	}

	if s.Server.Address == "" {
		s.Server.Address = constants.DefaultServerAddress
	}

	if s.Notifier.Type == "" {
		s.Notifier.Type = "log"
	}

	if s.Notifier.Type == "nsq" {
		if strings.TrimSpace(s.Notifier.Broker) == "" {
			return errors.New("notifier.broker undefined")
		}

		if strings.TrimSpace(s.Notifier.Topic) == "" {
			return errors.New("notifier.topic undefined")
		}
	}

	return nil
}

var (
	currentConfig *Config
)

// Get get current config
func Get() *Config {
	return currentConfig
}

// Parse parse config from file then environment, empty path reads environment only
func Parse(filePath string) (*Config, error) {
	config := new(Config)
	if filePath != "" {
		_, err := toml.DecodeFile(filePath, config)
		if err != nil {
			return nil, err
		}
	}

	err := env.Parse(config)
	if err != nil {
		return nil, err
	}

	err = config.Valid()
	if err != nil {
		return nil, err
	}

	currentConfig = config
	return currentConfig, nil
}
