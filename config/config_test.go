package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nzai/vpa/constants"
)

const sample = `
markets = ["BTC-ETH", "BTC-LTC"]
store = "sqlite|vpa.db"
strategies = "pump,trailing_stop"
history = "1h"

[log]
level = "debug"

[venue]
cookie = "cf_clearance=abc"
user_agent = "Mozilla/5.0"
reconnect_timeout = "2m"

[aggregator]
interval = "5s"

[notifier]
type = "nsq"
broker = "127.0.0.1:4150"
topic = "decisions"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vpa.toml")
	err := os.WriteFile(path, []byte(content), 0644)
	if err != nil {
		t.Fatalf("write config error = %v", err)
	}

	return path
}

func TestParse(t *testing.T) {
	config, err := Parse(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(config.Markets) != 2 || config.Markets[1] != "BTC-LTC" {
		t.Errorf("markets = %v", config.Markets)
	}

	if config.History.Duration != time.Hour || config.Aggregator.Interval.Duration != time.Second*5 ||
		config.Venue.ReconnectTimeout.Duration != time.Minute*2 {
		t.Errorf("durations = %s, %s, %s", config.History, config.Aggregator.Interval, config.Venue.ReconnectTimeout)
	}

	if config.Log.Level != "debug" || config.Venue.Cookie != "cf_clearance=abc" || config.Notifier.Topic != "decisions" {
		t.Errorf("config = %+v", config)
	}

	// defaults
	if config.Venue.SocketURL != constants.SocketURL || config.Server.Address != constants.DefaultServerAddress ||
		config.Log.MaxSize != 100 || config.Env != "development" {
		t.Errorf("defaults not filled: %+v", config)
	}

	if Get() != config {
		t.Error("Get() does not return parsed config")
	}
}

func TestParse_Env(t *testing.T) {
	t.Setenv("VPA_STORE", "leveldb|/tmp/vpa")
	t.Setenv("VPA_MARKETS", "BTC-XRP,ETH-OMG")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SERVER_PORT", "9090")

	config, err := Parse(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if config.Store != "leveldb|/tmp/vpa" || config.Log.Level != "warn" || config.Server.Address != ":9090" {
		t.Errorf("environment not applied: %+v", config)
	}

	if len(config.Markets) != 2 || config.Markets[0] != "BTC-XRP" {
		t.Errorf("markets = %v", config.Markets)
	}

	// unset variables keep file values
	if config.Strategies != "pump,trailing_stop" {
		t.Errorf("strategies = %s", config.Strategies)
	}
}

func TestConfig_Valid(t *testing.T) {
	cases := []struct {
		config  Config
		wantErr bool
	}{
		{config: Config{Store: "sqlite|vpa.db"}},
		{config: Config{}, wantErr: true},
		{config: Config{Store: "sqlite|vpa.db", Markets: []string{"BTCETH"}}, wantErr: true},
		{config: Config{Store: "sqlite|vpa.db", Markets: []string{"USDT-BTC"}}},
		{config: Config{Store: "sqlite|vpa.db", Notifier: Notifier{Type: "nsq"}}, wantErr: true},
	}

	for _, _case := range cases {
		err := _case.config.Valid()
		if (err != nil) != _case.wantErr {
			t.Errorf("Config.Valid(%+v) error = %v, wantErr %v", _case.config, err, _case.wantErr)
		}
	}
}

func TestConfig_ValidDefaults(t *testing.T) {
	config := Config{Store: "sqlite|vpa.db"}
	if err := config.Valid(); err != nil {
		t.Fatalf("Config.Valid() error = %v", err)
	}

	if config.Strategies != "pump" {
		t.Errorf("strategies = %s", config.Strategies)
	}

	if config.Notifier.Type != "log" {
		t.Errorf("notifier = %s", config.Notifier.Type)
	}
}
