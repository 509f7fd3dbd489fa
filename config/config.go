// Package config loads and validates the server configuration.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sedoy107/iot-dex/infra/logger"
)

type Config struct {
	Server struct {
		Owner      string `yaml:"owner"`       // account allowed to register tokens and pairs
		MetricsApi string `yaml:"metrics_api"` // listen address for /metrics, empty disables
	} `yaml:"server"`

	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		OrdersTopic string   `yaml:"orders_topic"` // inbound order commands
		EventsTopic string   `yaml:"events_topic"` // journaled order lifecycle events
		TradesTopic string   `yaml:"trades_topic"` // market data ticks, empty disables
		GroupID     string   `yaml:"group_id"`
	} `yaml:"kafka"`

	Journal struct {
		Dir string `yaml:"dir"`
	} `yaml:"journal"`

	Bootstrap struct {
		Tokens []string `yaml:"tokens"`
		Pairs  []struct {
			Base  string `yaml:"base"`
			Quote string `yaml:"quote"`
		} `yaml:"pairs"`
	} `yaml:"bootstrap"`

	Logging logger.Config `yaml:"logging"`
}

// Load reads the yaml file, applies environment overrides and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}

	cfg := &Config{Logging: logger.DefaultConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Owner == "" {
		return errors.New("config: server.owner is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("config: kafka.brokers is required")
	}
	if c.Kafka.OrdersTopic == "" || c.Kafka.EventsTopic == "" {
		return errors.New("config: kafka orders_topic and events_topic are required")
	}
	if c.Journal.Dir == "" {
		return errors.New("config: journal.dir is required")
	}
	return nil
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("DEX_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DEX_OWNER"); v != "" {
		cfg.Server.Owner = v
	}
	if v := os.Getenv("DEX_JOURNAL_DIR"); v != "" {
		cfg.Journal.Dir = v
	}
}
