package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPAddr        string        `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
	LogLevel        string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat       string        `yaml:"log-format" env:"LOG_FORMAT" env-default:"text"`
	SSEHeartbeat    time.Duration `yaml:"sse-heartbeat" env:"SSE_HEARTBEAT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// Load reads the yaml file at path, if given, then applies environment
// overrides and defaults.
func Load(path string) (*Config, error) {
	conf := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(conf); err != nil {
			return nil, fmt.Errorf("unable to read config from env: %w", err)
		}
		return conf, nil
	}

	if err := cleanenv.ReadConfig(path, conf); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}
	return conf, nil
}
