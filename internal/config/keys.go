package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string // secret store account for secret keys
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FOLLOWUP_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOLLOWUP_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "FOLLOWUP_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "extract.mode", typ: kString, env: "FOLLOWUP_EXTRACT_MODE",
		apply:   func(cfg *Config, v any) { cfg.Extract.Mode = v.(string) },
		extract: func(cfg Config) any { return cfg.Extract.Mode },
	},
	{
		key: "extract.timeout", typ: kDuration, env: "FOLLOWUP_EXTRACT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Extract.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Extract.Timeout },
	},
	{
		key: "ollama.base_url", typ: kString, env: "FOLLOWUP_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "FOLLOWUP_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "weather.base_url", typ: kString, env: "FOLLOWUP_WEATHER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Weather.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Weather.BaseURL },
	},
	{
		key: "weather.api_key", typ: kString, env: "FOLLOWUP_WEATHER_API_KEY",
		secret: true, account: "weather_api_key",
		apply:   func(cfg *Config, v any) { cfg.Weather.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Weather.APIKey },
	},
	{
		key: "worker.poll_interval", typ: kDuration, env: "FOLLOWUP_WORKER_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Worker.PollInterval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Worker.PollInterval },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parse converts a raw string to the key's Go type.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %w", s.key, err)
		}
		return i, nil
	case kDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid duration value for %s: %w", s.key, err)
		}
		return d, nil
	default:
		return raw, nil
	}
}

// set applies raw to cfg. A value that does not parse keeps the previous
// layer's value and is logged with its source.
func (s keySpec) set(cfg *Config, raw, source string) {
	v, err := s.parse(raw)
	if err != nil {
		slog.Warn("ignoring config value", "source", source, "value", raw, "error", err)
		return
	}
	s.apply(cfg, v)
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok, err := b.Get(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if ok && raw != "" {
			s.set(cfg, raw, s.key)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if raw := os.Getenv(s.env); raw != "" {
			s.set(cfg, raw, s.env)
		}
	}
}
