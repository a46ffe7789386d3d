package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const secretService = "followup"

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Extract ExtractConfig
	Ollama  OllamaConfig
	Weather WeatherConfig
	Worker  WorkerConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// ExtractConfig selects the extractor used by the API and the worker.
type ExtractConfig struct {
	Mode    string // "heuristic" or "llm"
	Timeout time.Duration
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type WeatherConfig struct {
	BaseURL string
	APIKey  string
}

type WorkerConfig struct {
	PollInterval time.Duration
}

const (
	ModeHeuristic = "heuristic"
	ModeLLM       = "llm"
)

func defaults() Config {
	return Config{
		Server:  ServerConfig{Port: 4100},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Log:     LogConfig{Level: "info"},
		Extract: ExtractConfig{
			Mode:    ModeHeuristic,
			Timeout: 10 * time.Second,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.1",
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5",
		},
		Worker: WorkerConfig{PollInterval: 500 * time.Millisecond},
	}
}

// Load reads configuration from the platform-native backend, a .env file in
// the working directory, environment variables and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.followup.app) and secrets
// live in the macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/followup/config.json
// and secrets live in $XDG_DATA_HOME/followup/secrets.json.
//
// Environment variables (FOLLOWUP_*) override backend values on all platforms.
// Values from .env never replace variables that are already set.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), platformSecrets{}, ".env")
}

// secretStore abstracts Keychain access for testing.
type secretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

func loadWith(b Backend, secrets secretStore, envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	applySecrets(&cfg, secrets)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applySecrets fills secret keys still unset after the env layer.
func applySecrets(cfg *Config, secrets secretStore) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg) != "" {
			continue
		}
		if v, err := secrets.Get(secretService, s.account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}

func validate(cfg Config) error {
	switch cfg.Extract.Mode {
	case ModeHeuristic, ModeLLM:
	default:
		return fmt.Errorf("invalid extract.mode %q: want %q or %q", cfg.Extract.Mode, ModeHeuristic, ModeLLM)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", cfg.Log.Level)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Extract.Timeout <= 0 {
		return fmt.Errorf("extract.timeout must be positive")
	}
	if cfg.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker.poll_interval must be positive")
	}
	return nil
}

// platformSecrets reads and writes the platform secret store.
type platformSecrets struct{}

func (platformSecrets) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformSecrets) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}
