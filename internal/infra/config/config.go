// Package config provides application-wide configuration.
// Precedence: environment variables beat the optional YAML config file,
// which beats built-in defaults. A .env file, when present, is loaded
// into the environment first. Every field has a safe default so the
// binary runs locally without any setup — a missing provider credential
// degrades that provider, it never stops the gateway.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the gateway.
type Config struct {
	// HTTP server
	Host         string        `yaml:"host"`          // GATEWAY_HOST — default "0.0.0.0"
	Port         int           `yaml:"port"`          // GATEWAY_PORT — default 4000
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // GATEWAY_READ_TIMEOUT — default 15s
	WriteTimeout time.Duration `yaml:"write_timeout"` // GATEWAY_WRITE_TIMEOUT — default 0 (streaming responses must not be cut off)
	IdleTimeout  time.Duration `yaml:"idle_timeout"`  // GATEWAY_IDLE_TIMEOUT — default 60s

	// Providers
	OpenRouterBaseURL string `yaml:"openrouter_base_url"` // OPENROUTER_BASE_URL — default "https://openrouter.ai/api/v1"
	OpenRouterAPIKey  string `yaml:"openrouter_api_key"`  // OPENROUTER_API_KEY — empty means degraded
	VLLMBaseURL       string `yaml:"vllm_base_url"`       // VLLM_BASE_URL — default "http://localhost:8000"

	// Model registry
	RefreshInterval time.Duration `yaml:"refresh_interval"` // MODEL_REFRESH_INTERVAL — default 10m

	// Limits
	MaxContentLength int `yaml:"max_content_length"` // MAX_CONTENT_LENGTH — per-message cap, default 32768

	// Persistence
	DBPath string `yaml:"db_path"` // GATEWAY_DB_PATH — default "gateway.db"

	// Identity
	JWTSecret string `yaml:"jwt_secret"` // JWT_SECRET — empty means no token verifies: /api/v1 rejects all, the chat surface serves anonymously

	// Logging
	LogLevel  string `yaml:"log_level"`  // LOG_LEVEL — default "info"
	LogFormat string `yaml:"log_format"` // LOG_FORMAT — "json" (default) or "console"
}

const (
	envHost              = "GATEWAY_HOST"
	envPort              = "GATEWAY_PORT"
	envReadTimeout       = "GATEWAY_READ_TIMEOUT"
	envWriteTimeout      = "GATEWAY_WRITE_TIMEOUT"
	envIdleTimeout       = "GATEWAY_IDLE_TIMEOUT"
	envOpenRouterBaseURL = "OPENROUTER_BASE_URL"
	envOpenRouterAPIKey  = "OPENROUTER_API_KEY"
	envVLLMBaseURL       = "VLLM_BASE_URL"
	envRefreshInterval   = "MODEL_REFRESH_INTERVAL"
	envMaxContentLength  = "MAX_CONTENT_LENGTH"
	envDBPath            = "GATEWAY_DB_PATH"
	envJWTSecret         = "JWT_SECRET"
	envLogLevel          = "LOG_LEVEL"
	envLogFormat         = "LOG_FORMAT"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              4000,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",
		VLLMBaseURL:       "http://localhost:8000",
		RefreshInterval:   10 * time.Minute,
		MaxContentLength:  32 * 1024,
		DBPath:            "gateway.db",
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty or the file does not exist), then env vars.
// A .env file in the working directory is loaded first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // absent .env is the normal case

	cfg := Default()

	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Host = envOr(envHost, cfg.Host)
	cfg.Port = envIntOr(envPort, cfg.Port)
	cfg.ReadTimeout = envDurationOr(envReadTimeout, cfg.ReadTimeout)
	cfg.WriteTimeout = envDurationOr(envWriteTimeout, cfg.WriteTimeout)
	cfg.IdleTimeout = envDurationOr(envIdleTimeout, cfg.IdleTimeout)
	cfg.OpenRouterBaseURL = envOr(envOpenRouterBaseURL, cfg.OpenRouterBaseURL)
	cfg.OpenRouterAPIKey = envOr(envOpenRouterAPIKey, cfg.OpenRouterAPIKey)
	cfg.VLLMBaseURL = envOr(envVLLMBaseURL, cfg.VLLMBaseURL)
	cfg.RefreshInterval = envDurationOr(envRefreshInterval, cfg.RefreshInterval)
	cfg.MaxContentLength = envIntOr(envMaxContentLength, cfg.MaxContentLength)
	cfg.DBPath = envOr(envDBPath, cfg.DBPath)
	cfg.JWTSecret = envOr(envJWTSecret, cfg.JWTSecret)
	cfg.LogLevel = envOr(envLogLevel, cfg.LogLevel)
	cfg.LogFormat = envOr(envLogFormat, cfg.LogFormat)
}

// Addr returns the host:port the HTTP server binds to.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
