package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"basegraph.app/chat/common"
)

type Config struct {
	OTel         OTelConfig
	WorkOS       WorkOSConfig
	Auth         AuthConfig
	Redis        RedisConfig
	Upstream     UpstreamConfig
	Client       ClientConfig
	Env          string
	Port         string
	DashboardURL string
	AppName      string
}

type WorkOSConfig struct {
	APIKey      string
	ClientID    string
	RedirectURI string
}

type AuthConfig struct {
	AllowedEmailDomains []string
	SessionTTL          time.Duration
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type RedisConfig struct {
	URL       string
	KeyPrefix string
}

// UpstreamConfig describes the conversational backend the relay forwards to.
type UpstreamConfig struct {
	BaseURL        string
	APIKey         string
	ClearPath      string
	Timeout        time.Duration // history and clear calls
	MaxDuration    time.Duration // streamed chat submissions
	MaxUploadBytes int64
}

// ClientConfig is read by cmd/chat only.
type ClientConfig struct {
	RelayURL          string
	UserIDOverride    string
	SessionIDOverride string
	StateFile         string
	SessionCookie     string
	TurnTimeout       time.Duration
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeClient ServiceType = "client"
)

const (
	defaultAppName     = "edi_agent"
	defaultUpstreamURL = "http://0.0.0.0:9001"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the relay
//   - .env.client for the terminal client
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("CHAT_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:          getEnv("CHAT_ENV", "development"),
		Port:         getEnv("PORT", "8080"),
		DashboardURL: getEnv("DASHBOARD_URL", "http://localhost:3000"),
		AppName:      firstEnv(defaultAppName, "APP_NAME", "NEXT_PUBLIC_APP_NAME"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "chat-relay"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		WorkOS: WorkOSConfig{
			APIKey:      getEnv("WORKOS_API_KEY", ""),
			ClientID:    getEnv("WORKOS_CLIENT_ID", ""),
			RedirectURI: getEnv("WORKOS_REDIRECT_URI", "http://localhost:8080/auth/callback"),
		},
		Auth: AuthConfig{
			AllowedEmailDomains: getEnvList("AUTH_ALLOWED_EMAIL_DOMAINS"),
			SessionTTL:          getEnvDuration("AUTH_SESSION_TTL", 7*24*time.Hour),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "chat"),
		},
		Upstream: UpstreamConfig{
			BaseURL:        common.NormalizeLoopback(firstEnv(defaultUpstreamURL, "CHAT_API_URL", "NEXT_PUBLIC_CHAT_API_URL")),
			APIKey:         getEnv("X_API_KEY", ""),
			ClearPath:      getEnv("CHAT_CLEAR_PATH", "/api/chat/clear"),
			Timeout:        getEnvDuration("CHAT_UPSTREAM_TIMEOUT", 30*time.Second),
			MaxDuration:    getEnvDuration("CHAT_MAX_DURATION", 10*time.Minute),
			MaxUploadBytes: getEnvInt64("CHAT_MAX_UPLOAD_BYTES", 64<<20),
		},
		Client: ClientConfig{
			RelayURL:          common.NormalizeLoopback(getEnv("CHAT_RELAY_URL", "http://localhost:8080")),
			UserIDOverride:    firstEnv("", "CHAT_USER_ID", "NEXT_PUBLIC_CHAT_USER_ID"),
			SessionIDOverride: firstEnv("", "CHAT_SESSION_ID", "NEXT_PUBLIC_CHAT_SESSION_ID"),
			StateFile:         getEnv("CHAT_STATE_FILE", ""),
			SessionCookie:     getEnv("CHAT_SESSION_COOKIE", ""),
			TurnTimeout:       getEnvDuration("CHAT_TURN_TIMEOUT", 10*time.Minute),
		},
	}

	if serviceType == ServiceTypeServer && cfg.IsProduction() && !cfg.WorkOS.Enabled() {
		return Config{}, fmt.Errorf("WORKOS_API_KEY and WORKOS_CLIENT_ID are required in production")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c WorkOSConfig) Enabled() bool {
	return c.APIKey != "" && c.ClientID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(fallback string, keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
