package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration
type Config struct {
	IDPBaseURL          string `validate:"required,url"`
	ClientID            string
	ClientName          string
	Scopes              string
	ExtraAudiences      string
	VerifyAudience      bool
	AuthAutoError       bool
	CORSExtraOrigins    string
	ServerPort          string `validate:"required,numeric"`
	EnableHSTS          bool
	UserInfoTTL         time.Duration
	RefreshOnUnknownKey bool
	RateLimit           string
	ServerDebugMode     bool
	OTELEnabled         bool
	OTELEndpoint        string
}

var validate = validator.New()

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		IDPBaseURL:          getEnv("IDGATE_IDP_BASE_URL", ""),
		ClientID:            getEnv("IDGATE_CLIENT_ID", ""),
		ClientName:          getEnv("IDGATE_CLIENT_NAME", "idgate"),
		Scopes:              getEnv("IDGATE_SCOPES", "openid idgate"),
		ExtraAudiences:      getEnv("IDGATE_EXTRA_AUDIENCES", ""),
		VerifyAudience:      getEnvBool("IDGATE_VERIFY_AUDIENCE", true),
		AuthAutoError:       getEnvBool("IDGATE_AUTH_AUTO_ERROR", true),
		CORSExtraOrigins:    getEnv("IDGATE_CORS_EXTRA_ORIGINS", ""),
		ServerPort:          getEnv("IDGATE_SERVER_PORT", "8080"),
		EnableHSTS:          getEnvBool("IDGATE_ENABLE_HSTS", false),
		UserInfoTTL:         getEnvDuration("IDGATE_USERINFO_TTL", 15*time.Minute),
		RefreshOnUnknownKey: getEnvBool("IDGATE_JWKS_REFRESH_ON_UNKNOWN_KEY", false),
		RateLimit:           getEnv("IDGATE_RATE_LIMIT", "20-S"),
		ServerDebugMode:     getEnvBool("IDGATE_SERVER_DEBUG_MODE", false),
		OTELEnabled:         getEnvBool("IDGATE_OTEL_ENABLED", false),
		OTELEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.IDPBaseURL == "" {
		return nil, fmt.Errorf("IDGATE_IDP_BASE_URL is required")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// EnvVar describes one configuration variable for template generation.
type EnvVar struct {
	Name    string
	Default string
	Comment string
}

// Template lists every environment variable the service reads, in the order
// they should appear in a generated .env file.
func Template() []EnvVar {
	return []EnvVar{
		{"IDGATE_IDP_BASE_URL", "", "identity provider base URL (required)"},
		{"IDGATE_CLIENT_ID", "", "OAuth client id; required when audience verification is on"},
		{"IDGATE_CLIENT_NAME", "idgate", "application name shown in API metadata"},
		{"IDGATE_SCOPES", "openid idgate", "requested scopes, space separated"},
		{"IDGATE_EXTRA_AUDIENCES", "", "additional accepted audiences, comma separated"},
		{"IDGATE_VERIFY_AUDIENCE", "true", "enforce the token audience claim"},
		{"IDGATE_AUTH_AUTO_ERROR", "true", "reject requests without a bearer token"},
		{"IDGATE_CORS_EXTRA_ORIGINS", "", "additional CORS origins, comma separated"},
		{"IDGATE_SERVER_PORT", "8080", "HTTP listen port"},
		{"IDGATE_ENABLE_HSTS", "false", "send Strict-Transport-Security over TLS"},
		{"IDGATE_USERINFO_TTL", "15m", "userinfo cache entry lifetime; 0 disables expiry"},
		{"IDGATE_JWKS_REFRESH_ON_UNKNOWN_KEY", "false", "refetch JWKS once when a token kid is unknown"},
		{"IDGATE_RATE_LIMIT", "20-S", "per-IP rate limit in limiter notation"},
		{"IDGATE_SERVER_DEBUG_MODE", "false", "debug logging"},
		{"IDGATE_OTEL_ENABLED", "false", "enable OpenTelemetry tracing"},
		{"OTEL_EXPORTER_OTLP_ENDPOINT", "", "OTLP collector endpoint"},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
