// Package config provides the unified configuration system for Weft.
// It defines a single Config structure covering the platform control plane:
// analytics emission, auth provider credentials, HTTP client behavior,
// persistence, and observability.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level Weft configuration.
type Config struct {
	// Logging controls the global logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Analytics configures product analytics emission
	Analytics AnalyticsConfig `yaml:"analytics" json:"analytics"`

	// Providers holds auth provider credentials and settings
	Providers ProvidersConfig `yaml:"providers" json:"providers"`

	// HTTP configures the shared outbound HTTP client
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Database configures the source connection store
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Observability settings for metrics and tracing
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// LoggingConfig controls logger behavior.
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`
	// Encoding selects the output format (json, console)
	Encoding string `yaml:"encoding" json:"encoding"`
	// Development enables colored console output and stack traces
	Development bool `yaml:"development" json:"development"`
}

// AnalyticsConfig configures the analytics emission layer.
// When Enabled is false every emission call is a no-op.
type AnalyticsConfig struct {
	// Enabled globally suppresses all emission when false
	Enabled bool `yaml:"enabled" json:"enabled"`
	// APIKey is the project API key for the capture endpoint
	APIKey string `yaml:"api_key" json:"api_key"`
	// Host is the capture endpoint base URL
	Host string `yaml:"host" json:"host"`
	// BatchSize flushes the queue once this many events are buffered
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// FlushInterval triggers periodic flushes of partial batches
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
	// QueueSize bounds the in-memory event queue; events beyond it are dropped
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	Composio  ComposioConfig  `yaml:"composio" json:"composio"`
	Pipedream PipedreamConfig `yaml:"pipedream" json:"pipedream"`
}

// ComposioConfig configures the Composio auth provider.
type ComposioConfig struct {
	// APIKey authenticates against the Composio API
	APIKey string `yaml:"api_key" json:"api_key"`
	// AuthConfigID scopes credential lookups to one auth config
	AuthConfigID string `yaml:"auth_config_id" json:"auth_config_id"`
	// AccountID selects the connected account to read credentials from
	AccountID string `yaml:"account_id" json:"account_id"`
	// BaseURL overrides the API endpoint (tests)
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// PipedreamConfig configures the Pipedream auth provider.
type PipedreamConfig struct {
	// ClientID and ClientSecret drive the OAuth2 client credentials flow
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	// ProjectID scopes connected account lookups
	ProjectID string `yaml:"project_id" json:"project_id"`
	// Environment selects the Pipedream project environment
	Environment string `yaml:"environment" json:"environment"`
	// BaseURL overrides the API endpoint (tests)
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// HTTPConfig configures the shared outbound HTTP client.
type HTTPConfig struct {
	// RequestTimeout bounds individual requests
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	// DialTimeout bounds connection establishment
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	// IdleConnTimeout closes idle pooled connections
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" json:"idle_conn_timeout"`
	// MaxIdleConnsPerHost caps pooled connections per host
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" json:"max_idle_conns_per_host"`
	// EnableHTTP2 configures the transport for HTTP/2
	EnableHTTP2 bool `yaml:"enable_http2" json:"enable_http2"`
	// RateLimit caps outbound requests per second (0 = unlimited)
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	// RateBurst allows short bursts above the sustained rate
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`
	// CircuitBreakerEnabled trips the client open after repeated failures
	CircuitBreakerEnabled bool `yaml:"circuit_breaker_enabled" json:"circuit_breaker_enabled"`
	// FailureThreshold consecutive failures before opening the breaker
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold"`
	// SuccessThreshold successes in half-open state before closing
	SuccessThreshold int `yaml:"success_threshold" json:"success_threshold"`
	// BreakerTimeout how long the breaker stays open before probing
	BreakerTimeout time.Duration `yaml:"breaker_timeout" json:"breaker_timeout"`
}

// DatabaseConfig configures the source connection store.
type DatabaseConfig struct {
	// URL is a pgx-compatible connection string
	URL string `yaml:"url" json:"url"`
	// MaxConns caps the connection pool size
	MaxConns int32 `yaml:"max_conns" json:"max_conns"`
	// ConnectTimeout bounds pool establishment
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	// EnableTracing activates otel tracing with the stdout exporter
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// TracingSampleRate controls trace sampling (0.0-1.0)
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// New returns a Config populated with production defaults.
// Credentials are left empty and are expected to come from the
// configuration file or environment substitution.
func New() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Analytics: AnalyticsConfig{
			Enabled:       true,
			Host:          "https://us.i.posthog.com",
			BatchSize:     50,
			FlushInterval: 5 * time.Second,
			QueueSize:     1000,
		},
		Providers: ProvidersConfig{
			Composio: ComposioConfig{
				BaseURL: "https://backend.composio.dev",
			},
			Pipedream: PipedreamConfig{
				BaseURL:     "https://api.pipedream.com",
				Environment: "production",
			},
		},
		HTTP: HTTPConfig{
			RequestTimeout:        30 * time.Second,
			DialTimeout:           10 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   10,
			EnableHTTP2:           true,
			RateLimit:             50.0,
			RateBurst:             10,
			CircuitBreakerEnabled: true,
			FailureThreshold:      5,
			SuccessThreshold:      3,
			BreakerTimeout:        30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:       10,
			ConnectTimeout: 10 * time.Second,
		},
		Observability: ObservabilityConfig{
			EnableTracing:     false,
			TracingSampleRate: 0.1,
		},
	}
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	if c.Analytics.Enabled {
		if c.Analytics.APIKey == "" {
			return fmt.Errorf("analytics.api_key is required when analytics is enabled")
		}
		if c.Analytics.Host == "" {
			return fmt.Errorf("analytics.host is required when analytics is enabled")
		}
	}
	if c.Analytics.BatchSize <= 0 {
		return fmt.Errorf("analytics.batch_size must be positive")
	}
	if c.Analytics.QueueSize <= 0 {
		return fmt.Errorf("analytics.queue_size must be positive")
	}
	if c.Analytics.FlushInterval <= 0 {
		return fmt.Errorf("analytics.flush_interval must be positive")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http.request_timeout must be positive")
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit cannot be negative")
	}
	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		return fmt.Errorf("observability.tracing_sample_rate must be between 0 and 1")
	}
	return nil
}
