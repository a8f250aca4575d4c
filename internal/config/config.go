// Package config loads runtime settings for the federation control plane
// via spf13/viper: defaults, then an optional config file, then environment
// variables prefixed SLATE_, in that priority order.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every tunable setting the control plane reads at startup.
// Field names mirror SPEC_FULL.md §6's environment variable table.
type Config struct {
	// HTTP server
	APIPort            int      `mapstructure:"api_port"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_sec"`
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"`
	BodyLimitBytes     int      `mapstructure:"body_limit_bytes"`

	// Persistent store backend (§4.3)
	KVBackend          string `mapstructure:"kv_backend"` // dynamo | sqlite
	DynamoTablePrefix  string `mapstructure:"dynamo_table_prefix"`
	DynamoRegion       string `mapstructure:"dynamo_region"`
	SQLitePath         string `mapstructure:"sqlite_path"`
	ClusterCacheTTLSec int    `mapstructure:"cluster_cache_ttl_sec"`
	UserCacheTTLSec    int    `mapstructure:"user_cache_ttl_sec"`

	// Kubeconfig materialization (§4.3)
	KubeconfigDir string `mapstructure:"kubeconfig_dir"`

	// Secret encryption (internal/secretcodec)
	SecretPassword string `mapstructure:"secret_password"`

	// Cascade fan-out (internal/cascade)
	CascadeConcurrency int `mapstructure:"cascade_concurrency"`

	// Helm/kubectl subprocess invocation (internal/executor, internal/procsup)
	HelmBin              string `mapstructure:"helm_bin"`
	KubectlBin           string `mapstructure:"kubectl_bin"`
	HelmRepoMain         string `mapstructure:"helm_repo_main"`
	HelmRepoDevelopment  string `mapstructure:"helm_repo_development"`
	HelmRepoTest         string `mapstructure:"helm_repo_test"`
	ProcessTimeoutSec    int    `mapstructure:"process_timeout_sec"`
	ReaperIntervalSec    int    `mapstructure:"reaper_interval_sec"`

	// DNS (internal/dns, §10)
	Route53ZoneID string `mapstructure:"route53_zone_id"`

	// Logging (§10)
	LogLevel  string `mapstructure:"log_level"`  // debug | info | warn | error
	LogFormat string `mapstructure:"log_format"` // json | text

	// Tracing (§10)
	TracingEnabled      bool    `mapstructure:"tracing_enabled"`
	TracingEndpoint     string  `mapstructure:"tracing_endpoint"`
	TracingServiceName  string  `mapstructure:"tracing_service_name"`
	TracingSamplingRate float64 `mapstructure:"tracing_sampling_rate"`

	// Metrics (§10)
	MetricsAuthEnabled bool `mapstructure:"metrics_auth_enabled"`

	// Rate limiting (internal/api/middleware, §10)
	MutatingRateLimitPerSec float64 `mapstructure:"mutating_rate_limit_per_sec"`
	MutatingRateLimitBurst  int     `mapstructure:"mutating_rate_limit_burst"`
	ReadRateLimitPerSec     float64 `mapstructure:"read_rate_limit_per_sec"`
	ReadRateLimitBurst      int     `mapstructure:"read_rate_limit_burst"`
}

// Load reads config.yaml (if present) from /etc/slate/, $HOME/.slate, or the
// working directory, overlays SLATE_-prefixed environment variables, and
// returns the merged result.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/slate/")
	viper.AddConfigPath("$HOME/.slate")
	viper.AddConfigPath(".")

	viper.SetDefault("api_port", 18080)
	viper.SetDefault("allowed_origins", []string{})
	viper.SetDefault("request_timeout_sec", 30)
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("body_limit_bytes", 5*1024*1024)

	viper.SetDefault("kv_backend", "sqlite")
	viper.SetDefault("dynamo_table_prefix", "slate")
	viper.SetDefault("dynamo_region", "us-east-1")
	viper.SetDefault("sqlite_path", "./slate.db")
	viper.SetDefault("cluster_cache_ttl_sec", 60) // §4.3: one-minute reference default
	viper.SetDefault("user_cache_ttl_sec", 60)

	viper.SetDefault("kubeconfig_dir", "./kubeconfigs")

	viper.SetDefault("secret_password", "")

	viper.SetDefault("cascade_concurrency", 0) // 0 = runtime.GOMAXPROCS(0), see internal/cascade

	viper.SetDefault("helm_bin", "helm")
	viper.SetDefault("kubectl_bin", "kubectl")
	viper.SetDefault("helm_repo_main", "main")
	viper.SetDefault("helm_repo_development", "dev")
	viper.SetDefault("helm_repo_test", "test")
	viper.SetDefault("process_timeout_sec", 120)
	viper.SetDefault("reaper_interval_sec", 5)

	viper.SetDefault("route53_zone_id", "")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")

	viper.SetDefault("tracing_enabled", false)
	viper.SetDefault("tracing_endpoint", "")
	viper.SetDefault("tracing_service_name", "slate-federation")
	viper.SetDefault("tracing_sampling_rate", 1.0)

	viper.SetDefault("metrics_auth_enabled", false)

	viper.SetDefault("mutating_rate_limit_per_sec", 5.0)
	viper.SetDefault("mutating_rate_limit_burst", 10)
	viper.SetDefault("read_rate_limit_per_sec", 20.0)
	viper.SetDefault("read_rate_limit_burst", 40)

	viper.SetEnvPrefix("SLATE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// allowed_origins may arrive as a single comma-separated env var value
	// (e.g. from a Helm chart) rather than a pre-split list.
	if len(cfg.AllowedOrigins) == 1 && strings.Contains(cfg.AllowedOrigins[0], ",") {
		parts := strings.Split(cfg.AllowedOrigins[0], ",")
		cfg.AllowedOrigins = make([]string, 0, len(parts))
		for _, p := range parts {
			if o := strings.TrimSpace(p); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	} else {
		normalized := make([]string, 0, len(cfg.AllowedOrigins))
		for _, origin := range cfg.AllowedOrigins {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				normalized = append(normalized, trimmed)
			}
		}
		cfg.AllowedOrigins = normalized
	}

	if !cfg.TracingEnabled && os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		cfg.TracingEnabled = true
		if cfg.TracingEndpoint == "" {
			cfg.TracingEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
	}

	if cfg.KVBackend != "dynamo" && cfg.KVBackend != "sqlite" {
		return nil, fmt.Errorf("invalid kv_backend %q: must be \"dynamo\" or \"sqlite\"", cfg.KVBackend)
	}

	return &cfg, nil
}
