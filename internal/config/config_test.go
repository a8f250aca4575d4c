package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.APIPort != 18080 {
		t.Errorf("Expected default api port 18080, got %d", cfg.APIPort)
	}
	if cfg.KVBackend != "sqlite" {
		t.Errorf("Expected default kv_backend 'sqlite', got %s", cfg.KVBackend)
	}
	if cfg.SQLitePath != "./slate.db" {
		t.Errorf("Expected default sqlite path './slate.db', got %s", cfg.SQLitePath)
	}
	if cfg.ClusterCacheTTLSec != 60 {
		t.Errorf("Expected default cluster cache TTL 60s, got %d", cfg.ClusterCacheTTLSec)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected default log format 'json', got %s", cfg.LogFormat)
	}
	if cfg.HelmBin != "helm" {
		t.Errorf("Expected default helm_bin 'helm', got %s", cfg.HelmBin)
	}
	if cfg.TracingEnabled {
		t.Error("Expected tracing to be disabled by default")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("SLATE_API_PORT", "9000")
	os.Setenv("SLATE_KV_BACKEND", "dynamo")
	os.Setenv("SLATE_SQLITE_PATH", "/tmp/test.db")
	os.Setenv("SLATE_LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.APIPort != 9000 {
		t.Errorf("Expected api port 9000 from env, got %d", cfg.APIPort)
	}
	if cfg.KVBackend != "dynamo" {
		t.Errorf("Expected kv_backend 'dynamo' from env, got %s", cfg.KVBackend)
	}
	if cfg.SQLitePath != "/tmp/test.db" {
		t.Errorf("Expected sqlite path '/tmp/test.db' from env, got %s", cfg.SQLitePath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug' from env, got %s", cfg.LogLevel)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	os.Clearenv()
	os.Setenv("SLATE_KV_BACKEND", "mongo")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Expected Load to reject an unknown kv_backend")
	}
}

func TestLoad_AllowedOriginsCommaSeparated(t *testing.T) {
	os.Clearenv()
	os.Setenv("SLATE_ALLOWED_ORIGINS", "http://localhost:3000,https://example.com")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("Expected 2 allowed origins, got %d: %v", len(cfg.AllowedOrigins), cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[0] != "http://localhost:3000" || cfg.AllowedOrigins[1] != "https://example.com" {
		t.Errorf("Unexpected allowed origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoad_AllowedOriginsCommaSeparatedWithWhitespace(t *testing.T) {
	os.Clearenv()
	os.Setenv("SLATE_ALLOWED_ORIGINS", " http://localhost:3000 , https://example.com ")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin != strings.TrimSpace(origin) {
			t.Errorf("Origin has unexpected whitespace: %q", origin)
		}
	}
}

func TestLoad_TracingAutoEnabledByOTLPEndpoint(t *testing.T) {
	os.Clearenv()
	os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.TracingEnabled {
		t.Error("Expected tracing to be auto-enabled when OTEL_EXPORTER_OTLP_ENDPOINT is set")
	}
	if cfg.TracingEndpoint != "http://collector:4318" {
		t.Errorf("Expected tracing endpoint from OTEL_EXPORTER_OTLP_ENDPOINT, got %s", cfg.TracingEndpoint)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load should not error when config file is missing: %v", err)
	}
	if cfg == nil {
		t.Fatal("Config should not be nil even without config file")
	}
}
