package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Workers)
	}
	if got := cfg.CTakes.URL(); got != "http://localhost:8888" {
		t.Fatalf("unexpected ctakes url %q", got)
	}
	if got := cfg.Geo.URL(); got != "http://localhost:8888" {
		t.Fatalf("unexpected geo url %q", got)
	}
	if cfg.HTTP.Timeout != 600*time.Second {
		t.Fatalf("expected 600s timeout, got %v", cfg.HTTP.Timeout)
	}
	if cfg.Retry.MaxAttempts != 0 || cfg.Retry.Backoff.Enabled {
		t.Fatalf("expected unbounded retries without backoff: %+v", cfg.Retry)
	}
	if cfg.Progress.Interval != 10*time.Second {
		t.Fatalf("expected 10s progress interval, got %v", cfg.Progress.Interval)
	}
	if cfg.Retry.Backoff.InitialInterval != 500*time.Millisecond {
		t.Fatalf("unexpected backoff initial interval %v", cfg.Retry.Backoff.InitialInterval)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
input_file: covid.csv
output_dir: out
workers: 8
ctakes:
  host: ctakes.internal
  port: 9998
geo:
  api: https://geo.example.com:9443/tika
http:
  timeout: 30s
  max_conns_per_host: 16
  rate_limit:
    rps: 2.5
    burst: 3
retry:
  max_attempts: 5
  backoff:
    enabled: true
    initial_interval: 1s
logging:
  development: true
metrics:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 8 || cfg.InputFile != "covid.csv" || cfg.OutputDir != "out" {
		t.Fatalf("expected top-level overrides to apply: %+v", cfg)
	}
	if got := cfg.CTakes.URL(); got != "http://ctakes.internal:9998" {
		t.Fatalf("unexpected ctakes url %q", got)
	}
	if got := cfg.Geo.URL(); got != "https://geo.example.com:9443/tika" {
		t.Fatalf("unexpected geo url %q", got)
	}
	if cfg.HTTP.Timeout != 30*time.Second || cfg.HTTP.MaxConnsPerHost != 16 {
		t.Fatalf("expected http overrides: %+v", cfg.HTTP)
	}
	if cfg.HTTP.RateLimit.RPS != 2.5 || cfg.HTTP.RateLimit.Burst != 3 {
		t.Fatalf("expected rate limit overrides: %+v", cfg.HTTP.RateLimit)
	}
	if cfg.Retry.MaxAttempts != 5 || !cfg.Retry.Backoff.Enabled || cfg.Retry.Backoff.InitialInterval != time.Second {
		t.Fatalf("expected retry overrides: %+v", cfg.Retry)
	}
	if !cfg.Logging.Development || cfg.Metrics.Addr != ":9090" {
		t.Fatalf("expected logging and metrics overrides")
	}
	if err := cfg.RequireIO(); err != nil {
		t.Fatalf("RequireIO() error = %v", err)
	}
}

func TestLoadTikaEnvironment(t *testing.T) {
	t.Setenv("TIKA_CTAKES_SCHEME", "https")
	t.Setenv("TIKA_CTAKES_HOST", "ctakes")
	t.Setenv("TIKA_CTAKES_PORT", "443")
	t.Setenv("TIKA_GEO_API", "http://geo:9999")
	t.Setenv("ANNOTATOR_WORKERS", "2")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.CTakes.URL(); got != "https://ctakes:443" {
		t.Fatalf("unexpected ctakes url %q", got)
	}
	if got := cfg.Geo.URL(); got != "http://geo:9999" {
		t.Fatalf("unexpected geo url %q", got)
	}
	if cfg.Workers != 2 {
		t.Fatalf("expected ANNOTATOR_WORKERS to apply, got %d", cfg.Workers)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TIKA_GEO_HOST=geo-from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("TIKA_GEO_HOST", "")
	if err := os.Unsetenv("TIKA_GEO_HOST"); err != nil {
		t.Fatalf("unset: %v", err)
	}

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Geo.Host != "geo-from-dotenv" {
		t.Fatalf("expected host from .env, got %q", cfg.Geo.Host)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	endpoint := EndpointConfig{Scheme: "http", Host: "localhost", Port: 8888}
	base := Config{
		Workers: 1,
		CTakes:  endpoint,
		Geo:     endpoint,
		HTTP:    HTTPConfig{Timeout: time.Second},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid workers",
			cfg: func() Config {
				c := base
				c.Workers = 0
				return c
			}(),
			want: "workers",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.HTTP.Timeout = 0
				return c
			}(),
			want: "http.timeout",
		},
		{
			name: "negative max attempts",
			cfg: func() Config {
				c := base
				c.Retry.MaxAttempts = -1
				return c
			}(),
			want: "retry.max_attempts",
		},
		{
			name: "negative rate limit",
			cfg: func() Config {
				c := base
				c.HTTP.RateLimit.RPS = -1
				return c
			}(),
			want: "http.rate_limit.rps",
		},
		{
			name: "bad scheme",
			cfg: func() Config {
				c := base
				c.CTakes.Scheme = "ftp"
				return c
			}(),
			want: "ctakes.scheme",
		},
		{
			name: "bad port",
			cfg: func() Config {
				c := base
				c.Geo.Port = 70000
				return c
			}(),
			want: "geo.port",
		},
		{
			name: "relative api",
			cfg: func() Config {
				c := base
				c.Geo.API = "/rmeta"
				return c
			}(),
			want: "geo.api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if err := base.RequireIO(); err == nil || !strings.Contains(err.Error(), "input_file") {
		t.Fatalf("expected input_file error, got %v", err)
	}
}
