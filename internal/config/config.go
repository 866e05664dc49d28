// Package config loads and validates extractor configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/tika-extractor/internal/policy/ratelimit"
	"github.com/JakeFAU/tika-extractor/internal/retry"
)

// EnvPrefix namespaces the extractor's own environment variables.
const EnvPrefix = "ANNOTATOR"

// Pipeline names, in the order records are submitted to them.
const (
	PipelineGeo    = "geo"
	PipelineCTakes = "ctakes"
)

// Config captures all extractor configuration knobs loaded via Viper.
type Config struct {
	InputFile string         `mapstructure:"input_file"`
	OutputDir string         `mapstructure:"output_dir"`
	Workers   int            `mapstructure:"workers"`
	CTakes    EndpointConfig `mapstructure:"ctakes"`
	Geo       EndpointConfig `mapstructure:"geo"`
	HTTP      HTTPConfig     `mapstructure:"http"`
	Retry     retry.Config   `mapstructure:"retry"`
	Logging   LoggingConfig  `mapstructure:"logging"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
	Progress  ProgressConfig `mapstructure:"progress"`
}

// EndpointConfig locates one Tika server. API, when set, overrides the
// scheme/host/port triple.
type EndpointConfig struct {
	Scheme string `mapstructure:"scheme"`
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	API    string `mapstructure:"api"`
}

// HTTPConfig tunes the shared Tika client.
type HTTPConfig struct {
	Timeout         time.Duration    `mapstructure:"timeout"`
	MaxConnsPerHost int              `mapstructure:"max_conns_per_host"`
	RateLimit       ratelimit.Config `mapstructure:"rate_limit"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the optional metrics listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ProgressConfig controls the periodic progress log.
type ProgressConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// URL returns the endpoint base URI.
func (e EndpointConfig) URL() string {
	if e.API != "" {
		return e.API
	}
	return fmt.Sprintf("%s://%s", e.Scheme, net.JoinHostPort(e.Host, strconv.Itoa(e.Port)))
}

func (e EndpointConfig) validate(name string) error {
	if e.API != "" {
		u, err := url.Parse(e.API)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s.api must be an absolute URI, got %q", name, e.API)
		}
		return nil
	}
	if e.Scheme != "http" && e.Scheme != "https" {
		return fmt.Errorf("%s.scheme must be http or https, got %q", name, e.Scheme)
	}
	if e.Host == "" {
		return fmt.Errorf("%s.host must be set", name)
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("%s.port must be between 1 and 65535", name)
	}
	return nil
}

// New returns a Viper instance with defaults and environment bindings applied.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	bindTikaEnv(v)
	return v
}

// Load reads path (when set) into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDotEnv exports the variables in path into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 4)
	for _, name := range []string{PipelineCTakes, PipelineGeo} {
		v.SetDefault(name+".scheme", "http")
		v.SetDefault(name+".host", "localhost")
		v.SetDefault(name+".port", 8888)
		v.SetDefault(name+".api", "")
	}
	v.SetDefault("http.timeout", "600s")
	v.SetDefault("http.max_conns_per_host", 0)
	v.SetDefault("http.rate_limit.rps", 0)
	v.SetDefault("http.rate_limit.burst", 1)
	v.SetDefault("retry.max_attempts", 0)
	v.SetDefault("retry.backoff.enabled", false)
	v.SetDefault("retry.backoff.initial_interval", "500ms")
	v.SetDefault("retry.backoff.max_interval", "60s")
	v.SetDefault("retry.backoff.multiplier", 1.5)
	v.SetDefault("logging.development", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("progress.interval", "10s")
	v.SetDefault("input_file", "")
	v.SetDefault("output_dir", "")
}

// bindTikaEnv maps the TIKA_<PIPELINE>_<PART> variables onto their keys.
func bindTikaEnv(v *viper.Viper) {
	for _, name := range []string{PipelineCTakes, PipelineGeo} {
		for _, part := range []string{"scheme", "host", "port", "api"} {
			env := fmt.Sprintf("TIKA_%s_%s", strings.ToUpper(name), strings.ToUpper(part))
			_ = v.BindEnv(name+"."+part, env)
		}
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.MaxConnsPerHost < 0 {
		return fmt.Errorf("http.max_conns_per_host must be >= 0")
	}
	if c.HTTP.RateLimit.RPS < 0 {
		return fmt.Errorf("http.rate_limit.rps must be >= 0")
	}
	if c.Progress.Interval < 0 {
		return fmt.Errorf("progress.interval must be >= 0")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts must be >= 0")
	}
	if err := c.CTakes.validate(PipelineCTakes); err != nil {
		return err
	}
	return c.Geo.validate(PipelineGeo)
}

// RequireIO checks the settings a run needs on top of Validate.
func (c Config) RequireIO() error {
	if strings.TrimSpace(c.InputFile) == "" {
		return fmt.Errorf("input_file must be set")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir must be set")
	}
	return nil
}
