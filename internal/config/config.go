package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/llm"
	"github.com/efebarandurmaz/bestiary/internal/observability"
	"github.com/efebarandurmaz/bestiary/internal/pricing"
)

// EnvPrefix prefixes every environment override, e.g. BESTIARY_LLM_API_KEY.
const EnvPrefix = "BESTIARY"

// Config holds all application configuration.
type Config struct {
	LLM        LLMConfig         `mapstructure:"llm"`
	Generation bestiary.Settings `mapstructure:"generation"`
	Pricing    PricingConfig     `mapstructure:"pricing"`
	Server     ServerConfig      `mapstructure:"server"`
	Tracing    TracingConfig     `mapstructure:"tracing"`
	Audit      AuditConfig       `mapstructure:"audit"`
	Log        LogConfig         `mapstructure:"log"`
}

type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// Client-side pacing; 0 disables it.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type PricingConfig struct {
	DefaultModel string                   `mapstructure:"default_model"`
	Models       map[string]pricing.Price `mapstructure:"models"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
	HistorySize     int           `mapstructure:"history_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Environment string  `mapstructure:"environment"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	d := bestiary.DefaultSettings()
	pc := llm.DefaultProviderConfig()

	v.SetDefault("llm.provider", pc.Provider)
	v.SetDefault("llm.model", pc.Model)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", pc.Timeout)
	v.SetDefault("llm.requests_per_minute", 0)
	v.SetDefault("llm.burst", 1)

	v.SetDefault("generation.creature_type", d.CreatureType)
	v.SetDefault("generation.habitat", d.Habitat)
	v.SetDefault("generation.role", d.Role)
	v.SetDefault("generation.element", d.Element)
	v.SetDefault("generation.danger_level", d.DangerLevel)
	v.SetDefault("generation.model", d.Model)
	v.SetDefault("generation.temperature", d.Temperature)

	v.SetDefault("pricing.default_model", pricing.ModelSonnet)

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.history_size", 50)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "stderr")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns the configuration used when no file or environment is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider == "anthropic" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty (set %s_LLM_API_KEY)", c.LLM.Provider, EnvPrefix))
	}
	if (c.LLM.Provider == "proxy" || c.LLM.Provider == "custom") && c.LLM.BaseURL == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' needs base_url", c.LLM.Provider))
	}
	if c.LLM.RequestsPerMinute < 0 {
		warnings = append(warnings, fmt.Sprintf("LLM requests_per_minute %d is negative", c.LLM.RequestsPerMinute))
	}

	if err := c.Generation.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			warnings = append(warnings, "generation defaults: "+line)
		}
	}

	if _, err := c.PriceTable(); err != nil {
		warnings = append(warnings, err.Error())
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log level '%s', using info", c.Log.Level))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	return warnings
}

// ProviderConfig returns the settings for the LLM factory.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:          c.LLM.Provider,
		APIKey:            c.LLM.APIKey,
		Model:             c.LLM.Model,
		BaseURL:           c.LLM.BaseURL,
		Timeout:           c.LLM.Timeout,
		RequestsPerMinute: c.LLM.RequestsPerMinute,
		Burst:             c.LLM.Burst,
	}
}

// PriceTable builds the price table with configured overrides.
func (c *Config) PriceTable() (*pricing.Table, error) {
	return pricing.NewTable(c.Pricing.Models, c.Pricing.DefaultModel)
}

// TracingSetup returns the OpenTelemetry settings.
func (c *Config) TracingSetup(version string) *observability.TracingConfig {
	tc := observability.DefaultTracingConfig()
	tc.ServiceVersion = version
	tc.OTLPEndpoint = c.Tracing.Endpoint
	tc.Insecure = c.Tracing.Insecure
	tc.SampleRate = c.Tracing.SampleRate
	tc.Environment = c.Tracing.Environment
	return tc
}

// AuditSetup returns the audit logger settings.
func (c *Config) AuditSetup() *observability.AuditConfig {
	return &observability.AuditConfig{
		Enabled:    c.Audit.Enabled,
		OutputPath: c.Audit.Path,
	}
}

// LoadDotEnv loads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from file and environment. An empty path or a
// missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Warning: config file %s not found, using defaults\n", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
