package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Discogs   DiscogsConfig   `yaml:"discogs" mapstructure:"discogs"`
	Acquire   AcquireConfig   `yaml:"acquire" mapstructure:"acquire"`
	Image     ImageConfig     `yaml:"image" mapstructure:"image"`
	Models    ModelsConfig    `yaml:"models" mapstructure:"models"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DiscogsConfig holds Discogs API settings.
type DiscogsConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// AcquireConfig bounds each structured-output acquisition.
type AcquireConfig struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`
	Budget         time.Duration `yaml:"budget" mapstructure:"budget"`
	PreviewBytes   int           `yaml:"preview_bytes" mapstructure:"preview_bytes"`
}

// ImageConfig bounds shelf photo and cover downloads.
type ImageConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	MaxBytes     int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// ModelsConfig lists the candidate models per endpoint, in fallback order.
type ModelsConfig struct {
	Vision    []acquire.Candidate `yaml:"vision" mapstructure:"vision"`
	Intent    []acquire.Candidate `yaml:"intent" mapstructure:"intent"`
	Recommend []acquire.Candidate `yaml:"recommend" mapstructure:"recommend"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VINYLSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secret names used by existing deployments.
	bindEnv(v, "gemini.api_key", "VINYLSCOUT_GEMINI_API_KEY", "GEMINI_API_KEY")
	bindEnv(v, "anthropic.api_key", "VINYLSCOUT_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	bindEnv(v, "discogs.token", "VINYLSCOUT_DISCOGS_TOKEN", "DISCOGS_TOKEN")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 70*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("discogs.base_url", "https://api.discogs.com")
	v.SetDefault("discogs.user_agent", "VinylScout/1.0")
	v.SetDefault("acquire.attempt_timeout", acquire.DefaultAttemptTimeout)
	v.SetDefault("acquire.budget", acquire.DefaultBudget)
	v.SetDefault("acquire.preview_bytes", acquire.DefaultPreviewBytes)
	v.SetDefault("image.fetch_timeout", 15*time.Second)
	v.SetDefault("image.max_bytes", 20<<20)
	v.SetDefault("models.vision", []map[string]any{
		{"model": "gemini-2.0-flash", "temperature": 0.1, "max_output_tokens": 32768},
		{"model": "gemini-3-flash-preview", "temperature": 0.1, "max_output_tokens": 32768},
	})
	v.SetDefault("models.intent", []map[string]any{
		{"model": "gemini-2.0-flash", "temperature": 0.3, "max_output_tokens": 500},
	})
	v.SetDefault("models.recommend", []map[string]any{
		{"model": "gemini-2.0-flash", "temperature": 0.7, "max_output_tokens": 600},
	})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func bindEnv(v *viper.Viper, key string, envs ...string) {
	// BindEnv only fails when called without a key.
	_ = v.BindEnv(append([]string{key}, envs...)...)
}

// Validate checks the settings a command needs. Missing provider
// credentials are not errors: the affected endpoints report them per request.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Acquire.AttemptTimeout <= 0 {
			errs = append(errs, "acquire.attempt_timeout must be > 0")
		}
		if c.Acquire.Budget < 0 {
			errs = append(errs, "acquire.budget must be >= 0")
		}
		if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < c.Acquire.Budget {
			errs = append(errs, "server.write_timeout must cover acquire.budget")
		}
		for name, list := range map[string][]acquire.Candidate{
			"vision":    c.Models.Vision,
			"intent":    c.Models.Intent,
			"recommend": c.Models.Recommend,
		} {
			for i, cand := range list {
				if cand.Model == "" {
					errs = append(errs, fmt.Sprintf("models.%s[%d].model is required", name, i))
				}
			}
		}
	case "decode":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
