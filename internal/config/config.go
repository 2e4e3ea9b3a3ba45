package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. SNAPAPI_API_KEY.
const EnvPrefix = "SNAPAPI"

// Config holds the full CLI configuration.
type Config struct {
	API     APIConfig     `yaml:"api" mapstructure:"api"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
	Poll    PollConfig    `yaml:"poll" mapstructure:"poll"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// APIConfig holds SnapAPI credentials and client tuning.
type APIConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// Timeout returns the HTTP timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetryConfig controls retries of transient API failures.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig controls the per-endpoint circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// PollConfig controls how batch and async jobs are awaited.
type PollConfig struct {
	InitialMs   int `yaml:"initial_ms" mapstructure:"initial_ms"`
	CapMs       int `yaml:"cap_ms" mapstructure:"cap_ms"`
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OutputConfig selects where captures are written. S3 is used when S3Bucket is set.
type OutputConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	S3Bucket string `yaml:"s3_bucket" mapstructure:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix" mapstructure:"s3_prefix"`
}

// StoreConfig configures the job ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the webhook receiver.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	WebhookSecret  string   `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures client-side fan-out in the capture command.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LoadFile reads configuration from path, the environment (SNAPAPI_*) and
// .env. An empty path searches the working directory and
// $HOME/.config/snapapi.
func LoadFile(path string) (*Config, error) {
	// .env never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("snapapi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "snapapi"))
		}
	}

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.key", "")
	v.SetDefault("api.base_url", "https://api.snapapi.pics")
	v.SetDefault("api.timeout_secs", 60)
	v.SetDefault("api.user_agent", "")
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.rate_burst", 1)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("poll.initial_ms", 2000)
	v.SetDefault("poll.cap_ms", 15000)
	v.SetDefault("poll.timeout_secs", 300)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.s3_bucket", "")
	v.SetDefault("output.s3_prefix", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "snapapi.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.webhook_secret", "")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Modes accepted by Validate.
const (
	ModeAPI   = "api"
	ModeServe = "serve"
	ModeLocal = "local"
)

// Validate checks the settings a command mode depends on. ModeAPI needs a
// key, ModeServe needs a port and a ledger, ModeLocal only the shared checks.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeAPI:
		if strings.TrimSpace(c.API.Key) == "" {
			errs = append(errs, "api.key is required (set SNAPAPI_API_KEY)")
		}
		if c.API.TimeoutSecs <= 0 {
			errs = append(errs, "api.timeout_secs must be > 0")
		}
		if c.API.RateLimit < 0 {
			errs = append(errs, "api.rate_limit must be >= 0")
		}
		if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 50 {
			errs = append(errs, "batch.max_concurrent must be between 1 and 50")
		}
		if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
			errs = append(errs, "retry.jitter_fraction must be between 0 and 1")
		}
	case ModeServe:
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Store.Driver == "none" {
			errs = append(errs, "store.driver must not be none when serving")
		}
	case ModeLocal:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for driver "+c.Store.Driver)
		}
	case "none":
	default:
		errs = append(errs, "store.driver must be one of sqlite, postgres, none")
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
