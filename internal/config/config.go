package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`
	Score  ScoreConfig  `yaml:"score" mapstructure:"score"`
	Probe  ProbeConfig  `yaml:"probe" mapstructure:"probe"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// IngestConfig configures the roster capture.
type IngestConfig struct {
	RosterPath  string  `yaml:"roster_path" mapstructure:"roster_path"`
	CacheDir    string  `yaml:"cache_dir" mapstructure:"cache_dir"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	OutputPath  string  `yaml:"output_path" mapstructure:"output_path"`
}

// ScoreConfig configures the scoring run.
type ScoreConfig struct {
	PolicyPath string `yaml:"policy_path" mapstructure:"policy_path"`
}

// ProbeConfig configures the ops probe artifact.
type ProbeConfig struct {
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEVHEALTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "devhealth.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8090)
	v.SetDefault("ingest.roster_path", "data/roster.csv")
	v.SetDefault("ingest.cache_dir", "data/cache")
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.timeout_secs", 30)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.rate_per_sec", 2)
	v.SetDefault("ingest.output_path", "data/developer_ratios_history.json")
	v.SetDefault("probe.output_path", "ops/probe.json")

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

// Validate checks the fields required for the given command mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch strings.ToLower(c.Store.Driver) {
	case "", "sqlite":
	case "postgres", "postgresql":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "ingest":
		if c.Ingest.RosterPath == "" {
			problems = append(problems, "ingest.roster_path is required")
		}
		if c.Ingest.Concurrency < 1 || c.Ingest.Concurrency > 16 {
			problems = append(problems, "ingest.concurrency must be between 1 and 16")
		}
		if c.Ingest.RatePerSec <= 0 {
			problems = append(problems, "ingest.rate_per_sec must be > 0")
		}
	case "score":
	case "probe":
		if c.Probe.OutputPath == "" {
			problems = append(problems, "probe.output_path is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
