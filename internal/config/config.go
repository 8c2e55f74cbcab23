package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/city-pulse/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Generate GenerateConfig `yaml:"generate" mapstructure:"generate"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver          string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	Pool            db.PoolConfig `yaml:"pool" mapstructure:"pool"`
	ConnectAttempts int           `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// GenerateConfig configures the synthetic dataset run.
type GenerateConfig struct {
	Seed      uint64 `yaml:"seed" mapstructure:"seed"`
	Dining    int    `yaml:"dining" mapstructure:"dining"`
	Leisure   int    `yaml:"leisure" mapstructure:"leisure"`
	Days      int    `yaml:"days" mapstructure:"days"`
	Alerts    int    `yaml:"alerts" mapstructure:"alerts"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	// Profile is a YAML profile path. Empty uses the built-in city.
	Profile   string `yaml:"profile" mapstructure:"profile"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Format    string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml, and CITYPULSE_* environment
// variables, in increasing precedence.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML file in place of ./config.yaml. The
// file must exist when path is set.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("CITYPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.pool.max_conns", 0)
	v.SetDefault("store.pool.min_conns", 0)
	v.SetDefault("store.connect_attempts", 3)
	v.SetDefault("generate.seed", 0)
	v.SetDefault("generate.dining", 5000)
	v.SetDefault("generate.leisure", 300)
	v.SetDefault("generate.days", 7)
	v.SetDefault("generate.alerts", 30)
	v.SetDefault("generate.batch_size", 1000)
	v.SetDefault("generate.profile", "")
	v.SetDefault("generate.output_dir", "data")
	v.SetDefault("generate.format", "db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.rate_burst", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of "db",
// "generate", or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	needDB := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		case "sqlite":
		default:
			errs = append(errs, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "db":
		needDB()
	case "generate":
		g := c.Generate
		if g.Dining < 0 || g.Leisure < 0 || g.Days < 0 || g.Alerts < 0 {
			errs = append(errs, "generate counts must be >= 0")
		}
		if g.BatchSize <= 0 {
			errs = append(errs, "generate.batch_size must be > 0")
		}
	case "serve":
		needDB()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
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
