package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Cfg holds the configuration loaded by LoadConfig.
var Cfg *Config

// Config mirrors the layout of config.yaml.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Season    SeasonConfig    `mapstructure:"season"`
	Watermark WatermarkConfig `mapstructure:"watermark"`
	Likes     LikesConfig     `mapstructure:"likes"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Mode         string     `mapstructure:"mode"`
	Address      string     `mapstructure:"address"`
	Cors         CorsConfig `mapstructure:"cors"`
	CookieSecret string     `mapstructure:"cookieSecret"`
}

type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig selects the counter store backend.
type DatabaseConfig struct {
	Driver           string         `mapstructure:"driver"`
	Sqlite           SqliteConfig   `mapstructure:"sqlite"`
	Postgres         PostgresConfig `mapstructure:"postgres"`
	OperationTimeout time.Duration  `mapstructure:"operationTimeout"`
	MaxOpenConns     int            `mapstructure:"maxOpenConns"`
}

type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig configures the rank index. When Enabled is false ranks are
// always counted against the database.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SeasonConfig picks exactly one boundary policy for the deployment.
type SeasonConfig struct {
	Policy     string        `mapstructure:"policy"`
	Timezone   string        `mapstructure:"timezone"`
	Schedule   string        `mapstructure:"schedule"`
	Scheduler  bool          `mapstructure:"scheduler"`
	BatchSize  int           `mapstructure:"batchSize"`
	JobTimeout time.Duration `mapstructure:"jobTimeout"`
}

// WatermarkConfig drives image downloads. An empty AllowedHosts lets any
// host through as long as it resolves to a public address.
type WatermarkConfig struct {
	Text         string        `mapstructure:"text"`
	FontPath     string        `mapstructure:"fontPath"`
	FetchTimeout time.Duration `mapstructure:"fetchTimeout"`
	AllowedHosts []string      `mapstructure:"allowedHosts"`
}

// LikesConfig throttles like toggles per client. Zero MaxPerWindow turns
// the limiter off.
type LikesConfig struct {
	MaxPerWindow int           `mapstructure:"maxPerWindow"`
	Window       time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"

	PolicyWeekly  = "weekly"
	PolicyMonthly = "monthly"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", DriverSqlite)
	v.SetDefault("database.sqlite.path", "season.db")
	v.SetDefault("database.operationTimeout", 5*time.Second)
	v.SetDefault("database.maxOpenConns", 10)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.address", "localhost:6379")

	v.SetDefault("season.policy", PolicyWeekly)
	v.SetDefault("season.timezone", "Asia/Kolkata")
	v.SetDefault("season.scheduler", true)
	v.SetDefault("season.batchSize", 400)
	v.SetDefault("season.jobTimeout", 5*time.Minute)

	v.SetDefault("watermark.text", "Imagynex.AI")
	v.SetDefault("watermark.fetchTimeout", 15*time.Second)

	v.SetDefault("likes.maxPerWindow", 300)
	v.SetDefault("likes.window", time.Hour)

	v.SetDefault("log.mode", "prod")
}

// LoadConfig reads config.yaml from ./config or the working directory, applies
// environment overrides (SEASON_POLICY=monthly etc.) and validates the result.
// A missing file is not an error; defaults and the environment are enough to run.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Cfg = &cfg
	return Cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSqlite:
		if c.Database.Sqlite.Path == "" {
			return errors.New("database.sqlite.path is required")
		}
	case DriverPostgres:
		if c.Database.Postgres.DSN == "" {
			return errors.New("database.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	switch c.Season.Policy {
	case PolicyWeekly, PolicyMonthly:
	default:
		return fmt.Errorf("unsupported season policy: %q", c.Season.Policy)
	}

	if _, err := c.Season.Location(); err != nil {
		return err
	}
	if c.Season.Schedule != "" {
		if _, err := cron.ParseStandard(c.Season.Schedule); err != nil {
			return fmt.Errorf("invalid season.schedule %q: %w", c.Season.Schedule, err)
		}
	}
	if c.Season.BatchSize <= 0 {
		return errors.New("season.batchSize must be positive")
	}
	if c.Likes.MaxPerWindow < 0 || (c.Likes.MaxPerWindow > 0 && c.Likes.Window <= 0) {
		return errors.New("likes.window must be positive when likes.maxPerWindow is set")
	}
	if c.Database.OperationTimeout <= 0 {
		return errors.New("database.operationTimeout must be positive")
	}
	return nil
}

// Location resolves the season timezone.
func (s SeasonConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid season.timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
