// Package config loads service configuration from defaults, an optional
// config file, a .env file and WEIGHBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"weighbridge/internal/core/numerator"
)

// EnvPrefix namespaces environment overrides, e.g. WEIGHBRIDGE_DATABASE_DSN.
const EnvPrefix = "WEIGHBRIDGE"

// Storage modes.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Weighing WeighingConfig `mapstructure:"weighing"`
}

type AppConfig struct {
	Port            int           `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	Storage         string        `mapstructure:"storage"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig: an empty Addr selects the in-process cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	ReportTTL time.Duration `mapstructure:"report_ttl"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type WeighingConfig struct {
	// ToleranceKg is the allowed gap between exact and expected weight.
	ToleranceKg string `mapstructure:"tolerance_kg"`
	// NumeratorStrategy is "strict" or "cached".
	NumeratorStrategy string `mapstructure:"numerator_strategy"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Tolerance parses the configured tolerance.
func (c Config) Tolerance() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Weighing.ToleranceKg)
}

// Strategy resolves the configured numbering strategy.
func (c Config) Strategy() numerator.Strategy {
	return numerator.ParseStrategy(c.Weighing.NumeratorStrategy)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.env", "development")
	v.SetDefault("app.storage", StoragePostgres)
	v.SetDefault("app.shutdown_timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.report_ttl", time.Minute)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("weighing.tolerance_kg", "50")
	v.SetDefault("weighing.numerator_strategy", "strict")
}

// Load reads configuration. configPath may be empty; a missing .env or
// config file is not an error.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("weighbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/weighbridge")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.App.Storage {
	case StoragePostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database.dsn is required for postgres storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("app.storage must be %q or %q, got %q", StoragePostgres, StorageMemory, c.App.Storage)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required")
	}
	tolerance, err := c.Tolerance()
	if err != nil {
		return fmt.Errorf("weighing.tolerance_kg: %w", err)
	}
	if tolerance.IsNegative() {
		return errors.New("weighing.tolerance_kg cannot be negative")
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port out of range: %d", c.App.Port)
	}
	return nil
}
