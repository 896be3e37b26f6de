// Package config loads process-wide configuration via viper, following
// the nested mapstructure-tagged layout the rest of the example pack
// uses for its application.yaml.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"choch_detector/internal/domain"
)

// Config is the top-level application configuration, loaded from
// application.<env>.yaml plus environment overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Features FeatureFlags   `mapstructure:"features"`
}

// ServerConfig is the ops HTTP surface's listen configuration.
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeout int    `mapstructure:"write_timeout_seconds"`
}

// EngineConfig holds the detector's tunable options.
type EngineConfig struct {
	Symbols          []string `mapstructure:"symbols"`
	Timeframes       []string `mapstructure:"timeframes"`
	PivotLeft        int      `mapstructure:"pivot_left"`
	PivotRight       int      `mapstructure:"pivot_right"`
	KeepPivots       int      `mapstructure:"keep_pivots"`
	UseVariantFilter bool     `mapstructure:"use_variant_filter"`
	AllowPH1         bool     `mapstructure:"allow_ph1"`
	AllowPH2         bool     `mapstructure:"allow_ph2"`
	AllowPH3         bool     `mapstructure:"allow_ph3"`
	AllowPL1         bool     `mapstructure:"allow_pl1"`
	AllowPL2         bool     `mapstructure:"allow_pl2"`
	AllowPL3         bool     `mapstructure:"allow_pl3"`
	WindowSize       int      `mapstructure:"window_size"`
	ScanGraceSeconds int      `mapstructure:"scan_grace_seconds"`
	MaxWorkers       int      `mapstructure:"max_workers"`
}

// VariantFilter builds the domain.VariantFilter this configuration
// describes.
func (e EngineConfig) VariantFilter() domain.VariantFilter {
	return domain.VariantFilter{
		Enabled:  e.UseVariantFilter,
		AllowPH1: e.AllowPH1,
		AllowPH2: e.AllowPH2,
		AllowPH3: e.AllowPH3,
		AllowPL1: e.AllowPL1,
		AllowPL2: e.AllowPL2,
		AllowPL3: e.AllowPL3,
	}
}

// ScanGrace returns ScanGraceSeconds as a time.Duration.
func (e EngineConfig) ScanGrace() time.Duration {
	return time.Duration(e.ScanGraceSeconds) * time.Second
}

// DatabaseConfig configures the MySQL connection used for alert
// persistence.
type DatabaseConfig struct {
	Host                  string        `mapstructure:"host"`
	Port                  string        `mapstructure:"port"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Name                  string        `mapstructure:"name"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	MaxOpenConnections    int           `mapstructure:"max_open_connections"`
	MaxConnectionLifeTime time.Duration `mapstructure:"max_connection_lifetime"`
	MaxConnectionIdleTime time.Duration `mapstructure:"max_connection_idletime"`
	DisableTLS            bool          `mapstructure:"disable_tls"`
	Debug                 bool          `mapstructure:"debug"`
}

// RedisConfig configures the second-tier candle/result cache.
type RedisConfig struct {
	Host                  string        `mapstructure:"host"`
	Port                  string        `mapstructure:"port"`
	Database              int           `mapstructure:"database"`
	IdleConnectionTimeout time.Duration `mapstructure:"idle_connection_timeout"`
	ConnectTimeout        time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	WriteTimeout          time.Duration `mapstructure:"write_timeout"`
	PoolSize              int           `mapstructure:"pool_size"`
	MaxRetry              int           `mapstructure:"max_retry"`
	MinIdleConns          int           `mapstructure:"min_idle_conns"`
	TTL                   time.Duration `mapstructure:"ttl"`
	Disable               bool          `mapstructure:"disable"`
}

// ExchangeConfig configures the reference REST fetcher's OAuth2 client
// credentials and fetch timeout.
type ExchangeConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Load reads application.<env>.yaml from the working directory plus
// CHOCH_-prefixed environment overrides, and unmarshals into Config,
// applying defaults for anything left unset.
func Load(env string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("application." + env)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CHOCH")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling config")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8085")
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 10)

	v.SetDefault("engine.symbols", []string{"ALL"})
	v.SetDefault("engine.timeframes", []string{"5m", "15m", "30m", "1h"})
	v.SetDefault("engine.pivot_left", 1)
	v.SetDefault("engine.pivot_right", 1)
	v.SetDefault("engine.keep_pivots", 200)
	v.SetDefault("engine.use_variant_filter", true)
	v.SetDefault("engine.allow_ph1", true)
	v.SetDefault("engine.allow_ph2", true)
	v.SetDefault("engine.allow_ph3", true)
	v.SetDefault("engine.allow_pl1", true)
	v.SetDefault("engine.allow_pl2", true)
	v.SetDefault("engine.allow_pl3", true)
	v.SetDefault("engine.window_size", 50)
	v.SetDefault("engine.scan_grace_seconds", 30)
	v.SetDefault("engine.max_workers", 8)

	v.SetDefault("features.use_variant_filter", true)
	v.SetDefault("features.insert_synthetic_pivots", true)

	v.SetDefault("database.max_idle_connections", 10)
	v.SetDefault("database.max_open_connections", 50)

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.ttl", 30*time.Second)

	v.SetDefault("exchange.timeout", 5*time.Second)
}
