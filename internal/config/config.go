package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	Port     string `mapstructure:"port"`
	// Timezone is the default viewer location when a view does not name one.
	Timezone string `mapstructure:"timezone"`

	API   APIConfig   `mapstructure:"api"`
	Cache CacheConfig `mapstructure:"cache"`
	Views ViewsConfig `mapstructure:"views"`
	CORS  CORSConfig  `mapstructure:"cors"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// CacheConfig selects Redis when RedisAddr is set, process memory otherwise.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type ViewsConfig struct {
	IdleTTL   time.Duration `mapstructure:"idle_ttl"`
	SweepCron string        `mapstructure:"sweep_cron"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", "8080")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("api.base_url", "http://localhost:8081/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.breaker.max_requests", 1)
	v.SetDefault("api.breaker.interval", time.Minute)
	v.SetDefault("api.breaker.open_timeout", 30*time.Second)
	v.SetDefault("api.breaker.consecutive_failures", 5)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("views.idle_ttl", 30*time.Minute)
	v.SetDefault("views.sweep_cron", "@every 1m")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
}

// Load reads config.yaml from "." or "./config" when present and lets
// environment variables override any key (api.base_url -> API_BASE_URL).
func Load(paths ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	// env values arrive as one comma separated string
	cfg.CORS.AllowedOrigins = splitList(strings.Join(cfg.CORS.AllowedOrigins, ","))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an absolute url", c.API.BaseURL)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if c.Views.IdleTTL <= 0 {
		return errors.New("views.idle_ttl must be positive")
	}
	if _, err := cron.ParseStandard(c.Views.SweepCron); err != nil {
		return fmt.Errorf("views.sweep_cron: %w", err)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves Timezone. Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
