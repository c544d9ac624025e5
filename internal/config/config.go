// Package config loads ledgerapi configuration from file, environment, and defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/ledgerapi/internal/cache"
	"github.com/conduit-lang/ledgerapi/internal/jsonapi"
	"github.com/conduit-lang/ledgerapi/internal/store"
	"github.com/conduit-lang/ledgerapi/internal/web/query"
	"github.com/conduit-lang/ledgerapi/internal/web/ratelimit"
)

// FileName is the config file looked up in the working directory
const FileName = "ledgerapi.yaml"

// EnvPrefix prefixes environment overrides, e.g. LEDGERAPI_SERVER_PORT
const EnvPrefix = "LEDGERAPI"

// Config represents the ledgerapi configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" yaml:"ratelimit"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// DebugAddr enables the pprof listener when set, e.g. "127.0.0.1:6060"
	DebugAddr string `mapstructure:"debug_addr" yaml:"debug_addr"`
}

// APIConfig represents document rendering configuration
type APIConfig struct {
	BaseURL          string `mapstructure:"base_url" yaml:"base_url"`
	HostMaintainerID string `mapstructure:"host_maintainer_id" yaml:"host_maintainer_id"`
	DefaultPageSize  int    `mapstructure:"default_page_size" yaml:"default_page_size"`
	MaxPageSize      int    `mapstructure:"max_page_size" yaml:"max_page_size"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"`
	URL             string        `mapstructure:"url" yaml:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// CacheConfig represents document cache configuration
type CacheConfig struct {
	Driver        string        `mapstructure:"driver" yaml:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password,omitempty"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// AuthConfig represents bearer token configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// RateLimitConfig represents per-client throttling. The redis driver uses the
// cache.redis_* connection settings.
type RateLimitConfig struct {
	Driver string        `mapstructure:"driver" yaml:"driver"`
	Limit  int           `mapstructure:"limit" yaml:"limit"`
	Window time.Duration `mapstructure:"window" yaml:"window"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			BaseURL:         "http://localhost:3000",
			DefaultPageSize: 10,
			MaxPageSize:     500,
		},
		Database: DatabaseConfig{
			Driver:          "pgx",
			URL:             "postgres://localhost:5432/ledger?sslmode=disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Cache: CacheConfig{
			Driver:    cache.DriverMemory,
			RedisAddr: "localhost:6379",
			TTL:       5 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Driver: ratelimit.DriverNone,
			Limit:  100,
			Window: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.debug_addr", d.Server.DebugAddr)
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.host_maintainer_id", d.API.HostMaintainerID)
	v.SetDefault("api.default_page_size", d.API.DefaultPageSize)
	v.SetDefault("api.max_page_size", d.API.MaxPageSize)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("cache.driver", d.Cache.Driver)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("ratelimit.driver", d.RateLimit.Driver)
	v.SetDefault("ratelimit.limit", d.RateLimit.Limit)
	v.SetDefault("ratelimit.window", d.RateLimit.Window)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the config file at path, or ledgerapi.yaml in the working
// directory when path is empty, then applies LEDGERAPI_* environment overrides.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port))
	}
	if c.Server.DebugAddr != "" {
		if _, _, err := net.SplitHostPort(c.Server.DebugAddr); err != nil {
			errs = append(errs, fmt.Errorf("server.debug_addr: %w", err))
		} else if c.Server.DebugAddr == c.Addr() {
			errs = append(errs, errors.New("server.debug_addr must differ from the API address"))
		}
	}

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if err := c.Settings().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	}
	if c.API.MaxPageSize < 1 {
		errs = append(errs, fmt.Errorf("api.max_page_size must be positive, got: %d", c.API.MaxPageSize))
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		errs = append(errs, fmt.Errorf("api.default_page_size must be between 1 and api.max_page_size, got: %d", c.API.DefaultPageSize))
	}

	if _, err := store.DialectFor(c.Database.Driver); err != nil {
		errs = append(errs, fmt.Errorf("database.driver: %w", err))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}

	switch c.Cache.Driver {
	case cache.DriverNone, cache.DriverMemory:
	case cache.DriverRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.driver must be one of none, memory, redis, got: %s", c.Cache.Driver))
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters"))
	}

	switch c.RateLimit.Driver {
	case ratelimit.DriverNone:
	case ratelimit.DriverMemory, ratelimit.DriverRedis:
		if c.RateLimit.Limit < 1 {
			errs = append(errs, fmt.Errorf("ratelimit.limit must be positive, got: %d", c.RateLimit.Limit))
		}
		if c.RateLimit.Window <= 0 {
			errs = append(errs, fmt.Errorf("ratelimit.window must be positive, got: %s", c.RateLimit.Window))
		}
		if c.RateLimit.Driver == ratelimit.DriverRedis && c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis rate limiter"))
		}
	default:
		errs = append(errs, fmt.Errorf("ratelimit.driver must be one of none, memory, redis, got: %s", c.RateLimit.Driver))
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got: %s", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Settings returns the link settings of rendered documents
func (c *Config) Settings() jsonapi.Settings {
	return jsonapi.Settings{
		APIBaseURL:       c.API.BaseURL,
		HostMaintainerID: c.API.HostMaintainerID,
	}
}

// StoreOptions returns the database connection options
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:          c.Database.Driver,
		URL:             c.Database.URL,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// CacheOptions returns the document cache options
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Driver:        c.Cache.Driver,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
		TTL:           c.Cache.TTL,
	}
}

// RateLimitOptions returns the rate limiter options
func (c *Config) RateLimitOptions() ratelimit.Options {
	return ratelimit.Options{
		Driver:        c.RateLimit.Driver,
		Limit:         c.RateLimit.Limit,
		Window:        c.RateLimit.Window,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
	}
}

// PageLimits returns the page[size] bounds
func (c *Config) PageLimits() query.PageLimits {
	return query.PageLimits{
		DefaultSize: c.API.DefaultPageSize,
		MaxSize:     c.API.MaxPageSize,
	}
}
