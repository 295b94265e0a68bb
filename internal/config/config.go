package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// configPtr holds the current config for thread-safe access.
var configPtr atomic.Pointer[Config]

// loadedConfigFile stores the path of the config file used by the last successful Load.
var loadedConfigFile atomic.Value

// Get returns the current Config. It is safe for concurrent use.
// If no config has been loaded yet, it returns the default config.
func Get() *Config {
	if c := configPtr.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	configPtr.Store(d)
	return d
}

// set stores a new Config atomically.
func set(cfg *Config) {
	configPtr.Store(cfg)
}

// Config is the top-level configuration for procgate.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"     toml:"server"`
	Database   DatabaseConfig    `mapstructure:"database"   toml:"database"`
	API        APIConfig         `mapstructure:"api"        toml:"api"`
	Tokens     TokensConfig      `mapstructure:"tokens"     toml:"tokens"`
	RateLimit  RateLimitConfig   `mapstructure:"rate_limit" toml:"rate_limit"`
	Procedures map[string]string `mapstructure:"procedures" toml:"procedures"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	BindAddress    string   `mapstructure:"bind_address"    toml:"bind_address"`
	Port           int      `mapstructure:"port"            toml:"port"`
	Mode           string   `mapstructure:"mode"            toml:"mode"`
	LogLevel       string   `mapstructure:"log_level"       toml:"log_level"`
	DataDir        string   `mapstructure:"data_dir"        toml:"data_dir"`
	ReadTimeout    int      `mapstructure:"read_timeout"    toml:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"   toml:"write_timeout"`
	IdleTimeout    int      `mapstructure:"idle_timeout"    toml:"idle_timeout"`
	MaxBodySize    int64    `mapstructure:"max_body_size"   toml:"max_body_size"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
}

// ExposeErrorDetails reports whether normalized database errors may be
// returned to callers. Only development mode exposes them.
func (s ServerConfig) ExposeErrorDetails() bool {
	return strings.EqualFold(s.Mode, ModeDevelopment)
}

// DatabaseConfig describes how to reach the database that owns the
// stored procedures.
type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver"                   toml:"driver"`
	Host                   string `mapstructure:"host"                     toml:"host"`
	Port                   int    `mapstructure:"port"                     toml:"port"`
	Instance               string `mapstructure:"instance"                 toml:"instance"`
	User                   string `mapstructure:"user"                     toml:"user"`
	Password               string `mapstructure:"password"                 toml:"password"`
	PasswordRef            string `mapstructure:"password_ref"             toml:"password_ref"`
	Name                   string `mapstructure:"name"                     toml:"name"`
	Encrypt                string `mapstructure:"encrypt"                  toml:"encrypt"`
	TrustServerCertificate bool   `mapstructure:"trust_server_certificate" toml:"trust_server_certificate"`
	AppName                string `mapstructure:"app_name"                 toml:"app_name"`
	SQLitePath             string `mapstructure:"sqlite_path"              toml:"sqlite_path"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"           toml:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"           toml:"max_idle_conns"`
	ConnMaxLifetime        int    `mapstructure:"conn_max_lifetime"        toml:"conn_max_lifetime"` // seconds
	ConnectTimeout         int    `mapstructure:"connect_timeout"          toml:"connect_timeout"`   // seconds
	SchemaRevision         int    `mapstructure:"schema_revision"          toml:"schema_revision"`
	BreakerThreshold       int    `mapstructure:"breaker_failure_threshold" toml:"breaker_failure_threshold"`
	BreakerResetSeconds    int    `mapstructure:"breaker_reset_seconds"    toml:"breaker_reset_seconds"`
}

// ConnectTimeoutDuration returns the connect timeout as a time.Duration.
func (d DatabaseConfig) ConnectTimeoutDuration() time.Duration {
	if d.ConnectTimeout <= 0 {
		return DefaultConnectTimeout * time.Second
	}
	return time.Duration(d.ConnectTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns the pool connection lifetime. Zero means
// connections are reused forever.
func (d DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	if d.ConnMaxLifetime <= 0 {
		return 0
	}
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// APIConfig controls handler-level behaviour.
type APIConfig struct {
	UpsertPrecheck bool `mapstructure:"upsert_precheck" toml:"upsert_precheck"`
}

// TokensConfig controls the token/cost estimates attached to token records.
type TokensConfig struct {
	EstimateEnabled bool `mapstructure:"estimate_enabled" toml:"estimate_enabled"`
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	Enabled    bool    `mapstructure:"enabled"     toml:"enabled"`
	Rate       float64 `mapstructure:"rate"        toml:"rate"` // requests per second
	Burst      int     `mapstructure:"burst"       toml:"burst"`
	MaxClients int     `mapstructure:"max_clients" toml:"max_clients"`
}

// Load reads configuration with the following precedence:
//  1. Environment variables (PROCGATE_ prefix, _ as separator, plus the
//     plain names PORT, APP_ENV, NODE_ENV and DB_*)
//  2. The file at explicitPath if non-empty
//  3. ~/.procgate/procgate.toml
//  4. ./procgate.toml
//  5. Built-in defaults
//
// .env and .env.local in the working directory are loaded into the process
// environment first. Any mode other than development runs as production.
// The loaded config is validated and stored in the global atomic pointer.
func Load(explicitPath string) (*Config, error) {
	if _, err := LoadDotEnv(".env", ".env.local"); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")

	setViperDefaults(v)

	v.SetEnvPrefix("PROCGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindPlainEnv(v); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".procgate"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("procgate")
	}

	if err := v.ReadInConfig(); err != nil {
		// If no config file exists we still proceed with defaults + env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if cf := v.ConfigFileUsed(); cf != "" {
		loadedConfigFile.Store(cf)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Server.DataDir = expandHome(cfg.Server.DataDir)
	cfg.Database.SQLitePath = expandHome(cfg.Database.SQLitePath)
	cfg.Server.Mode = normalizeMode(cfg.Server.Mode)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	set(cfg)
	return cfg, nil
}

// normalizeMode folds deployment environment names (staging, test, ...)
// onto the two modes the gateway knows.
func normalizeMode(mode string) string {
	if strings.EqualFold(strings.TrimSpace(mode), ModeDevelopment) {
		return ModeDevelopment
	}
	return ModeProduction
}

// bindPlainEnv maps the unprefixed variable names deployments already use
// onto config keys. The prefixed form still wins when both are set.
func bindPlainEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":       {"PROCGATE_SERVER_PORT", "PORT"},
		"server.mode":       {"PROCGATE_SERVER_MODE", "APP_ENV", "NODE_ENV"},
		"database.host":     {"PROCGATE_DATABASE_HOST", "DB_SERVER"},
		"database.port":     {"PROCGATE_DATABASE_PORT", "DB_PORT"},
		"database.user":     {"PROCGATE_DATABASE_USER", "DB_USER"},
		"database.password": {"PROCGATE_DATABASE_PASSWORD", "DB_PASSWORD"},
		"database.name":     {"PROCGATE_DATABASE_NAME", "DB_DATABASE"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return err
		}
	}
	return nil
}

// InitConfig writes the default configuration file to ~/.procgate/procgate.toml.
// If the file already exists it is not overwritten.
func InitConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("determining home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".procgate")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists: %s\n", path)
		return nil
	}

	data, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshalling default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Config written to %s\n", path)
	return nil
}

// ExportConfig writes the current config to the given path in TOML format.
// The plain-text database password is never written out.
func ExportConfig(path string) error {
	cfg := *Get()
	cfg.Database.Password = ""
	data, err := toml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ConfigFilePath returns the path of the config file that was loaded, or
// empty if no file was found.
func ConfigFilePath() string {
	if v, ok := loadedConfigFile.Load().(string); ok {
		return v
	}
	return ""
}

// setViperDefaults registers every known key with viper so that env var binding
// works for all fields even when no config file is present.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Server
	v.SetDefault("server.bind_address", d.Server.BindAddress)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.log_level", d.Server.LogLevel)
	v.SetDefault("server.data_dir", d.Server.DataDir)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	// Database
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.instance", d.Database.Instance)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.password_ref", d.Database.PasswordRef)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.encrypt", d.Database.Encrypt)
	v.SetDefault("database.trust_server_certificate", d.Database.TrustServerCertificate)
	v.SetDefault("database.app_name", d.Database.AppName)
	v.SetDefault("database.sqlite_path", d.Database.SQLitePath)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.connect_timeout", d.Database.ConnectTimeout)
	v.SetDefault("database.schema_revision", d.Database.SchemaRevision)
	v.SetDefault("database.breaker_failure_threshold", d.Database.BreakerThreshold)
	v.SetDefault("database.breaker_reset_seconds", d.Database.BreakerResetSeconds)

	// API
	v.SetDefault("api.upsert_precheck", d.API.UpsertPrecheck)

	// Tokens
	v.SetDefault("tokens.estimate_enabled", d.Tokens.EstimateEnabled)

	// RateLimit
	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.rate", d.RateLimit.Rate)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	v.SetDefault("rate_limit.max_clients", d.RateLimit.MaxClients)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
