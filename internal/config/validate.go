package config

import (
	"fmt"
	"strings"
)

// validate checks the Config for invalid or out-of-range values.
// It returns a combined error if any checks fail.
func validate(cfg *Config) error {
	var errs []string

	// Server validation
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if !isValidEnum(cfg.Server.Mode, ValidModes) {
		errs = append(errs, fmt.Sprintf("server.mode must be one of %v, got %q", ValidModes, cfg.Server.Mode))
	}
	if !isValidEnum(cfg.Server.LogLevel, ValidLogLevels) {
		errs = append(errs, fmt.Sprintf("server.log_level must be one of %v, got %q", ValidLogLevels, cfg.Server.LogLevel))
	}
	if cfg.Server.DataDir == "" {
		errs = append(errs, "server.data_dir must not be empty")
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.read_timeout must be non-negative, got %d", cfg.Server.ReadTimeout))
	}
	if cfg.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.write_timeout must be non-negative, got %d", cfg.Server.WriteTimeout))
	}
	if cfg.Server.IdleTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.idle_timeout must be non-negative, got %d", cfg.Server.IdleTimeout))
	}
	if cfg.Server.MaxBodySize < 0 {
		errs = append(errs, fmt.Sprintf("server.max_body_size must be non-negative, got %d", cfg.Server.MaxBodySize))
	}

	// Database validation
	switch strings.ToLower(cfg.Database.Driver) {
	case "sqlserver":
		if cfg.Database.Host == "" {
			errs = append(errs, "database.host must be set for the sqlserver driver")
		}
		if cfg.Database.Name == "" {
			errs = append(errs, "database.name must be set for the sqlserver driver")
		}
		if cfg.Database.Port < 0 || cfg.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be between 0 and 65535, got %d", cfg.Database.Port))
		}
		if !isValidEnum(cfg.Database.Encrypt, ValidEncryptModes) {
			errs = append(errs, fmt.Sprintf("database.encrypt must be one of %v, got %q", ValidEncryptModes, cfg.Database.Encrypt))
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			errs = append(errs, "database.sqlite_path must be set for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver must be one of %v, got %q", ValidDrivers, cfg.Database.Driver))
	}
	if cfg.Database.MaxOpenConns < 0 {
		errs = append(errs, fmt.Sprintf("database.max_open_conns must be non-negative, got %d", cfg.Database.MaxOpenConns))
	}
	if cfg.Database.MaxIdleConns < 0 {
		errs = append(errs, fmt.Sprintf("database.max_idle_conns must be non-negative, got %d", cfg.Database.MaxIdleConns))
	}
	if cfg.Database.ConnMaxLifetime < 0 {
		errs = append(errs, fmt.Sprintf("database.conn_max_lifetime must be non-negative, got %d", cfg.Database.ConnMaxLifetime))
	}
	if cfg.Database.ConnectTimeout < 0 {
		errs = append(errs, fmt.Sprintf("database.connect_timeout must be non-negative, got %d", cfg.Database.ConnectTimeout))
	}
	if cfg.Database.SchemaRevision < 1 || cfg.Database.SchemaRevision > MaxSchemaRevision {
		errs = append(errs, fmt.Sprintf("database.schema_revision must be between 1 and %d, got %d", MaxSchemaRevision, cfg.Database.SchemaRevision))
	}
	if cfg.Database.BreakerThreshold < 1 {
		errs = append(errs, fmt.Sprintf("database.breaker_failure_threshold must be at least 1, got %d", cfg.Database.BreakerThreshold))
	}
	if cfg.Database.BreakerResetSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("database.breaker_reset_seconds must be positive, got %d", cfg.Database.BreakerResetSeconds))
	}

	// Rate limit validation
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Rate <= 0 {
			errs = append(errs, fmt.Sprintf("rate_limit.rate must be positive, got %g", cfg.RateLimit.Rate))
		}
		if cfg.RateLimit.Burst < 1 {
			errs = append(errs, fmt.Sprintf("rate_limit.burst must be at least 1, got %d", cfg.RateLimit.Burst))
		}
		if cfg.RateLimit.MaxClients < 1 {
			errs = append(errs, fmt.Sprintf("rate_limit.max_clients must be at least 1, got %d", cfg.RateLimit.MaxClients))
		}
	}

	// Procedure overrides
	for key, name := range cfg.Procedures {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Sprintf("procedures.%s must not be empty", key))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isValidEnum returns true if val is in the allowed list (case-insensitive).
func isValidEnum(val string, allowed []string) bool {
	lower := strings.ToLower(val)
	for _, a := range allowed {
		if strings.ToLower(a) == lower {
			return true
		}
	}
	return false
}
