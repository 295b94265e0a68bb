package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Server.DataDir = "/tmp/test"
	cfg.Database.Name = "crm"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := validate(cfg); err != nil {
		t.Fatalf("validate valid config: %v", err)
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for port 70000")
	}
	if !strings.Contains(err.Error(), "server.port") {
		t.Errorf("error should mention server.port: %v", err)
	}
}

func TestValidate_BadMode(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = "staging"

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if !strings.Contains(err.Error(), "server.mode") {
		t.Errorf("error should mention server.mode: %v", err)
	}
}

func TestValidate_ModeCaseInsensitive(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Mode = "Development"
	if err := validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !cfg.Server.ExposeErrorDetails() {
		t.Error("ExposeErrorDetails should ignore case")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Server.LogLevel = "verbose"

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level: %v", err)
	}
}

func TestValidate_EmptyDataDir(t *testing.T) {
	cfg := validConfig()
	cfg.Server.DataDir = ""

	if err := validate(cfg); err == nil {
		t.Fatal("expected error for empty data_dir")
	}
}

func TestValidate_NegativeTimeouts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ReadTimeout = -1
	cfg.Server.WriteTimeout = -1
	cfg.Server.IdleTimeout = -1
	cfg.Database.ConnectTimeout = -1

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for negative timeouts")
	}
	for _, want := range []string{"read_timeout", "write_timeout", "idle_timeout", "connect_timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "postgres"

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "database.driver") {
		t.Errorf("error should mention database.driver: %v", err)
	}
}

func TestValidate_SQLServerRequiresHostAndName(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	cfg.Database.Name = ""

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing host and name")
	}
	if !strings.Contains(err.Error(), "database.host") || !strings.Contains(err.Error(), "database.name") {
		t.Errorf("error should mention host and name: %v", err)
	}
}

func TestValidate_BadEncrypt(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Encrypt = "maybe"

	if err := validate(cfg); err == nil {
		t.Fatal("expected error for invalid encrypt value")
	}
}

func TestValidate_SQLiteRequiresPath(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.SQLitePath = ""

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for empty sqlite_path")
	}
	if !strings.Contains(err.Error(), "sqlite_path") {
		t.Errorf("error should mention sqlite_path: %v", err)
	}
}

func TestValidate_SchemaRevision(t *testing.T) {
	for _, rev := range []int{0, MaxSchemaRevision + 1} {
		cfg := validConfig()
		cfg.Database.SchemaRevision = rev
		if err := validate(cfg); err == nil {
			t.Errorf("expected error for schema_revision %d", rev)
		}
	}

	cfg := validConfig()
	cfg.Database.SchemaRevision = 1
	if err := validate(cfg); err != nil {
		t.Errorf("schema_revision 1 should be valid: %v", err)
	}
}

func TestValidate_Breaker(t *testing.T) {
	cfg := validConfig()
	cfg.Database.BreakerThreshold = 0
	cfg.Database.BreakerResetSeconds = 0

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for breaker settings")
	}
	if !strings.Contains(err.Error(), "breaker_failure_threshold") {
		t.Errorf("error should mention breaker_failure_threshold: %v", err)
	}
	if !strings.Contains(err.Error(), "breaker_reset_seconds") {
		t.Errorf("error should mention breaker_reset_seconds: %v", err)
	}
}

func TestValidate_RateLimitOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Rate = 0
	cfg.RateLimit.Burst = 0
	if err := validate(cfg); err != nil {
		t.Fatalf("disabled rate limit should not be validated: %v", err)
	}

	cfg.RateLimit.Enabled = true
	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for enabled rate limit with zero rate")
	}
	if !strings.Contains(err.Error(), "rate_limit.rate") {
		t.Errorf("error should mention rate_limit.rate: %v", err)
	}
}

func TestValidate_EmptyProcedureOverride(t *testing.T) {
	cfg := validConfig()
	cfg.Procedures = map[string]string{"spserelatorio": "  "}

	if err := validate(cfg); err == nil {
		t.Fatal("expected error for blank procedure override")
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Server.LogLevel = "bad"
	cfg.Server.DataDir = ""

	err := validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	if !strings.HasPrefix(err.Error(), "config validation failed:") {
		t.Errorf("unexpected error prefix: %v", err)
	}
	if got := strings.Count(err.Error(), "\n  - "); got != 3 {
		t.Errorf("error count: got %d, want 3", got)
	}
}

func TestIsValidEnum(t *testing.T) {
	tests := []struct {
		val     string
		allowed []string
		want    bool
	}{
		{"info", ValidLogLevels, true},
		{"INFO", ValidLogLevels, true},
		{"verbose", ValidLogLevels, false},
		{"sqlite", ValidDrivers, true},
		{"", ValidDrivers, false},
	}

	for _, tt := range tests {
		got := isValidEnum(tt.val, tt.allowed)
		if got != tt.want {
			t.Errorf("isValidEnum(%q): got %v, want %v", tt.val, got, tt.want)
		}
	}
}
