package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks the plain env names so the host environment cannot leak
// into a test. Viper ignores empty values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "APP_ENV", "NODE_ENV", "DB_SERVER", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_DATABASE"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "procgate.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_WithExplicitFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[server]
port = 5000
mode = "development"
log_level = "debug"
data_dir = "`+dir+`"

[database]
driver = "sqlserver"
host = "db.internal"
name = "crm"

[procedures]
SpSeRelatorio = "SpRelatorioGeral"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Port: got %d, want 5000", cfg.Server.Port)
	}
	if !cfg.Server.ExposeErrorDetails() {
		t.Error("ExposeErrorDetails: got false, want true in development mode")
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Host: got %q, want %q", cfg.Database.Host, "db.internal")
	}
	if cfg.Database.Port != DefaultDatabasePort {
		t.Errorf("database port: got %d, want default %d", cfg.Database.Port, DefaultDatabasePort)
	}

	// Viper folds map keys to lower case.
	if got := cfg.Procedures["spserelatorio"]; got != "SpRelatorioGeral" {
		t.Errorf("procedure override: got %q, want %q", got, "SpRelatorioGeral")
	}
	if ConfigFilePath() != path {
		t.Errorf("ConfigFilePath: got %q, want %q", ConfigFilePath(), path)
	}
	if Get() != cfg {
		t.Error("Get should return the config stored by Load")
	}
	set(DefaultConfig())
}

func TestLoad_EnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[server]
port = 4000
data_dir = "`+dir+`"

[database]
host = "db.internal"
name = "crm"
`)

	t.Setenv("PROCGATE_SERVER_PORT", "8888")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Port with env override: got %d, want 8888", cfg.Server.Port)
	}
	set(DefaultConfig())
}

func TestLoad_PlainEnvNames(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[server]
data_dir = "`+dir+`"
`)

	t.Setenv("PORT", "4100")
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SERVER", "sql.example.com")
	t.Setenv("DB_DATABASE", "bot")
	t.Setenv("DB_USER", "gateway")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Port: got %d, want 4100", cfg.Server.Port)
	}
	if cfg.Server.Mode != ModeDevelopment {
		t.Errorf("Mode: got %q, want %q", cfg.Server.Mode, ModeDevelopment)
	}
	if cfg.Database.Host != "sql.example.com" || cfg.Database.Name != "bot" || cfg.Database.User != "gateway" {
		t.Errorf("database from env: got %+v", cfg.Database)
	}
	set(DefaultConfig())
}

func TestLoad_ValidationFailure(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[server]
port = 0
mode = "staging"
data_dir = "`+dir+`"

[database]
driver = "sqlserver"
host = "db.internal"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "server.mode", "database.name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestLoad_SQLiteDriver(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[server]
data_dir = "`+dir+`"

[database]
driver = "sqlite"
sqlite_path = "`+filepath.Join(dir, "local.db")+`"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver: got %q, want sqlite", cfg.Database.Driver)
	}
	set(DefaultConfig())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Port: got %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Mode != ModeProduction {
		t.Errorf("Mode: got %q, want %q", cfg.Server.Mode, ModeProduction)
	}
	if cfg.Server.ExposeErrorDetails() {
		t.Error("production mode must not expose error details")
	}
	if !cfg.API.UpsertPrecheck {
		t.Error("UpsertPrecheck: got false, want true")
	}
	if cfg.Database.SchemaRevision != MaxSchemaRevision {
		t.Errorf("SchemaRevision: got %d, want %d", cfg.Database.SchemaRevision, MaxSchemaRevision)
	}
}

func TestDatabaseConfig_Durations(t *testing.T) {
	tests := []struct {
		timeout int
		wantSec int
	}{
		{0, DefaultConnectTimeout},
		{-1, DefaultConnectTimeout},
		{5, 5},
	}

	for _, tt := range tests {
		d := DatabaseConfig{ConnectTimeout: tt.timeout}
		got := d.ConnectTimeoutDuration().Seconds()
		if int(got) != tt.wantSec {
			t.Errorf("ConnectTimeoutDuration(%d): got %v, want %ds", tt.timeout, got, tt.wantSec)
		}
	}

	if got := (DatabaseConfig{}).ConnMaxLifetimeDuration(); got != 0 {
		t.Errorf("ConnMaxLifetimeDuration(0): got %v, want 0", got)
	}
}

func TestExportConfig_OmitsPassword(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "exported.toml")

	cfg := DefaultConfig()
	cfg.Database.Password = "s3cret"
	set(cfg)
	defer set(DefaultConfig())

	if err := ExportConfig(exportPath); err != nil {
		t.Fatalf("ExportConfig: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("exported config is empty")
	}
	if strings.Contains(string(data), "s3cret") {
		t.Error("exported config must not contain the database password")
	}
	if Get().Database.Password != "s3cret" {
		t.Error("ExportConfig must not mutate the live config")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("PROCGATE_DOTENV_VAR=from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PROCGATE_DOTENV_VAR", "")
	os.Unsetenv("PROCGATE_DOTENV_VAR")

	n, err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if n != 1 {
		t.Errorf("files loaded: got %d, want 1", n)
	}
	if got := os.Getenv("PROCGATE_DOTENV_VAR"); got != "from-file" {
		t.Errorf("PROCGATE_DOTENV_VAR: got %q, want %q", got, "from-file")
	}
}

func TestLoadDotEnv_LocalOverridesBase(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, ".env")
	local := filepath.Join(dir, ".env.local")
	if err := os.WriteFile(base, []byte("PROCGATE_DOTENV_A=base\nPROCGATE_DOTENV_B=base\nPROCGATE_DOTENV_C=base\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(local, []byte("PROCGATE_DOTENV_A=local\nPROCGATE_DOTENV_C=local\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	for _, k := range []string{"PROCGATE_DOTENV_A", "PROCGATE_DOTENV_B"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("PROCGATE_DOTENV_C", "process")

	n, err := LoadDotEnv(base, local)
	if err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if n != 2 {
		t.Errorf("files loaded: got %d, want 2", n)
	}
	for k, want := range map[string]string{
		"PROCGATE_DOTENV_A": "local",
		"PROCGATE_DOTENV_B": "base",
		"PROCGATE_DOTENV_C": "process",
	} {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_ModeFromNodeEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[server]
data_dir = "`+dir+`"
`)
	t.Setenv("NODE_ENV", "development")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Mode != ModeDevelopment {
		t.Errorf("Mode: got %q, want %q", cfg.Server.Mode, ModeDevelopment)
	}
	set(DefaultConfig())
}

func TestLoad_UnknownModeRunsAsProduction(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[server]
data_dir = "`+dir+`"
`)
	t.Setenv("APP_ENV", "staging")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Mode != ModeProduction {
		t.Errorf("Mode: got %q, want %q", cfg.Server.Mode, ModeProduction)
	}
	if cfg.Server.ExposeErrorDetails() {
		t.Error("staging must not expose error details")
	}
	set(DefaultConfig())
}
