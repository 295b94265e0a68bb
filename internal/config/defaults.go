package config

// DefaultBindAddress is the default bind address.
const DefaultBindAddress = "0.0.0.0"

// DefaultPort is the default port for the HTTP server.
const DefaultPort = 4000

// ModeDevelopment exposes normalized database errors in responses.
const ModeDevelopment = "development"

// ModeProduction hides database error details from callers.
const ModeProduction = "production"

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultDataDir is the default data directory (before tilde expansion).
const DefaultDataDir = "~/.procgate"

// DefaultConfigFilename is the name of the config file.
const DefaultConfigFilename = "procgate.toml"

// DefaultReadTimeout is the default HTTP server read timeout in seconds.
const DefaultReadTimeout = 15

// DefaultWriteTimeout is the default HTTP server write timeout in seconds.
const DefaultWriteTimeout = 60

// DefaultIdleTimeout is the default HTTP server idle timeout in seconds.
const DefaultIdleTimeout = 120

// DefaultMaxBodySize is the default maximum request body size in bytes (1 MB).
const DefaultMaxBodySize = 1 << 20

// DefaultDriver is the default database driver.
const DefaultDriver = "sqlserver"

// DefaultDatabasePort is the default SQL Server port.
const DefaultDatabasePort = 1433

// DefaultConnectTimeout is the default connect+ping timeout in seconds.
const DefaultConnectTimeout = 15

// DefaultSchemaRevision is the procedure signature revision used when none is configured.
const DefaultSchemaRevision = 2

// MaxSchemaRevision is the newest procedure signature revision known.
const MaxSchemaRevision = 2

// DefaultBreakerThreshold is the number of consecutive connection failures
// before Acquire starts failing fast.
const DefaultBreakerThreshold = 5

// DefaultBreakerReset is the breaker cool-down in seconds.
const DefaultBreakerReset = 30

// ValidLogLevels lists the allowed log level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// ValidModes lists the allowed server modes.
var ValidModes = []string{ModeDevelopment, ModeProduction}

// ValidDrivers lists the supported database drivers.
var ValidDrivers = []string{"sqlserver", "sqlite"}

// ValidEncryptModes lists the go-mssqldb encrypt settings.
var ValidEncryptModes = []string{"true", "false", "disable", "strict"}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress:    DefaultBindAddress,
			Port:           DefaultPort,
			Mode:           ModeProduction,
			LogLevel:       DefaultLogLevel,
			DataDir:        DefaultDataDir,
			ReadTimeout:    DefaultReadTimeout,
			WriteTimeout:   DefaultWriteTimeout,
			IdleTimeout:    DefaultIdleTimeout,
			MaxBodySize:    DefaultMaxBodySize,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:                 DefaultDriver,
			Host:                   "localhost",
			Port:                   DefaultDatabasePort,
			User:                   "",
			PasswordRef:            "",
			Name:                   "",
			Encrypt:                "true",
			TrustServerCertificate: true,
			AppName:                "procgate",
			SQLitePath:             "~/.procgate/procgate.db",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetime:        300,
			ConnectTimeout:         DefaultConnectTimeout,
			SchemaRevision:         DefaultSchemaRevision,
			BreakerThreshold:       DefaultBreakerThreshold,
			BreakerResetSeconds:    DefaultBreakerReset,
		},
		API: APIConfig{
			UpsertPrecheck: true,
		},
		Tokens: TokensConfig{
			EstimateEnabled: false,
		},
		RateLimit: RateLimitConfig{
			Enabled:    false,
			Rate:       10.0,
			Burst:      20,
			MaxClients: 10000,
		},
		Procedures: map[string]string{},
	}
}
