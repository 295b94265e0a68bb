package daemon

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/procgate/internal/config"
	"github.com/allaspectsdev/procgate/internal/db"
	"github.com/allaspectsdev/procgate/internal/httpapi"
	"github.com/allaspectsdev/procgate/internal/procs"
	"github.com/allaspectsdev/procgate/internal/ratelimit"
	"github.com/allaspectsdev/procgate/internal/store"
	"github.com/allaspectsdev/procgate/internal/tokenizer"
	"github.com/allaspectsdev/procgate/internal/vault"
	"github.com/allaspectsdev/procgate/internal/version"
)

// Gateway is the assembled request path: catalog, connection provider,
// handler and HTTP server.
type Gateway struct {
	Catalog  *procs.Catalog
	Provider *db.Provider
	Handler  *httpapi.Handler
	Server   *httpapi.Server
}

// Build wires a Gateway from cfg. Nothing connects to the database until
// the first request or readiness check.
func Build(cfg *config.Config, logger zerolog.Logger) (*Gateway, error) {
	catalog, err := procs.New(cfg.Database.SchemaRevision, cfg.Procedures)
	if err != nil {
		return nil, fmt.Errorf("building procedure catalog: %w", err)
	}

	open, dialect, secrets, err := backend(cfg.Database, cfg.Procedures)
	if err != nil {
		return nil, err
	}

	var breaker *db.Breaker
	if cfg.Database.BreakerThreshold > 0 {
		breaker = db.NewBreaker(cfg.Database.BreakerThreshold, time.Duration(cfg.Database.BreakerResetSeconds)*time.Second)
	}
	provider := db.NewProvider(open, db.ProviderConfig{
		ConnectTimeout: cfg.Database.ConnectTimeoutDuration(),
		Breaker:        breaker,
		Secrets:        secrets,
	})

	opts := httpapi.Options{
		ExposeDetails:  cfg.Server.ExposeErrorDetails(),
		UpsertPrecheck: cfg.API.UpsertPrecheck,
		Readiness:      provider,
	}
	if cfg.Tokens.EstimateEnabled {
		opts.Estimator = tokenizer.New()
	}
	handler := httpapi.NewHandler(db.NewInvoker(provider, dialect), catalog, opts)

	srvCfg := httpapi.ServerConfig{
		Addr:           net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.Port)),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		MaxBodySize:    cfg.Server.MaxBodySize,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(cfg.RateLimit.Rate, cfg.RateLimit.Burst, cfg.RateLimit.MaxClients)
		if err != nil {
			provider.Close()
			return nil, fmt.Errorf("creating rate limiter: %w", err)
		}
		srvCfg.Limiter = limiter
	}

	return &Gateway{
		Catalog:  catalog,
		Provider: provider,
		Handler:  handler,
		Server:   httpapi.NewServer(handler, srvCfg),
	}, nil
}

// backend selects the opener and dialect for the configured driver.
func backend(cfg config.DatabaseConfig, overrides map[string]string) (db.Opener, db.Dialect, []string, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return store.Opener(cfg.SQLitePath), store.NewEmulator(overrides), nil, nil
	case "sqlserver":
		password, err := vault.New().DatabasePassword(cfg.Password, cfg.PasswordRef)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolving database password: %w", err)
		}
		var secrets []string
		if password != "" {
			secrets = append(secrets, password)
		}
		secrets = append(secrets, db.SQLServerDSN(cfg, password))
		return db.OpenSQLServer(cfg, password), db.SQLServer{}, secrets, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Run is the main daemon orchestrator. It sets up logging, builds the
// gateway, serves HTTP and blocks until a shutdown signal is received.
func Run(cfg *config.Config, foreground bool) error {
	// 1. Set up zerolog logger.
	dataDir := cfg.Server.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	zerolog.SetGlobalLevel(parseLogLevel(cfg.Server.LogLevel))

	writers := []io.Writer{}

	logPath := filepath.Join(dataDir, "procgate.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}
	defer logFile.Close()
	writers = append(writers, logFile)

	if foreground {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}

	multi := zerolog.MultiLevelWriter(writers...)
	log.Logger = zerolog.New(multi).With().Timestamp().Str("service", "procgate").Logger()

	log.Info().
		Str("version", version.Version).
		Str("data_dir", dataDir).
		Str("mode", cfg.Server.Mode).
		Str("driver", cfg.Database.Driver).
		Bool("foreground", foreground).
		Msg("procgate starting")

	// 2. Claim the PID file.
	if err := WritePID(dataDir); err != nil {
		return err
	}
	defer func() {
		if err := releasePID(dataDir); err != nil {
			log.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	// 3. Build the gateway.
	gw, err := Build(cfg, log.Logger)
	if err != nil {
		return err
	}
	defer gw.Provider.Close()

	log.Info().
		Int("schema_revision", gw.Catalog.Revision()).
		Int("procedure_overrides", len(cfg.Procedures)).
		Bool("token_estimates", cfg.Tokens.EstimateEnabled).
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Msg("gateway assembled")

	// 4. Start config watcher.
	if configFile := config.ConfigFilePath(); configFile != "" {
		w, watchErr := config.Watch(configFile)
		if watchErr != nil {
			log.Warn().Err(watchErr).Msg("failed to start config watcher; continuing without hot-reload")
		} else {
			defer w.Close()
			w.OnChange(func(old, newCfg *config.Config) {
				onReload(gw.Handler, old, newCfg)
			})
			log.Info().Str("file", configFile).Msg("config watcher started")
		}
	}

	// 5. Warm the pool so a misconfigured database shows up in the log at
	// startup. Failure is not fatal; requests retry the connection.
	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeoutDuration())
	if err := gw.Provider.Ready(warmCtx); err != nil {
		log.Warn().Err(err).Msg("database not reachable yet; requests will retry")
	} else {
		log.Info().Msg("database connected")
	}
	warmCancel()

	// 6. Serve.
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", gw.Server.Addr()).Msg("http server starting")
		if err := gw.Server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if foreground {
		fmt.Printf("\n  procgate is running!\n")
		fmt.Printf("  API: http://%s\n\n", dialAddr(cfg.Server))
	}

	// 7. Wait for shutdown signal or fatal error.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("fatal server error")
		return err
	}

	// 8. Graceful shutdown with 30-second timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info().Msg("shutting down server...")
	if err := gw.Server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if err := gw.Provider.Close(); err != nil {
		log.Error().Err(err).Msg("closing database pool")
	}

	log.Info().Msg("procgate stopped")
	return nil
}

// onReload applies the settings that take effect without a restart.
func onReload(h *httpapi.Handler, old, newCfg *config.Config) {
	zerolog.SetGlobalLevel(parseLogLevel(newCfg.Server.LogLevel))
	h.SetExposeDetails(newCfg.Server.ExposeErrorDetails())

	log.Info().
		Str("log_level", newCfg.Server.LogLevel).
		Str("mode", newCfg.Server.Mode).
		Bool("restart_required", len(config.RestartKeys(old, newCfg)) > 0).
		Msg("runtime settings applied")
}

// Stop reads the PID file and sends SIGTERM to the running daemon.
func Stop() error {
	dataDir := config.Get().Server.DataDir

	pid, err := ReadPID(dataDir)
	if err != nil {
		return fmt.Errorf("procgate does not appear to be running: %w", err)
	}

	if !isProcessAlive(pid) {
		if rmErr := RemovePID(dataDir); rmErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove stale PID file: %v\n", rmErr)
		}
		return fmt.Errorf("procgate is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM to process %d: %w", pid, err)
	}

	fmt.Printf("Sent SIGTERM to procgate (PID %d)\n", pid)

	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isProcessAlive(pid) {
			return nil
		}
	}

	return nil
}

// Status checks if the daemon is running and checks its readiness endpoint.
func Status() error {
	cfg := config.Get()

	if !IsRunning(cfg.Server.DataDir) {
		fmt.Println("procgate is not running")
		return nil
	}

	pid, _ := ReadPID(cfg.Server.DataDir)
	fmt.Printf("procgate is running (PID %d)\n", pid)

	client := &http.Client{Timeout: 3 * time.Second}
	fmt.Printf("  Database: %s\n", checkReady(client, "http://"+dialAddr(cfg.Server)+"/health/ready"))
	return nil
}

// checkReady summarizes a readiness check.
func checkReady(client *http.Client, url string) string {
	resp, err := client.Get(url)
	if err != nil {
		return "unknown (server unreachable)"
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK {
		return "ready"
	}
	return fmt.Sprintf("unavailable (HTTP %d)", resp.StatusCode)
}

// dialAddr is the address a local client uses to reach the server.
func dialAddr(s config.ServerConfig) string {
	host := s.BindAddress
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// parseLogLevel converts a string log level to a zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
