package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/spf13/cobra"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/bus"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/config"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/database"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/imap"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/mcp"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/retention"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/smtp"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/webhook"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/websocket"
)

// shutdownGrace bounds how long in-flight work gets to drain once a
// shutdown signal arrives.
const shutdownGrace = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the CLI: `serve` runs the full process (SMTP, IMAP,
// HTTP API, and the optional MCP adapter), `migrate` only applies the
// database schema and exits. Both load configuration from the environment
// the same way, so operators can run migrations ahead of a rollout without
// standing up listeners.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "infinimail-server",
		Short: "Ephemeral mail service: SMTP ingestion, IMAP, HTTP/WS API, and MCP",
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the SMTP, IMAP, HTTP/WS, and MCP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithValidation()
			if err != nil {
				return fmt.Errorf("config_invalid: %w", err)
			}

			logger := newLogger(cfg)
			slog.SetDefault(logger)
			cfg.LogConfig(logger)

			if err := run(cfg, logger); err != nil {
				logger.Error("server exited with error", "error", err)
				return err
			}
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithValidation()
			if err != nil {
				return fmt.Errorf("config_invalid: %w", err)
			}

			logger := newLogger(cfg)
			slog.SetDefault(logger)

			db, err := database.Connect(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Info("database migrated successfully")
			return nil
		},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	opts := &slog.HandlerOptions{Level: level}

	if cfg.AppEnv == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	store := repository.NewStore(db)
	eventBus := bus.New(logger)
	accessController := access.New(store, cfg.AuthEnabled, cfg.AuthSecret)
	dispatcher := webhook.NewDispatcher(store, logger)
	hub := websocket.NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 8)

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, eventBus)
	}()

	if cfg.RetentionEnabled() {
		task := retention.New(store, eventBus, cfg.EmailRetentionHours, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.Run(ctx)
		}()
	}

	smtpServers, smtpListeners, err := startSMTPServers(cfg, store, eventBus, logger, errs, &wg)
	if err != nil {
		return err
	}

	router := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Store:          store,
		Bus:            eventBus,
		Access:         accessController,
		Dispatcher:     dispatcher,
		Hub:            hub,
		Logger:         logger,
		DomainName:     cfg.DomainName,
		AuthDomain:     cfg.AuthDomain,
		AllowedOrigins: splitOrigins(cfg.AllowedOrigins),
		RateLimit:      cfg.RateLimitRequests,
		RateBurst:      cfg.RateLimitBurst,
	})
	apiServer := &http.Server{Addr: fmt.Sprintf("0.0.0.0:%d", cfg.APIPort), Handler: router}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP API listening", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("HTTP API server failed: %w", err)
		}
	}()

	if cfg.IMAPEnabled {
		imapServer := imap.NewServer(imap.Config{Store: store, Access: accessController, Domain: cfg.DomainName, Logger: logger})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := imapServer.ListenAndServe(ctx, cfg.IMAPPort); err != nil {
				errs <- fmt.Errorf("IMAP server failed: %w", err)
			}
		}()
	}

	var mcpServer *http.Server
	if cfg.MCPEnabled {
		mcpServer = &http.Server{
			Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.MCPPort),
			Handler: mcp.NewRouter(mcp.Config{Store: store, Domain: cfg.DomainName, Logger: logger}),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("MCP server listening", "addr", mcpServer.Addr)
			if err := mcpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("MCP server failed: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errs:
		logger.Error("a server failed, shutting down", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP API shutdown did not complete cleanly", "error", err)
	}
	if mcpServer != nil {
		if err := mcpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP shutdown did not complete cleanly", "error", err)
		}
	}
	for _, s := range smtpServers {
		s.Close()
	}
	for _, l := range smtpListeners {
		l.Close()
	}
	hub.Shutdown()
	cancel()

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-shutdownCtx.Done():
		logger.Warn("shutdown grace period elapsed before all tasks drained")
	}

	logger.Info("server stopped")
	return nil
}

// startSMTPServers binds the plain, STARTTLS, and (if enabled)
// implicit-TLS listeners against one shared Backend. It returns the
// *gosmtp.Server instances (Close stops accepting new connections) and,
// for the implicit-TLS listener only, the raw net.Listener it wraps
// (closing it directly is what actually releases the socket since
// gosmtp.Server.Serve does not own listeners it did not create itself).
func startSMTPServers(cfg *config.Config, store repository.Store, eventBus *bus.Bus, logger *slog.Logger, errs chan<- error, wg *sync.WaitGroup) ([]*gosmtp.Server, []net.Listener, error) {
	backend := smtp.NewBackend(&smtp.BackendConfig{
		Store:           store,
		Bus:             eventBus,
		Domain:          cfg.DomainName,
		RejectNonDomain: cfg.RejectNonDomainEmails,
		Logger:          logger,
	})

	var tlsConfig *tls.Config
	if cfg.SMTPSSLEnabled {
		cert, err := tls.LoadX509KeyPair(cfg.SMTPSSLCert, cfg.SMTPSSLKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load SMTP TLS certificate: %w", err)
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	var servers []*gosmtp.Server
	var listeners []net.Listener

	plain := smtp.NewSecureServer(backend, smtp.ServerConfig{
		Domain:         cfg.DomainName,
		Kind:           smtp.Plain,
		MaxMessageSize: cfg.MaxMessageBytes,
	})
	plain.Addr = fmt.Sprintf("0.0.0.0:%d", cfg.SMTPPort)
	runSMTPServer(plain, "smtp-plain", logger, errs, wg)
	servers = append(servers, plain)

	startTLS := smtp.NewSecureServer(backend, smtp.ServerConfig{
		Domain:         cfg.DomainName,
		Kind:           smtp.StartTLS,
		MaxMessageSize: cfg.MaxMessageBytes,
		TLSConfig:      tlsConfig,
	})
	startTLS.Addr = fmt.Sprintf("0.0.0.0:%d", cfg.SMTPStartTLSPort)
	runSMTPServer(startTLS, "smtp-starttls", logger, errs, wg)
	servers = append(servers, startTLS)

	if cfg.SMTPSSLEnabled {
		implicit := smtp.NewSecureServer(backend, smtp.ServerConfig{
			Domain:         cfg.DomainName,
			Kind:           smtp.ImplicitTLS,
			MaxMessageSize: cfg.MaxMessageBytes,
		})
		addr := fmt.Sprintf("0.0.0.0:%d", cfg.SMTPSSLPort)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to listen on SMTP SSL port %d: %w", cfg.SMTPSSLPort, err)
		}
		ln = smtp.WrapImplicitTLS(ln, tlsConfig)

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("smtp-implicit-tls listening", "addr", addr)
			if err := implicit.Serve(ln); err != nil {
				errs <- fmt.Errorf("SMTP implicit-TLS server failed: %w", err)
			}
		}()
		servers = append(servers, implicit)
		listeners = append(listeners, ln)
	}

	return servers, listeners, nil
}

func runSMTPServer(server *gosmtp.Server, name string, logger *slog.Logger, errs chan<- error, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info(name+" listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil {
			errs <- fmt.Errorf("%s server failed: %w", name, err)
		}
	}()
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var origins []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				origins = append(origins, s[start:i])
			}
			start = i + 1
		}
	}
	return origins
}
