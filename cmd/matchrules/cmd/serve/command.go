// Package serve provides the HTTP server command of the matchrules CLI.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/matchrules/internal/cmd/application"
	"github.com/agentstation/matchrules/internal/cmd/cmdutil"
	"github.com/agentstation/matchrules/internal/cmd/completion"
	"github.com/agentstation/matchrules/internal/cmd/emoji"
	"github.com/agentstation/matchrules/internal/server"
	"github.com/agentstation/matchrules/internal/store"
)

// shutdownTimeout bounds connection draining and session persistence.
const shutdownTimeout = 30 * time.Second

// NewCommand creates the serve command using app context.
func NewCommand(app application.Application) *cobra.Command {
	defaults := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		GroupID: "server",
		Short:   "Start the REST API server with WebSocket and SSE support",
		Long: `Start a REST API server hosting many matching sessions.

Features:
  - Session, match set, rule and comparison endpoints under /api/v1/sessions
  - WebSocket and SSE event streams per session
  - Sessions persisted to a file directory, Redis or memory (--store)
  - Optional event export to Kafka
  - Rate limiting, API key authentication and CORS
  - Prometheus metrics (/metrics) and health checks
  - Graceful shutdown with connection draining`,
		Example: `  # Start on default port 8080
  matchrules serve

  # Persist sessions in Redis and require an API key
  MATCHRULES_API_KEY=secret matchrules serve --store redis --redis-addr localhost:6379 --auth

  # Enable CORS for specific origins
  matchrules serve --cors-origins "https://example.com,https://app.example.com"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, app)
		},
	}

	// Server configuration flags
	cmd.Flags().Int("port", defaults.Port, "Server port")
	cmd.Flags().String("host", defaults.Host, "Bind address")
	cmd.Flags().String("prefix", defaults.PathPrefix, "API path prefix")

	// CORS flags
	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")

	// Authentication flags
	cmd.Flags().Bool("auth", false, "Enable API key authentication (key from MATCHRULES_API_KEY)")
	cmd.Flags().String("auth-header", defaults.AuthHeader, "Authentication header name")

	// Performance flags
	cmd.Flags().Int("rate-limit", defaults.RateLimit, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Duration("cache-ttl", defaults.CacheTTL, "Comparison cache TTL")

	// Timeout flags
	cmd.Flags().Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout (0 keeps event streams open)")
	cmd.Flags().Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")

	// Store flags override the configured store
	cmd.Flags().String("store", "", "Session store: file, redis, memory")
	cmd.Flags().String("store-dir", "", "Directory of the file store")
	cmd.Flags().String("redis-addr", "", "Redis address of the redis store")
	_ = cmd.RegisterFlagCompletionFunc("store", completion.Values(store.BackendFile, store.BackendRedis, store.BackendMemory))

	// Features flags
	cmd.Flags().Bool("metrics", defaults.MetricsEnabled, "Enable metrics endpoint")

	return cmd
}

// runServer starts the API server and blocks until the command context is
// cancelled or the listener fails.
func runServer(cmd *cobra.Command, app application.Application) error {
	cfg := parseConfig(cmd, app)
	logger := app.Logger()

	logger.Info().
		Int("port", cfg.Port).
		Str("host", cfg.Host).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Bool("kafka", len(cfg.Kafka.Brokers) > 0).
		Msg("Starting API server")

	ctx := cmd.Context()
	storeCfg := parseStoreConfig(cmd, app)
	st, err := store.Open(ctx, storeCfg)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	logger.Debug().Str("backend", storeCfg.Backend).Msg("Session store opened")

	svc, err := app.Service()
	if err != nil {
		_ = st.Close()
		return err
	}
	if svc == nil {
		logger.Warn().Msg("No rule service configured; generate and apply will be refused")
	}

	srv, err := server.New(cfg, st, svc, logger)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Start()

	httpServer := &http.Server{
		Addr:         srv.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return serve(ctx, httpServer, srv, cmd, logger)
}

// serve runs the listener and the shutdown watcher in one errgroup. A
// listener failure cancels the group so the watcher still shuts down.
func serve(ctx context.Context, httpServer *http.Server, srv *server.Server, cmd *cobra.Command, logger *zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		cmd.Printf("%s API server listening on %s\n", emoji.Success, httpServer.Addr)
		cmd.Println("   Press Ctrl+C to stop")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down API server")
		cmd.Printf("\n%s Shutting down API server...\n", emoji.Stop)

		// The parent context is already cancelled here.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Background services shutdown had issues")
		}

		logger.Info().Msg("Server stopped gracefully")
		cmd.Printf("%s API server stopped gracefully\n", emoji.Success)
		return nil
	})

	return g.Wait()
}

// parseConfig parses command flags into server configuration.
func parseConfig(cmd *cobra.Command, app application.Application) server.Config {
	cfg := server.DefaultConfig()
	cfg.Host = cmdutil.MustGetString(cmd, "host")
	cfg.Port = cmdutil.MustGetInt(cmd, "port")
	cfg.PathPrefix = cmdutil.MustGetString(cmd, "prefix")
	cfg.CORSEnabled = cmdutil.MustGetBool(cmd, "cors")
	cfg.CORSOrigins = cmdutil.MustGetStringSlice(cmd, "cors-origins")
	cfg.AuthEnabled = cmdutil.MustGetBool(cmd, "auth")
	cfg.AuthHeader = cmdutil.MustGetString(cmd, "auth-header")
	cfg.APIKey = os.Getenv("MATCHRULES_API_KEY")
	cfg.RateLimit = cmdutil.MustGetInt(cmd, "rate-limit")
	cfg.CacheTTL = cmdutil.MustGetDuration(cmd, "cache-ttl")
	cfg.ReadTimeout = cmdutil.MustGetDuration(cmd, "read-timeout")
	cfg.WriteTimeout = cmdutil.MustGetDuration(cmd, "write-timeout")
	cfg.IdleTimeout = cmdutil.MustGetDuration(cmd, "idle-timeout")
	cfg.MetricsEnabled = cmdutil.MustGetBool(cmd, "metrics")
	cfg.Kafka = app.KafkaConfig()

	// Environment overrides used by container deployments
	if envPort := os.Getenv("HTTP_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil && p > 0 && p <= 65535 {
			cfg.Port = p
		}
	}
	if envHost := os.Getenv("HTTP_HOST"); envHost != "" {
		cfg.Host = envHost
	}

	return cfg
}

// parseStoreConfig applies the store flags to the configured store.
func parseStoreConfig(cmd *cobra.Command, app application.Application) store.Config {
	cfg := app.StoreConfig()
	if v := cmdutil.MustGetString(cmd, "store"); v != "" {
		cfg.Backend = v
	}
	if v := cmdutil.MustGetString(cmd, "store-dir"); v != "" {
		cfg.Dir = v
	}
	if v := cmdutil.MustGetString(cmd, "redis-addr"); v != "" {
		cfg.RedisAddr = v
	}
	return cfg
}
