package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/kpgate/kpgate/api"
	"github.com/kpgate/kpgate/cache"
	"github.com/kpgate/kpgate/config"
	"github.com/kpgate/kpgate/keepass"
	"github.com/kpgate/kpgate/session"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the KeePassXC gateway server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := newLogger(cfg.LogLevel)
		slog.SetDefault(logger)

		var c cache.Cache
		switch cfg.CacheBackend {
		case "redis":
			rc, err := cache.NewRedis(cfg.RedisURL, cfg.CacheKeyPrefix)
			if err != nil {
				return fmt.Errorf("connecting to redis: %w", err)
			}
			c = rc
		default:
			c = cache.NewMemory(time.Minute)
		}
		defer c.Close()

		repo := keepass.NewCLIRepository(cfg.CLIPath, cfg.CommandTimeout(), logger)
		if !repo.Available(cmd.Context()) {
			logger.Warn("keepassxc-cli not available at startup; logins will fail until it is",
				"cli_path", cfg.CLIPath)
		}

		sessions, err := session.NewManager(cfg.SecretKey, cfg.SessionTimeout(), cfg.MaxPasswordAge(),
			session.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("initializing session manager: %w", err)
		}
		defer sessions.Destroy()

		trustedProxies, err := cfg.TrustedProxyPrefixes()
		if err != nil {
			return err
		}

		apiOpts := []api.Option{
			api.WithLogger(logger),
			api.WithCORSOrigins(cfg.CORSOriginList()),
			api.WithTrustedProxies(trustedProxies),
			api.WithRateLimits(
				int64(cfg.LoginRateLimit), cfg.LoginRateWindow(),
				int64(cfg.APIRateLimit), cfg.APIRateWindow(),
			),
		}
		if cfg.AuditDBPath != "" {
			apiOpts = append(apiOpts, api.WithAuditTrail(cfg.AuditDBPath))
		}
		a, err := api.New(repo, sessions, c, apiOpts...)
		if err != nil {
			return fmt.Errorf("initializing api: %w", err)
		}
		defer a.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		// No RealIP middleware: RemoteAddr must stay the direct peer so the
		// rate limiter's client identity cannot be spoofed via headers. Proxy
		// headers are honored only via KPGATE_TRUSTED_PROXIES.
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Mount("/api/v1", a.Router())

		server := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		sweepCtx, stopSweep := context.WithCancel(context.Background())
		defer stopSweep()
		go sessions.RunCleanup(sweepCtx, cfg.CleanupInterval())

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		logger.Info("server started", "addr", cfg.ListenAddr, "cache", cfg.CacheBackend)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			// Drop every session before the envelope key is wiped on exit.
			sessions.ClearAll()
			return nil
		case err := <-done:
			return err
		}
	},
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
