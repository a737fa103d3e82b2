package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/config"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/bunx"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/ratelimit"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/server"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/authz"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/iam"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/membership"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/telemetry"
)

// schemaCacheSize bounds the compiled request schemas kept in memory.
const schemaCacheSize = 32

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gatehouse API server",
	Long:  `Starts the HTTP server with every API route mounted behind the request pipeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown failed", "error", err)
			}
		}()

		// Connect to database
		db, err := bunx.NewDB(cfg.DatabaseURL, bunx.WithMaxConnections(cfg.MaxDBConnections))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() { _ = bunx.Close(db) }()
		logger.Info("connected to database", "type", bunx.DetectDatabaseType(cfg.DatabaseURL))

		// Initialize repositories
		userRepo := repository.NewBunUserRepository(db)
		sessionRepo := repository.NewBunSessionRepository(db)
		memberRepo := repository.NewBunMembershipRepository(db)
		productRepo := repository.NewBunProductRepository(db)
		transcodeRepo := repository.NewBunMediaTranscodeRepository(db)

		serverMetrics, err := telemetry.NewServerMetrics()
		if err != nil {
			return fmt.Errorf("failed to create server metrics: %w", err)
		}
		authMetrics, err := telemetry.NewAuthMetrics()
		if err != nil {
			return fmt.Errorf("failed to create auth metrics: %w", err)
		}
		authzMetrics, err := telemetry.NewAuthzMetrics()
		if err != nil {
			return fmt.Errorf("failed to create authz metrics: %w", err)
		}

		iamService, err := iam.NewIAMService(
			iam.IAMServiceDependencies{
				Users:    userRepo,
				Sessions: sessionRepo,
				Logger:   logger,
				Metrics:  authMetrics,
			},
			iam.IAMServiceConfig{Config: cfg},
		)
		if err != nil {
			return fmt.Errorf("create IAM service: %w", err)
		}
		if cfg.Worker.Secret == "" {
			logger.Warn("worker.secret not set; service-to-service routes will reject every caller")
		}

		// Membership lookups, optionally cached. Writes through the membership
		// service invalidate the cache.
		var lookup membership.Lookup = membership.NewRepositoryLookup(memberRepo, cfg.Membership.LookupTimeout)
		var invalidator membership.Invalidator
		if cfg.Membership.CacheTTL > 0 {
			cached := membership.NewCachedLookup(lookup, cfg.Membership.CacheSize, cfg.Membership.CacheTTL)
			lookup = cached
			invalidator = cached
			logger.Info("membership cache enabled", "ttl", cfg.Membership.CacheTTL, "size", cfg.Membership.CacheSize)
		}

		perms, err := authz.NewOrgPermissions()
		if err != nil {
			return fmt.Errorf("configure organization permissions: %w", err)
		}
		evaluator := authz.NewEvaluator(lookup, perms,
			authz.WithAuditLogger(authz.NewSlogAuditLogger(logger)),
			authz.WithMetrics(authzMetrics),
		)

		healthChecks := []server.HealthCheck{
			{Name: "database", Check: func(ctx context.Context) error { return bunx.Ping(ctx, db) }},
		}
		limiter, closeLimiter := newLimiter(cfg)
		defer closeLimiter()
		if cfg.RateLimit.RedisAddr != "" {
			healthChecks = append(healthChecks, server.HealthCheck{Name: "rate_limit_store", Check: limiter.Ping})
		}

		validator, err := server.NewRequestValidator(schemaCacheSize)
		if err != nil {
			return fmt.Errorf("configure request validation: %w", err)
		}

		routes := server.APIRoutes(server.HandlerDeps{
			IAM:          iamService,
			Members:      membership.NewService(memberRepo, userRepo, invalidator),
			Products:     productRepo,
			Transcodes:   transcodeRepo,
			Validator:    validator,
			Logger:       logger,
			ServiceName:  cfg.ServiceName,
			Version:      cfg.Version,
			ExposeErrors: cfg.IsDevelopment(),
		})

		r, err := server.NewRouter(server.RouterOptions{
			Cfg:           cfg,
			Logger:        logger,
			Identity:      iamService,
			Evaluator:     evaluator,
			Limiter:       limiter,
			Routes:        routes,
			HealthChecks:  healthChecks,
			ServerMetrics: serverMetrics,
		})
		if err != nil {
			return fmt.Errorf("build router: %w", err)
		}

		// Create HTTP server
		srv := &http.Server{
			Addr:              cfg.ServerAddr,
			Handler:           otelhttp.NewHandler(r, cfg.ServiceName),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server",
				"addr", cfg.ServerAddr,
				"environment", cfg.Environment,
				"routes", len(routes),
			)
			serverErrors <- srv.ListenAndServe()
		}()

		// Wait for interrupt signal
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down gracefully", "signal", sig.String())

			// Graceful shutdown with timeout
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logger.Info("server stopped")
			return nil
		}
	},
}

// newLimiter returns the Redis limiter when rate_limit.redis_addr is set and
// the in-process limiter otherwise.
func newLimiter(cfg *config.Config) (ratelimit.Limiter, func()) {
	if cfg.RateLimit.RedisAddr == "" {
		logger.Info("rate limiting with in-process counters", "window", cfg.RateLimit.Window)
		return ratelimit.NewInMemory(cfg.RateLimit.Window), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
	logger.Info("rate limiting with redis", "addr", cfg.RateLimit.RedisAddr, "window", cfg.RateLimit.Window)
	return ratelimit.NewRedis(client, cfg.RateLimit.Window), func() {
		if err := client.Close(); err != nil {
			logger.Warn("closing redis client", "error", err)
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
