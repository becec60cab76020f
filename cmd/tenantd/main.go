// Command tenantd serves the tenant-isolated API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/tenantkit/pkg/config"
	"github.com/dmitrymomot/tenantkit/pkg/cors"
	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/principal"
	"github.com/dmitrymomot/tenantkit/pkg/redis"
	"github.com/dmitrymomot/tenantkit/pkg/statetoken"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("tenantd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = config.LoadEnv()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log, err := logger.NewFromConfig(cfg.Log,
		logger.WithContextExtractors(tenant.LoggerExtractor(), requestIDExtractor),
	)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.MigrateFS(ctx, pool, tenantdb.Migrations, tenantdb.MigrationsDir, cfg.Postgres, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	checks := map[string]httpserver.Check{"postgres": pg.Healthcheck(pool)}

	stateOpts := []statetoken.Option{statetoken.WithLogger(log)}
	if cfg.Redis.Enabled() {
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()

		checks["redis"] = redis.Healthcheck(rdb)
		if cfg.State.SingleUse {
			stateOpts = append(stateOpts, statetoken.WithReplayGuard(statetoken.NewRedisReplayGuard(rdb, "")))
		}
	}

	states, err := statetoken.NewFromConfig(cfg.State, stateOpts...)
	if err != nil {
		return fmt.Errorf("state tokens: %w", err)
	}
	principals, err := principal.NewFromConfig(cfg.Principal)
	if err != nil {
		return fmt.Errorf("principal tokens: %w", err)
	}

	registry := tenantdb.NewRegistry(pool)
	runner := tenantdb.NewRunner(pool, tenantdb.WithRunnerLogger(log))
	db := tenantdb.NewDB(pool)

	origins, err := cors.NewOriginResolver(registry, cfg.CORS, cors.WithLogger(log))
	if err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	defer origins.Close()
	// Tenants are provisioned outside tenantd, so this hook only covers
	// mutations made in-process; everything else ages out after CORS_CACHE_TTL.
	registry.OnChange(origins.OnTenantChange)

	resolver := tenant.NewResolver(registry,
		tenant.WithStateVerifier(states),
		tenant.WithPrincipal(principal.TenantClaim),
		tenant.WithResolverLogger(log),
	)

	flags, err := newFlags(cfg)
	if err != nil {
		return fmt.Errorf("feature flags: %w", err)
	}

	app := &application{
		log:        log,
		cfg:        cfg,
		db:         db,
		runner:     runner,
		resolver:   resolver,
		states:     states,
		principals: principals,
		origins:    origins,
		flags:      flags,
		checks:     checks,
	}
	router, err := app.routes()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.NotesRetention > 0 {
		batch := tenantdb.NewBatchRunner(registry, runner,
			tenantdb.WithFailurePolicy(tenantdb.ContinueOnError),
			tenantdb.WithBatchLogger(log))
		go app.pruneNotesLoop(ctx, batch)
	}

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(context.Context) { cancel() }),
	)
	if err := srv.Run(ctx, router); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return slog.String("request_id", id), true
	}
	return slog.Attr{}, false
}
