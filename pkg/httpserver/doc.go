// Package httpserver runs the service's HTTP listener with graceful shutdown
// and provides liveness and readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(func(context.Context) { pool.Close() }),
//	)
//	r.Get("/health", httpserver.HealthCheckHandler(log, map[string]httpserver.Check{
//		"postgres": pg.Healthcheck(pool),
//	}))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run wraps listen errors with ErrStart and Shutdown wraps drain errors with
// ErrShutdown.
package httpserver
