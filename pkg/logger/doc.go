// Package logger builds log/slog loggers with environment defaults and
// context-driven attributes.
//
// A LogHandlerDecorator runs registered ContextExtractors for every record, so
// request-scoped values (the active tenant, for instance) appear on every line
// logged with that context:
//
//	log := logger.New(
//		logger.WithEnvironment("production", "tenantd"),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "query executed", logger.Component("tenantdb"))
package logger
