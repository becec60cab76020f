// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for struct tag parsing. Every component of the
// service exposes its own Config struct; cmd/tenantd composes them:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
// Each configuration type is parsed once per process and then cached. Use
// ResetCache in tests after changing the environment.
package config
