package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.RWMutex
	cache   = make(map[reflect.Type]any)

	dotenvOnce sync.Once
)

// LoadEnv loads the given .env files into the process environment.
// Later files do not override variables set by earlier ones or by the process.
// With no arguments it loads ./.env and ignores a missing file.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		dotenvOnce.Do(func() { _ = godotenv.Load() })
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Load parses environment variables into v using `env` struct tags.
// Each configuration type is parsed once; later calls are served from cache.
//
//	type Config struct {
//		DatabaseURL string `env:"DATABASE_URL,required"`
//		Port        int    `env:"PORT" envDefault:"8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	_ = LoadEnv()

	typ := reflect.TypeFor[T]()

	cacheMu.RLock()
	cached, ok := cache[typ]
	cacheMu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cacheMu.Lock()
	if existing, ok := cache[typ]; ok {
		parsed = existing.(T)
	} else {
		cache[typ] = parsed
	}
	cacheMu.Unlock()

	*v = parsed
	return nil
}

// MustLoad is like Load but panics on failure. Intended for startup code.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// ResetCache drops every cached configuration. Tests use it after changing
// the environment.
func ResetCache() {
	cacheMu.Lock()
	cache = make(map[reflect.Type]any)
	cacheMu.Unlock()
}
