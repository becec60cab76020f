package tenant

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ErrorHandler handles errors that occur during tenant resolution or while
// running the request's transaction.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// middlewareConfig holds middleware configuration.
type middlewareConfig struct {
	errorHandler ErrorHandler
	skipPaths    []string
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*middlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *middlewareConfig) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets paths that bypass tenant resolution entirely.
// A request is skipped when its path equals an entry or lies below it.
func WithSkipPaths(paths ...string) Option {
	return func(c *middlewareConfig) {
		c.skipPaths = paths
	}
}

// WithLogger sets a custom logger for the middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(c *middlewareConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// errHandlerFailed makes the runner roll back when the handler answered with a server error.
var errHandlerFailed = errors.New("handler responded with server error")

// Middleware wraps every request, except skipped paths, in exactly one
// tenant-scoped transaction. The tenant comes from resolver; a request without
// a tenant is rejected as unauthorized.
//
// The response is buffered until the transaction outcome is known: a handler
// status of 500 or above rolls the transaction back, and a failed commit
// replaces the buffered response with an error.
func Middleware(resolver *Resolver, runner Runner, opts ...Option) func(http.Handler) http.Handler {
	if resolver == nil || runner == nil {
		panic("tenant: middleware requires a resolver and a runner")
	}

	cfg := &middlewareConfig{
		errorHandler: DefaultErrorHandler,
		skipPaths:    []string{"/health"},
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			id, err := resolver.Resolve(r)
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			if id == uuid.Nil {
				cfg.errorHandler(w, r, ErrTenantNotResolved)
				return
			}

			bw := newBufferedWriter()
			err = runner.RunWithTenant(r.Context(), id, func(ctx context.Context) error {
				next.ServeHTTP(bw, r.WithContext(ctx))
				if bw.status >= http.StatusInternalServerError {
					return errHandlerFailed
				}
				// An aborted request must not commit.
				return ctx.Err()
			})

			switch {
			case err == nil, errors.Is(err, errHandlerFailed):
				bw.flushTo(w)
			default:
				cfg.logger.ErrorContext(r.Context(), "tenant transaction failed",
					slog.String("tenant_id", id.String()),
					slog.Any("error", err))
				cfg.errorHandler(w, r, err)
			}
		})
	}
}

func (c *middlewareConfig) skip(path string) bool {
	for _, p := range c.skipPaths {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

// DefaultErrorHandler maps resolution failures to a uniform 401 so that callers
// cannot tell which check failed.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantNotResolved),
		errors.Is(err, ErrTenantMismatch),
		errors.Is(err, ErrInvalidState):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrInactiveTenant):
		http.Error(w, "Tenant is inactive", http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// bufferedWriter holds the response until the transaction has been settled.
type bufferedWriter struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

// flushTo copies the buffered response to w. Vary is merged with what outer
// middleware already set; every other header set by the handler wins.
func (b *bufferedWriter) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		if k == "Vary" {
			dst[k] = mergeVary(dst[k], v)
			continue
		}
		dst[k] = v
	}
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body.Bytes())
}

func mergeVary(outer, inner []string) []string {
	out := slices.Clone(outer)
	seen := make(map[string]struct{})
	for _, line := range outer {
		for name := range strings.SplitSeq(line, ",") {
			seen[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
		}
	}
	for _, line := range inner {
		for name := range strings.SplitSeq(line, ",") {
			name = strings.TrimSpace(name)
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok || name == "" {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
