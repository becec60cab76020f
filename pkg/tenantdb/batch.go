package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// FailurePolicy decides what a batch does when one tenant's unit of work fails.
type FailurePolicy int

const (
	// AbortOnError stops at the first failure and returns it.
	AbortOnError FailurePolicy = iota
	// ContinueOnError runs every tenant and returns all failures joined.
	ContinueOnError
)

func (p FailurePolicy) String() string {
	switch p {
	case AbortOnError:
		return "abort"
	case ContinueOnError:
		return "continue"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithFailurePolicy sets the failure policy. AbortOnError is the default.
func WithFailurePolicy(p FailurePolicy) BatchOption {
	return func(b *BatchRunner) { b.policy = p }
}

// WithIncludeInactive makes the batch visit inactive tenants too.
func WithIncludeInactive() BatchOption {
	return func(b *BatchRunner) { b.includeInactive = true }
}

// WithBatchLogger sets the logger.
func WithBatchLogger(l *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		if l != nil {
			b.logger = l
		}
	}
}

// BatchRunner runs a unit of work once per registered tenant, each in its own
// tenant scope. Tenants are visited sequentially in registry order.
type BatchRunner struct {
	registry        tenant.Registry
	runner          tenant.Runner
	policy          FailurePolicy
	includeInactive bool
	logger          *slog.Logger
}

// NewBatchRunner creates a batch runner.
func NewBatchRunner(registry tenant.Registry, runner tenant.Runner, opts ...BatchOption) *BatchRunner {
	if registry == nil || runner == nil {
		panic("tenantdb: batch runner requires a registry and a runner")
	}
	b := &BatchRunner{
		registry: registry,
		runner:   runner,
		policy:   AbortOnError,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RunForEachTenant calls fn for every tenant inside that tenant's scope.
// The tenant ID is passed alongside the scoped context.
func (b *BatchRunner) RunForEachTenant(ctx context.Context, fn func(ctx context.Context, tenantID uuid.UUID) error) error {
	tenants, err := b.registry.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	var errs []error
	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if !t.Active() && !b.includeInactive {
			continue
		}

		id := t.ID
		err := b.runner.RunWithTenant(ctx, id, func(ctx context.Context) error {
			return fn(ctx, id)
		})
		if err == nil {
			continue
		}

		b.logger.ErrorContext(ctx, "batch unit of work failed",
			logger.TenantID(id.String()),
			slog.String("policy", b.policy.String()),
			logger.Error(err))

		wrapped := fmt.Errorf("tenant %s: %w", id, err)
		if b.policy == AbortOnError {
			return wrapped
		}
		errs = append(errs, wrapped)
	}

	return errors.Join(errs...)
}
