package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// Check tests one dependency.
type Check func(ctx context.Context) error

const checkTimeout = 3 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthCheckHandler serves liveness when checks is empty and readiness
// otherwise. Readiness answers 503 if any check fails; failure details are
// logged, never returned.
func HealthCheckHandler(log *slog.Logger, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	names := slices.Sorted(maps.Keys(checks))

	return func(w http.ResponseWriter, r *http.Request) {
		if len(names) == 0 {
			writeHealth(w, http.StatusOK, healthResponse{Status: "alive"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		resp := healthResponse{Status: "ready", Checks: make(map[string]string, len(names))}
		code := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					slog.String("check", name),
					logger.Error(err))
				resp.Checks[name] = "fail"
				resp.Status = "not_ready"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		writeHealth(w, code, resp)
	}
}

func writeHealth(w http.ResponseWriter, code int, resp healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
