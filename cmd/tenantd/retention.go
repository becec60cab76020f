package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
)

// pruneNotesLoop deletes expired notes tenant by tenant until ctx ends.
func (app *application) pruneNotesLoop(ctx context.Context, batch *tenantdb.BatchRunner) {
	ticker := time.NewTicker(app.cfg.NotesRetentionEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			cutoff := start.Add(-app.cfg.NotesRetention)
			err := batch.RunForEachTenant(ctx, func(ctx context.Context, _ uuid.UUID) error {
				_, err := app.db.Exec(ctx, `DELETE FROM notes WHERE created_at < $1`, cutoff)
				return err
			})
			if err != nil {
				app.log.WarnContext(ctx, "notes retention run finished with errors",
					logger.Error(err), logger.Duration(time.Since(start)))
				continue
			}
			app.log.DebugContext(ctx, "notes retention run finished", logger.Duration(time.Since(start)))
		}
	}
}
