package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/oauthguard"
	"github.com/dmitrymomot/tenantkit/pkg/principal"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

const maxNoteBytes = 4 << 10

type note struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// me reports the scope the request runs in, read back from the database
// session so the response proves what row security sees.
func (app *application) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := tenant.MustIDFromContext(ctx)

	var setting string
	if err := app.db.QueryRow(ctx, `SELECT current_setting('app.current_tenant', true)`).Scan(&setting); err != nil {
		app.serverError(w, r, err)
		return
	}

	resp := map[string]any{"tenant_id": id, "db_tenant": setting}
	if claims, ok := principal.FromContext(ctx); ok {
		resp["subject"] = claims.Subject
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *application) listNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rows, err := app.db.Query(ctx, `SELECT id, body, created_at FROM notes ORDER BY created_at DESC, id DESC LIMIT 100`)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	notes, err := pgx.CollectRows(rows, pgx.RowToStructByPos[note])
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

func (app *application) createNote(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNoteBytes)).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	in.Body = strings.TrimSpace(in.Body)
	if in.Body == "" {
		http.Error(w, "Note body is required", http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	var n note
	err := app.db.QueryRow(ctx,
		`INSERT INTO notes (body) VALUES ($1) RETURNING id, body, created_at`, in.Body,
	).Scan(&n.ID, &n.Body, &n.CreatedAt)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// signIn runs after a successful OAuth callback and issues a principal
// token bound to the tenant the flow was started for.
func (app *application) signIn(w http.ResponseWriter, r *http.Request) {
	res, ok := oauthguard.ResultFromContext(r.Context())
	if !ok {
		app.serverError(w, r, errors.New("oauth result missing"))
		return
	}

	tok, err := app.principals.Issue(res.Provider+":"+res.Profile.ProviderUserID, res.TenantID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     tok,
		"tenant_id": res.TenantID,
		"email":     res.Profile.Email,
		"name":      res.Profile.Name,
	})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.log.ErrorContext(r.Context(), "request failed",
		logger.Error(err),
		logger.Component("api"))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
