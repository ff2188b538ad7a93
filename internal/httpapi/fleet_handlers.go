package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auth"
	"vpfs.org/internal/fleet"
	"vpfs.org/internal/guard"
	"vpfs.org/internal/store"
)

// patchRoute maps a PATCH path suffix to the guard group it writes.
type patchRoute struct {
	path  string
	group string
}

// entity binds one fleet table to its routes.
type entity struct {
	records  *store.Records
	schema   *fleet.Schema
	table    *guard.Table
	resource audit.Resource

	// key wraps a single record in responses, listKey the list.
	key     string
	listKey string

	searchParam string
	like, exact []string

	createPerm string
	deletePerm string
	patches    []patchRoute

	stats func([]fleet.Record, time.Time) any
}

func (e *entity) load(ctx context.Context, id int64) (map[string]any, string, error) {
	rec, err := e.records.Find(ctx, id)
	if err != nil {
		return nil, "", err
	}
	snap, err := audit.Snapshot(rec)
	if err != nil {
		return nil, "", err
	}
	return snap, e.schema.Name(rec), nil
}

func (a *API) entityRoutes(e *entity) func(chi.Router) {
	audited := func(action audit.Action) func(http.Handler) http.Handler {
		rt := audit.Route{Action: action, Resource: e.resource}
		switch action {
		case audit.ActionCreate:
			rt.EnvelopeKey, rt.NameField = e.key, e.schema.NameField
		case audit.ActionUpdate, audit.ActionDelete:
			rt.Load = e.load
		}
		return a.intercept.Wrap(rt)
	}
	search := a.intercept.Wrap(audit.Route{Action: audit.ActionView, Resource: e.resource, SearchParam: e.searchParam})

	return func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requirePermission(auth.PermViewAll))
			r.Get("/", a.listRecords(e))
			r.Get("/stats", a.recordStats(e))
			r.With(search).Get("/search/{"+e.searchParam+"}", a.searchRecord(e))
			r.With(audited(audit.ActionView)).Get("/{id}", a.getRecord(e))
		})
		r.With(requirePermission(e.createPerm), audited(audit.ActionCreate)).Post("/", a.createRecord(e))
		r.With(guardFields(e.table), audited(audit.ActionUpdate)).Put("/{id}", a.updateRecord(e))
		for _, p := range e.patches {
			g, ok := e.table.Group(p.group)
			if !ok {
				panic(fmt.Sprintf("httpapi: %s has no field group %q", e.table.Resource, p.group))
			}
			r.With(requirePermission(g.Permission), onlyGroup(g), audited(audit.ActionUpdate)).
				Patch("/{id}/"+p.path, a.updateRecord(e))
		}
		r.With(requirePermission(e.deletePerm), audited(audit.ActionDelete)).Delete("/{id}", a.deleteRecord(e))
	}
}

func (a *API) listRecords(e *entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := e.records.List(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		now := a.now()
		out := make([]fleet.Record, len(recs))
		for i, rec := range recs {
			out[i] = e.schema.Decorate(rec, now)
		}
		respond(w, http.StatusOK, map[string]any{e.listKey: out})
	}
}

func (a *API) recordStats(e *entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := e.records.List(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		respond(w, http.StatusOK, map[string]any{"stats": e.stats(recs, a.now())})
	}
}

func (a *API) searchRecord(e *entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := strings.TrimSpace(chi.URLParam(r, e.searchParam))
		if term == "" {
			writeError(w, r, http.StatusBadRequest, "search term is required")
			return
		}
		rec, err := e.records.Search(r.Context(), term, e.like, e.exact)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, e.schema.Resource+" not found")
			return
		}
		if err != nil {
			respondError(w, r, err)
			return
		}
		respond(w, http.StatusOK, map[string]any{e.key: e.schema.Decorate(rec, a.now())})
	}
}

func (a *API) getRecord(e *entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r, e)
		if !ok {
			return
		}
		rec, err := e.records.Find(r.Context(), id)
		if err != nil {
			a.recordError(w, r, e, nil, err)
			return
		}
		respond(w, http.StatusOK, map[string]any{e.key: e.schema.Decorate(rec, a.now())})
	}
}

func (a *API) createRecord(e *entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := decodeJSON(r, &body); err != nil {
			writeBodyError(w, r, err)
			return
		}
		rec, err := e.schema.Prepare(body, fleet.Create)
		if err != nil {
			respondError(w, r, err)
			return
		}
		created, err := e.records.Create(r.Context(), rec)
		if err != nil {
			a.recordError(w, r, e, rec, err)
			return
		}
		respond(w, http.StatusCreated, map[string]any{e.key: e.schema.Decorate(created, a.now())})
	}
}

// updateRecord serves both the full PUT and the single-group PATCH routes.
// Unknown keys are dropped by the schema.
func (a *API) updateRecord(e *entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r, e)
		if !ok {
			return
		}
		var body map[string]any
		if err := decodeJSON(r, &body); err != nil {
			writeBodyError(w, r, err)
			return
		}
		current, err := e.records.Find(r.Context(), id)
		if err != nil {
			a.recordError(w, r, e, nil, err)
			return
		}
		changes, err := e.schema.PrepareUpdate(body, current)
		if err != nil {
			respondError(w, r, err)
			return
		}
		audit.NoteWrite(r.Context(), changes)
		updated, err := e.records.Update(r.Context(), id, changes)
		if err != nil {
			a.recordError(w, r, e, changes, err)
			return
		}
		respond(w, http.StatusOK, map[string]any{e.key: e.schema.Decorate(updated, a.now())})
	}
}

func (a *API) deleteRecord(e *entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := recordID(w, r, e)
		if !ok {
			return
		}
		if err := e.records.Delete(r.Context(), id); err != nil {
			a.recordError(w, r, e, nil, err)
			return
		}
		respond(w, http.StatusOK, map[string]any{"message": e.schema.Resource + " deleted"})
	}
}

// recordError answers store errors with entity-specific messages. A unique
// clash names the record already holding the submitted value.
func (a *API) recordError(w http.ResponseWriter, r *http.Request, e *entity, submitted fleet.Record, err error) {
	var conflict *store.ConflictError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, e.schema.Resource+" not found")
	case errors.As(err, &conflict) && conflict.Field != "":
		value := submitted.String(conflict.Field)
		owner, ferr := e.records.FindBy(r.Context(), conflict.Field, value)
		if ferr != nil {
			owner = nil
		}
		writeError(w, r, http.StatusBadRequest, e.schema.ConflictMessage(conflict.Field, value, owner))
	default:
		respondError(w, r, err)
	}
}

func recordID(w http.ResponseWriter, r *http.Request, e *entity) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusNotFound, e.schema.Resource+" not found")
		return 0, false
	}
	return id, true
}
