package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vpfs.org/internal/audit"
	"vpfs.org/internal/auth"
	"vpfs.org/internal/store"
)

func (a *API) loadUser(ctx context.Context, id int64) (map[string]any, string, error) {
	u, err := a.auth.GetUser(ctx, id)
	if err != nil {
		return nil, "", err
	}
	snap, err := audit.Snapshot(u)
	if err != nil {
		return nil, "", err
	}
	return snap, u.Username, nil
}

func (a *API) userRoutes(r chi.Router) {
	r.Get("/", a.ListUsers)
	r.Get("/permissions", a.PermissionCatalog)
	r.With(a.intercept.Wrap(audit.Route{
		Action:      audit.ActionCreate,
		Resource:    audit.ResourceUser,
		EnvelopeKey: "user",
		NameField:   "username",
	})).Post("/", a.CreateUser)
	r.With(a.intercept.Wrap(audit.Route{
		Action:   audit.ActionUpdate,
		Resource: audit.ResourceUser,
		Load:     a.loadUser,
	})).Put("/{id}", a.UpdateUser)
	r.With(a.intercept.Wrap(audit.Route{
		Action:   audit.ActionDelete,
		Resource: audit.ResourceUser,
		Load:     a.loadUser,
	})).Delete("/{id}", a.DeleteUser)
}

func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if users == nil {
		users = []*auth.User{}
	}
	respond(w, http.StatusOK, map[string]any{"users": users})
}

// PermissionCatalog lists the grantable permissions grouped for display.
func (a *API) PermissionCatalog(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"groups":      auth.PermissionGroups,
		"permissions": auth.AllPermissions(),
	})
}

func (a *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in auth.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeBodyError(w, r, err)
		return
	}
	u, err := a.auth.CreateUser(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"user": u})
}

func (a *API) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := auth.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}
	var in auth.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeBodyError(w, r, err)
		return
	}
	u, err := a.auth.UpdateUser(r.Context(), id, in)
	if err != nil {
		userError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"user": u})
}

func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := auth.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}
	if err := a.auth.DeleteUser(r.Context(), id); err != nil {
		userError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"message": "user deleted"})
}

func userError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}
	respondError(w, r, err)
}
