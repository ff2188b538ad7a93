package httpapi

import (
	"net/http"

	"vpfs.org/internal/audit"
)

func (a *API) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q, err := audit.QueryFromValues(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}
	page, err := a.audit.Search(r.Context(), q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"logs":   page.Logs,
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

func (a *API) AuditStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.audit.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"stats": st})
}
