package api

import (
	"net/http"
	"strconv"

	"github.com/HendryAvila/specgate/internal/history"
)

// handleHistory searches recorded issues. Without ?q= it returns the most
// recent issues together with the latest runs.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		jsonError(w, "history is disabled", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	specPath := q.Get("spec")
	if specPath != "" {
		// Resolve prefixes like "001"; specs deleted since keep their raw path.
		if spec, err := ws.Find(r.Context(), specPath); err == nil {
			specPath = spec.Path
		}
	}

	issues, err := s.history.Search(q.Get("q"), history.SearchOptions{
		Project:  ws.Project(),
		SpecPath: specPath,
		Severity: q.Get("severity"),
		Limit:    limit,
	})
	if err != nil {
		jsonError(w, "history search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if issues == nil {
		issues = []history.Issue{}
	}

	resp := map[string]any{"issues": issues}
	if q.Get("q") == "" {
		runs, err := s.history.Recent(ws.Project(), specPath, limit)
		if err != nil {
			jsonError(w, "listing runs failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []history.Run{}
		}
		resp["runs"] = runs
	}
	writeJSON(w, http.StatusOK, resp)
}
