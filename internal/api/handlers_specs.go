package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/HendryAvila/specgate/internal/specs"
	"github.com/HendryAvila/specgate/internal/validate"
	"github.com/HendryAvila/specgate/internal/workspace"
)

// handleListSpecs lists discovered specs, optionally filtered by status.
func (s *Server) handleListSpecs(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	list, err := ws.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		jsonError(w, "failed to list specs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*specs.Spec{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"specsDir": ws.Config().SpecsDir,
		"specs":    list,
	})
}

// handleGetSpec returns one spec with its frontmatter, summary and
// sub-spec names.
func (s *Server) handleGetSpec(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	d, err := ws.Describe(r.Context(), refParam(r))
	if err != nil {
		refError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleValidateSpec validates one spec.
func (s *Server) handleValidateSpec(w http.ResponseWriter, r *http.Request) {
	vo, ok := validateOptions(w, r)
	if !ok {
		return
	}
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	spec, err := ws.Find(r.Context(), refParam(r))
	if err != nil {
		refError(w, err)
		return
	}
	rep, err := ws.ValidateSpec(r.Context(), spec, vo)
	if err != nil {
		jsonError(w, "validation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.record(ws, rep)
	writeJSON(w, http.StatusOK, rep)
}

// handleValidateAll validates every spec, or those named by repeated
// ?spec= parameters.
func (s *Server) handleValidateAll(w http.ResponseWriter, r *http.Request) {
	vo, ok := validateOptions(w, r)
	if !ok {
		return
	}
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	rep, err := ws.Validate(r.Context(), r.URL.Query()["spec"], vo)
	if err != nil {
		refError(w, err)
		return
	}
	s.record(ws, rep.Specs...)
	writeJSON(w, http.StatusOK, rep)
}

// handleTokens returns the token sizes of one spec.
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	tr, err := ws.Tokens(r.Context(), refParam(r))
	if err != nil {
		refError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := s.open(r.Context())
	if err != nil {
		s.log.Error("opening workspace", "error", err)
		jsonError(w, "failed to open workspace: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return ws, true
}

func (s *Server) record(ws *workspace.Workspace, reports ...*validate.SpecReport) {
	if s.history == nil {
		return
	}
	// Workspace.Record logs failures; the response does not depend on them.
	ws.Record(s.history, reports...)
}

// refParam returns the {ref} URL parameter. Nested spec paths arrive
// with their slashes escaped as %2F.
func refParam(r *http.Request) string {
	raw := chi.URLParam(r, "ref")
	if ref, err := url.PathUnescape(raw); err == nil {
		return ref
	}
	return raw
}

func validateOptions(w http.ResponseWriter, r *http.Request) (workspace.ValidateOptions, bool) {
	var vo workspace.ValidateOptions
	q := r.URL.Query()
	for key, dst := range map[string]**bool{
		"strict": &vo.Strict,
		"xref":   &vo.CheckCrossReferences,
	} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, key+" must be true or false", http.StatusBadRequest)
			return vo, false
		}
		*dst = &b
	}
	return vo, true
}

func refError(w http.ResponseWriter, err error) {
	switch {
	case workspace.IsNotFound(err):
		jsonError(w, err.Error(), http.StatusNotFound)
	case workspace.IsAmbiguous(err):
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}
