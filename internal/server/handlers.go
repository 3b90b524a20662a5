package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/devscout/pkg/candidate"
	"github.com/matzehuels/devscout/pkg/discovery"
	errs "github.com/matzehuels/devscout/pkg/errors"
	"github.com/matzehuels/devscout/pkg/export"
	"github.com/matzehuels/devscout/pkg/rank"
	"github.com/matzehuels/devscout/pkg/registry"
	"github.com/matzehuels/devscout/pkg/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// Sessions
// =============================================================================

type sessionCreated struct {
	ID string `json:"id"`
}

type searchRequest struct {
	Query    string `json:"query"`
	Registry string `json:"registry"`
	Mode     string `json:"mode"`
}

type saveRequest struct {
	Username string   `json:"username"`
	Labels   []string `json:"labels"`
	Notes    string   `json:"notes"`
	SavedBy  string   `json:"saved_by"`
}

func (s *Server) createSession(w http.ResponseWriter, _ *http.Request) {
	id, err := s.newSession()
	if err != nil {
		s.logger.Warn("session limit reached", "max", s.cfg.MaxSessions)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionCreated{ID: id})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.State())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.dropSession(chi.URLParam(r, "id")) {
		writeError(w, errs.New(errs.ErrCodeNotFound, "session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	reg, err := registry.ParseRegistry(req.Registry)
	if err != nil {
		writeError(w, err)
		return
	}
	mode, err := rank.ParseMode(req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondState(w, orch, orch.Search(r.Context(), req.Query, reg, mode))
}

func (s *Server) loadMore(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respondState(w, orch, orch.LoadMore(r.Context()))
}

// respondState writes the snapshot after a search or load-more. Upstream
// failures are already recorded in the snapshot's error slot, so only
// request-level problems become HTTP errors.
func (s *Server) respondState(w http.ResponseWriter, orch *discovery.Orchestrator, err error) {
	if err != nil {
		switch errs.GetCode(err) {
		case errs.ErrCodeRateLimit, errs.ErrCodeFetchFailed:
			s.logger.Debug("search failed", "err", err)
		default:
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, orch.State())
}

func (s *Server) saveFromSession(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req saveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, found := findCandidate(orch.State().Results, req.Username)
	if !found {
		writeError(w, errs.New(errs.ErrCodeNotFound, "candidate %q is not in this session", req.Username))
		return
	}
	rec := store.FromCandidate(c, req.SavedBy)
	rec.Labels = req.Labels
	rec.Notes = req.Notes
	saved, err := s.cfg.Store.Save(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*discovery.Orchestrator, bool) {
	orch, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, errs.New(errs.ErrCodeNotFound, "session not found"))
	}
	return orch, ok
}

func findCandidate(list []candidate.Candidate, username string) (candidate.Candidate, bool) {
	key := store.Key(username)
	if key == "" {
		return candidate.Candidate{}, false
	}
	for _, c := range list {
		if store.Key(c.Username()) == key {
			return c, true
		}
	}
	return candidate.Candidate{}, false
}

// =============================================================================
// Classify
// =============================================================================

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quality, err := parseScore(q.Get("quality"), "quality")
	if err != nil {
		writeError(w, err)
		return
	}
	popularity, err := parseScore(q.Get("popularity"), "popularity")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rank.Classify(quality, popularity))
}

func parseScore(raw, name string) (float64, error) {
	if raw == "" {
		return 0, errs.New(errs.ErrCodeInvalidInput, "%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errs.New(errs.ErrCodeInvalidInput, "%s must be a number", name)
	}
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, errs.New(errs.ErrCodeInvalidInput, "%s must be between 0 and 1", name)
	}
	return v, nil
}

// =============================================================================
// Saved candidates
// =============================================================================

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) listSaved(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := s.cfg.Store.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []store.Saved{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createSaved(w http.ResponseWriter, r *http.Request) {
	var rec store.Saved
	if err := decodeJSON(r, &rec); err != nil {
		writeError(w, err)
		return
	}
	if rec.Username == "" {
		rec.Username = rec.Candidate.Username()
	}
	saved, err := s.cfg.Store.Save(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) getSaved(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cfg.Store.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updateSaved(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	st, err := store.ParseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	username := chi.URLParam(r, "username")
	if err := s.cfg.Store.UpdateStatus(r.Context(), username, st); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.cfg.Store.Get(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteSaved(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Store.Delete(r.Context(), chi.URLParam(r, "username")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportSaved(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	format := export.Format(strings.ToLower(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatCSV
	}
	list, err := s.cfg.Store.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, list); err != nil {
		writeError(w, err)
		return
	}
	contentType := "application/json"
	if format == export.FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(format, s.now().UTC().Truncate(24*time.Hour))+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func filterFrom(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{Label: q.Get("label")}
	if raw := q.Get("status"); raw != "" {
		st, err := store.ParseStatus(raw)
		if err != nil {
			return store.Filter{}, err
		}
		f.Status = st
	}
	return f, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
