package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// apiError is the JSON error body.
type apiError struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, apiError{Error: msg})
}

// handleListKeys returns the sorted key list.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.session.Store().Keys()
	if err != nil {
		s.logger.Error("key listing failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "key listing failed")
		return
	}
	sort.Strings(keys)
	s.writeJSON(w, http.StatusOK, keys)
}

// handleGetKey returns the raw entry for one key.
func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	if s.entries == nil {
		s.writeError(w, http.StatusNotImplemented, "store cannot list raw entries")
		return
	}

	key := chi.URLParam(r, "key")
	entries, err := s.entries.Entries()
	if err != nil {
		s.logger.Error("entry listing failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "entry listing failed")
		return
	}

	entry, ok := entries[key]
	if !ok {
		s.writeError(w, http.StatusNotFound, "key not found")
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

// handlePutKey decodes an entry body and writes it through the
// observation layer, so subscribers are notified.
func (s *Server) handlePutKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var entry store.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.writeEntry(key, entry) {
		s.writeError(w, http.StatusInternalServerError, "write failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeEntry dispatches a decoded entry to the typed write path for its
// kind. Writing through session values publishes the change.
func (s *Server) writeEntry(key string, entry store.Entry) bool {
	switch entry.Kind {
	case store.KindBool:
		return s.session.Bool(key, false).Set(entry.Bool)
	case store.KindInt:
		return s.session.Int(key, 0).Set(entry.Int)
	case store.KindFloat:
		return s.session.Float(key, 0).Set(entry.Float)
	case store.KindString:
		return s.session.String(key, "").Set(entry.Str)
	case store.KindStringSlice:
		return s.session.StringSlice(key, nil).Set(entry.Slice)
	default:
		return false
	}
}

// handleDeleteKey removes one key. Removing an absent key succeeds, so
// the delete is idempotent.
func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !s.session.Remove(key) {
		s.writeError(w, http.StatusInternalServerError, "remove failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClear removes every key.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if !s.session.Clear() {
		s.writeError(w, http.StatusInternalServerError, "clear failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
