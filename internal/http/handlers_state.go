package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

type stateResponse struct {
	State json.RawMessage `json:"state"`
}

// handleGetState returns the stored document as-is, or null.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.Download(r.Context(), userParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data != nil && !json.Valid(data) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Stored state is not valid JSON",
			applog.FieldUserID, userParam(r))
		data = nil
	}
	writeJSON(w, http.StatusOK, stateResponse{State: data})
}

// handlePutState replaces the user's document with the uploaded one.
func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", ledger.ErrMalformedSnapshot, err))
		return
	}
	if len(req.State) == 0 {
		writeError(w, r, fmt.Errorf("%w: missing state", ledger.ErrMalformedSnapshot))
		return
	}

	user := userParam(r)
	if _, err := s.ledger.Upload(r.Context(), user, req.State); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(r.Context(), user)
	writeOK(w)
}
