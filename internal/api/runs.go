package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MikeSquared-Agency/tempo/internal/batch"
)

type runRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// createRun handles POST /api/v1/runs. The run executes within the request
// and the response carries its header.
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "runs are not enabled")
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := batch.ValidateRange(req.From, req.To); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := s.trigger(r.Context(), req.From, req.To)
	switch {
	case errors.Is(err, batch.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("triggered run failed", "from", req.From, "to", req.To, "error", err)
		writeError(w, http.StatusInternalServerError, "run failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, run.Info())
}
