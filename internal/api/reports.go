package api

import (
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/tempo/internal/batch"
)

type dailyResponse struct {
	RunID   string              `json:"run_id"`
	From    string              `json:"from,omitempty"`
	To      string              `json:"to,omitempty"`
	Bands   []string            `json:"bands"`
	Days    []batch.DailyRecord `json:"days"`
	Overall batch.DailyRecord   `json:"overall"`
}

type customersResponse struct {
	RunID     string                 `json:"run_id"`
	Customers []batch.CustomerRecord `json:"customers"`
}

// dailyReport handles GET /api/v1/reports/daily?from=&to=
func (s *Server) dailyReport(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if err := batch.ValidateRange(from, to); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, ok := s.latestRun(w, r)
	if !ok {
		return
	}
	days, err := s.reader.ListDailyStats(r.Context(), info.ID, from, to)
	if err != nil {
		s.logger.Error("daily report", "run_id", info.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read daily stats")
		return
	}
	if days == nil {
		days = []batch.DailyRecord{}
	}
	writeJSON(w, http.StatusOK, dailyResponse{
		RunID:   info.ID.String(),
		From:    from,
		To:      to,
		Bands:   info.Bands,
		Days:    days,
		Overall: info.Overall,
	})
}

// customerReport handles GET /api/v1/reports/customers
func (s *Server) customerReport(w http.ResponseWriter, r *http.Request) {
	info, ok := s.latestRun(w, r)
	if !ok {
		return
	}
	customers, err := s.reader.ListCustomerStats(r.Context(), info.ID)
	if err != nil {
		s.logger.Error("customer report", "run_id", info.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read customer stats")
		return
	}
	if customers == nil {
		customers = []batch.CustomerRecord{}
	}
	writeJSON(w, http.StatusOK, customersResponse{RunID: info.ID.String(), Customers: customers})
}

// latestRun writes the error response itself when it returns false.
func (s *Server) latestRun(w http.ResponseWriter, r *http.Request) (*batch.RunInfo, bool) {
	info, err := s.reader.LatestRun(r.Context())
	if errors.Is(err, batch.ErrNoRuns) {
		writeError(w, http.StatusNotFound, "no runs recorded yet")
		return nil, false
	}
	if err != nil {
		s.logger.Error("latest run", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read runs")
		return nil, false
	}
	return info, true
}
