package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tempo/internal/aggregate"
	"github.com/MikeSquared-Agency/tempo/internal/batch"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReader struct {
	info      *batch.RunInfo
	err       error
	daily     []batch.DailyRecord
	customers []batch.CustomerRecord

	gotFrom, gotTo string
}

func (f *fakeReader) LatestRun(context.Context) (*batch.RunInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.info == nil {
		return nil, batch.ErrNoRuns
	}
	return f.info, nil
}

func (f *fakeReader) ListDailyStats(_ context.Context, _ uuid.UUID, from, to string) ([]batch.DailyRecord, error) {
	f.gotFrom, f.gotTo = from, to
	return f.daily, nil
}

func (f *fakeReader) ListCustomerStats(context.Context, uuid.UUID) ([]batch.CustomerRecord, error) {
	return f.customers, nil
}

func populatedReader() *fakeReader {
	return &fakeReader{
		info: &batch.RunInfo{
			ID:         uuid.MustParse("6c1f0d4e-8a0b-4c53-9a57-3f8a2d9b1e20"),
			FinishedAt: time.Date(2025, 10, 3, 12, 0, 0, 0, time.UTC),
			Bands:      []string{"0-10s", "10-30s", "30s+"},
			Overall:    batch.DailyRecord{Date: aggregate.OverallDate, Total: 3},
		},
		daily: []batch.DailyRecord{
			{Date: "2025-10-01", Total: 2, Counts: []int{1, 1, 0}},
			{Date: "2025-10-02", Total: 1, Counts: []int{0, 0, 1}},
		},
		customers: []batch.CustomerRecord{{ConversationID: "alpha", Total: 2}},
	}
}

func do(t *testing.T, srv *Server, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(8750, "", &fakeReader{}, nil, discardLogger())

	w := do(t, srv, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Run("no runs", func(t *testing.T) {
		srv := NewServer(8750, "", &fakeReader{}, nil, discardLogger())
		w := do(t, srv, http.MethodGet, "/api/v1/tempo/status", "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body statusResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Agent != "tempo" || body.Status != "idle" || body.LastRunID != "" {
			t.Errorf("unexpected status %+v", body)
		}
	})

	t.Run("with run", func(t *testing.T) {
		srv := NewServer(8750, "", populatedReader(), nil, discardLogger())
		w := do(t, srv, http.MethodGet, "/api/v1/tempo/status", "", "")
		var body statusResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Status != "ready" || body.LastRunID != "6c1f0d4e-8a0b-4c53-9a57-3f8a2d9b1e20" || body.LastRunAt == nil {
			t.Errorf("unexpected status %+v", body)
		}
	})

	t.Run("reader error", func(t *testing.T) {
		srv := NewServer(8750, "", &fakeReader{err: errors.New("db down")}, nil, discardLogger())
		w := do(t, srv, http.MethodGet, "/api/v1/tempo/status", "", "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := NewServer(8750, "", &fakeReader{}, nil, discardLogger())

	w := do(t, srv, http.MethodGet, "/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDailyReport(t *testing.T) {
	reader := populatedReader()
	srv := NewServer(8750, "", reader, nil, discardLogger())

	w := do(t, srv, http.MethodGet, "/api/v1/reports/daily?from=2025-10-01&to=2025-10-02", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if reader.gotFrom != "2025-10-01" || reader.gotTo != "2025-10-02" {
		t.Errorf("range passed to reader = %q..%q", reader.gotFrom, reader.gotTo)
	}

	var body dailyResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Days) != 2 || body.Days[1].Counts[2] != 1 {
		t.Errorf("days = %+v", body.Days)
	}
	if len(body.Bands) != 3 || body.Overall.Total != 3 {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestDailyReport_BadRange(t *testing.T) {
	srv := NewServer(8750, "", populatedReader(), nil, discardLogger())

	for _, q := range []string{"from=10/01/2025", "from=2025-10-05&to=2025-10-01"} {
		w := do(t, srv, http.MethodGet, "/api/v1/reports/daily?"+q, "", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestReports_NoRuns(t *testing.T) {
	srv := NewServer(8750, "", &fakeReader{}, nil, discardLogger())

	for _, path := range []string{"/api/v1/reports/daily", "/api/v1/reports/customers"} {
		w := do(t, srv, http.MethodGet, path, "", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestCustomerReport(t *testing.T) {
	srv := NewServer(8750, "", populatedReader(), nil, discardLogger())

	w := do(t, srv, http.MethodGet, "/api/v1/reports/customers", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body customersResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Customers) != 1 || body.Customers[0].ConversationID != "alpha" {
		t.Errorf("customers = %+v", body.Customers)
	}
}

func TestBearerAuth(t *testing.T) {
	srv := NewServer(8750, "s3cret", populatedReader(), nil, discardLogger())

	if w := do(t, srv, http.MethodGet, "/api/v1/reports/customers", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/v1/reports/customers", "", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/v1/reports/customers", "", "s3cret"); w.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("health must stay open, got %d", w.Code)
	}
}

func TestCreateRun(t *testing.T) {
	var gotFrom, gotTo string
	trigger := func(_ context.Context, from, to string) (*batch.Run, error) {
		gotFrom, gotTo = from, to
		return &batch.Run{
			ID:      uuid.New(),
			From:    from,
			To:      to,
			Counts:  batch.Counts{Pairs: 5},
			Summary: aggregate.Aggregate(nil, aggregate.ThreeBands),
		}, nil
	}
	srv := NewServer(8750, "s3cret", &fakeReader{}, trigger, discardLogger())

	w := do(t, srv, http.MethodPost, "/api/v1/runs", `{"from":"2025-10-01","to":"2025-10-07"}`, "s3cret")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotFrom != "2025-10-01" || gotTo != "2025-10-07" {
		t.Errorf("trigger got %q..%q", gotFrom, gotTo)
	}
	var info batch.RunInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if info.Counts.Pairs != 5 || info.From != "2025-10-01" {
		t.Errorf("info = %+v", info)
	}

	// An empty body runs over every date.
	w = do(t, srv, http.MethodPost, "/api/v1/runs", "", "s3cret")
	if w.Code != http.StatusCreated || gotFrom != "" || gotTo != "" {
		t.Errorf("empty body: code %d, range %q..%q", w.Code, gotFrom, gotTo)
	}
}

func TestCreateRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		trigger TriggerFunc
		body    string
		want    int
	}{
		{name: "disabled", trigger: nil, body: "{}", want: http.StatusServiceUnavailable},
		{name: "bad json", trigger: okTrigger, body: "{", want: http.StatusBadRequest},
		{name: "bad range", trigger: okTrigger, body: `{"from":"2025-10-07","to":"2025-10-01"}`, want: http.StatusBadRequest},
		{name: "busy", trigger: failingTrigger(batch.ErrRunInProgress), body: "{}", want: http.StatusConflict},
		{name: "run failed", trigger: failingTrigger(errors.New("list conversations: boom")), body: "{}", want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(8750, "s3cret", &fakeReader{}, tt.trigger, discardLogger())
			w := do(t, srv, http.MethodPost, "/api/v1/runs", tt.body, "s3cret")
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestCreateRun_RequiresToken(t *testing.T) {
	called := false
	trigger := func(context.Context, string, string) (*batch.Run, error) {
		called = true
		return &batch.Run{ID: uuid.New()}, nil
	}
	srv := NewServer(8750, "", &fakeReader{}, trigger, discardLogger())

	w := do(t, srv, http.MethodPost, "/api/v1/runs", "{}", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without an API token, got %d", w.Code)
	}
	if called {
		t.Error("trigger must not run without an API token")
	}
	if w := do(t, srv, http.MethodGet, "/api/v1/reports/customers", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("reports must stay open when no token is set, got %d", w.Code)
	}
}

func okTrigger(context.Context, string, string) (*batch.Run, error) {
	return &batch.Run{ID: uuid.New()}, nil
}

func failingTrigger(err error) TriggerFunc {
	return func(context.Context, string, string) (*batch.Run, error) {
		return nil, err
	}
}
