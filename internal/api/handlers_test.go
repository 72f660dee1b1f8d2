package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/crop-price-monitor/internal/daterange"
	"github.com/trogers1052/crop-price-monitor/internal/models"
	"github.com/trogers1052/crop-price-monitor/internal/monitor"
	"github.com/trogers1052/crop-price-monitor/internal/state"
	"go.uber.org/zap"
)

var (
	testToday = civil.Date{Year: 2023, Month: 2, Day: 4}
	errDown   = errors.New("backend down")
)

// stubBackend answers history queries with a daily series and fails the rest
// unless up is set
type stubBackend struct {
	up        bool
	lastRange daterange.Range
	lastDays  int
}

func (b *stubBackend) Locations(_ context.Context) ([]models.Location, error) {
	if !b.up {
		return nil, errDown
	}
	return []models.Location{{ID: "lahore", Name: "Lahore"}}, nil
}

func (b *stubBackend) Commodities(_ context.Context) ([]models.Commodity, error) {
	if !b.up {
		return nil, errDown
	}
	return []models.Commodity{{ID: "wheat", Name: "Wheat"}}, nil
}

func (b *stubBackend) PriceHistory(_ context.Context, _, _ string, r daterange.Range) (*models.PriceHistory, error) {
	b.lastRange = r
	if !b.up {
		return nil, errDown
	}
	var data []models.PricePoint
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		data = append(data, models.PricePoint{Date: d, Price: decimal.NewFromInt(int64(100 + d.Day))})
	}
	return &models.PriceHistory{Data: data}, nil
}

func (b *stubBackend) Forecast(_ context.Context, _, _ string, days int) (*models.Forecast, error) {
	b.lastDays = days
	if !b.up {
		return nil, errDown
	}
	var points []models.PricePoint
	for i := 1; i <= days; i++ {
		points = append(points, models.PricePoint{Date: testToday.AddDays(i), Price: decimal.NewFromInt(200)})
	}
	return &models.Forecast{Forecast: points, UsingModel: true}, nil
}

func (b *stubBackend) RealtimePrices(_ context.Context, location string) ([]models.RealtimePrice, error) {
	if !b.up {
		return nil, errDown
	}
	return []models.RealtimePrice{{Commodity: "Wheat", Location: "Lahore", Price: decimal.NewFromInt(4000), Date: testToday}}, nil
}

type stubHistory struct{ records []*models.AlertHistory }

func (s *stubHistory) GetAlertHistoryByUser(userID string, limit int) ([]*models.AlertHistory, error) {
	var out []*models.AlertHistory
	for _, r := range s.records {
		if r.UserID == userID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(_ context.Context) error { return p.err }

type testServer struct {
	router  *mux.Router
	backend *stubBackend
	store   *state.Store
}

func newTestServer(t *testing.T, up bool) *testServer {
	t.Helper()
	backend := &stubBackend{up: up}
	svc := monitor.NewService(backend, nil, monitor.Options{Today: func() civil.Date { return testToday }}, zap.NewNop())
	store := state.NewStore(state.NewMemoryKV(), "")
	history := &stubHistory{records: []*models.AlertHistory{{ID: 1, UserID: "alice", AlertID: "a1"}}}

	h := NewHandler(svc, store, history, nil, zap.NewNop())
	h.now = func() time.Time { return time.Date(2023, 2, 4, 8, 0, 0, 0, time.UTC) }
	return &testServer{router: SetupRoutes(h), backend: backend, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(t, true)
		rec := s.do(t, "GET", "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "healthy")
	})

	t.Run("database down", func(t *testing.T) {
		svc := monitor.NewService(&stubBackend{}, nil, monitor.Options{}, zap.NewNop())
		h := NewHandler(svc, state.NewStore(state.NewMemoryKV(), ""), nil, stubPinger{err: errors.New("refused")}, zap.NewNop())
		rec := httptest.NewRecorder()
		SetupRoutes(h).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestGetPriceHistory(t *testing.T) {
	t.Run("explicit range is sampled", func(t *testing.T) {
		s := newTestServer(t, true)
		rec := s.do(t, "GET", "/api/v1/prices/history?commodity=Wheat&location=Lahore&start_date=2022-02-04&end_date=2023-02-04&width=360", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res monitor.HistoryResult
		decode(t, rec, &res)
		assert.Equal(t, monitor.SourceBackend, res.Source)
		assert.Equal(t, 365, res.Days)
		assert.Equal(t, 366, res.TotalPoints)
		assert.LessOrEqual(t, len(res.Points), 37)
		assert.Equal(t, civil.Date{Year: 2022, Month: 2, Day: 4}, res.Points[0].Date)
		assert.Equal(t, testToday, res.Points[len(res.Points)-1].Date)
	})

	t.Run("default window is the last 90 days", func(t *testing.T) {
		s := newTestServer(t, true)
		rec := s.do(t, "GET", "/api/v1/prices/history?commodity=Wheat&location=Lahore", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, daterange.LastDays(testToday, 90), s.backend.lastRange)
	})

	t.Run("backend down falls back to sample data", func(t *testing.T) {
		s := newTestServer(t, false)
		rec := s.do(t, "GET", "/api/v1/prices/history?commodity=Wheat&location=Lahore", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var res monitor.HistoryResult
		decode(t, rec, &res)
		assert.True(t, res.Fallback)
		assert.NotEmpty(t, res.Points)
	})

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"malformed start date", "start_date=2023-2-1", "invalid date"},
		{"impossible end date", "end_date=2023-02-30", "invalid date"},
		{"start after end", "start_date=2023-02-03&end_date=2023-02-01", "start date is after end date"},
		{"end in future", "start_date=2023-02-01&end_date=2023-02-05", "end date is in the future"},
		{"range too long", "start_date=0001-01-01", "date range too long"},
		{"bad width", "width=abc", "width"},
		{"missing commodity", "commodity=&location=Lahore", "commodity is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, true)
			path := "/api/v1/prices/history?" + tt.query
			if tt.name != "missing commodity" {
				path += "&commodity=Wheat&location=Lahore"
			}
			rec := s.do(t, "GET", path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestGetForecast(t *testing.T) {
	t.Run("default horizon is a week", func(t *testing.T) {
		s := newTestServer(t, true)
		rec := s.do(t, "GET", "/api/v1/prices/forecast?commodity=Wheat&location=Lahore", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 7, s.backend.lastDays)

		var res monitor.ForecastResult
		decode(t, rec, &res)
		assert.True(t, res.UsingModel)
		assert.Len(t, res.Points, 7)
	})

	t.Run("future end date is allowed", func(t *testing.T) {
		s := newTestServer(t, true)
		rec := s.do(t, "GET", "/api/v1/prices/forecast?commodity=Wheat&location=Lahore&start_date=2023-02-04&end_date=2023-02-18", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 14, s.backend.lastDays)
	})

	t.Run("days parameter", func(t *testing.T) {
		s := newTestServer(t, true)
		rec := s.do(t, "GET", "/api/v1/prices/forecast?commodity=Wheat&location=Lahore&days=30", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 30, s.backend.lastDays)
	})

	t.Run("bad days", func(t *testing.T) {
		s := newTestServer(t, true)
		rec := s.do(t, "GET", "/api/v1/prices/forecast?commodity=Wheat&location=Lahore&days=0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("days beyond the longest horizon", func(t *testing.T) {
		s := newTestServer(t, false)
		rec := s.do(t, "GET", "/api/v1/prices/forecast?commodity=Wheat&location=Lahore&days=3000000", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "days must be at most 365")
		assert.Zero(t, s.backend.lastDays)
	})

	t.Run("end date beyond the longest horizon", func(t *testing.T) {
		s := newTestServer(t, false)
		rec := s.do(t, "GET", "/api/v1/prices/forecast?commodity=Wheat&location=Lahore&end_date=9999-12-31", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "date range too long")
		assert.Zero(t, s.backend.lastDays)
	})

	t.Run("longest horizon is served from sample data", func(t *testing.T) {
		s := newTestServer(t, false)
		rec := s.do(t, "GET", "/api/v1/prices/forecast?commodity=Wheat&location=Lahore&days=365", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res monitor.ForecastResult
		decode(t, rec, &res)
		assert.True(t, res.Fallback)
		assert.Equal(t, 365, res.Days)
		assert.NotEmpty(t, res.Points)
	})
}

func TestCatalogAndRealtime(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, "GET", "/api/v1/commodities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var commodities struct {
		Commodities []models.Commodity `json:"commodities"`
		Fallback    bool               `json:"fallback"`
	}
	decode(t, rec, &commodities)
	assert.True(t, commodities.Fallback)
	assert.NotEmpty(t, commodities.Commodities)

	rec = s.do(t, "GET", "/api/v1/locations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "GET", "/api/v1/prices/realtime?location=Lahore", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var realtime monitor.RealtimeResult
	decode(t, rec, &realtime)
	assert.True(t, realtime.Fallback)
	assert.NotEmpty(t, realtime.Prices)
}

func TestGetDashboard(t *testing.T) {
	s := newTestServer(t, true)
	rec := s.do(t, "GET", "/api/v1/dashboard?commodity=Wheat&location=Lahore", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res monitor.DashboardResult
	decode(t, rec, &res)
	require.NotNil(t, res.History)
	require.NotNil(t, res.Forecast)
	require.NotNil(t, res.Realtime)
	assert.Equal(t, 30, res.History.Days)
	assert.Equal(t, 7, res.Forecast.Days)

	rec = s.do(t, "GET", "/api/v1/dashboard?location=Lahore", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
