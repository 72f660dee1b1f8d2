package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/trogers1052/crop-price-monitor/internal/daterange"
	"github.com/trogers1052/crop-price-monitor/internal/models"
	"github.com/trogers1052/crop-price-monitor/internal/monitor"
	"github.com/trogers1052/crop-price-monitor/internal/state"
	"go.uber.org/zap"
)

// AlertHistoryReader lists triggered alerts
type AlertHistoryReader interface {
	GetAlertHistoryByUser(userID string, limit int) ([]*models.AlertHistory, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc     *monitor.Service
	store   *state.Store
	history AlertHistoryReader
	db      Pinger
	now     func() time.Time
	logger  *zap.Logger
}

// NewHandler creates a new Handler. history and db may be nil.
func NewHandler(svc *monitor.Service, store *state.Store, history AlertHistoryReader, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		svc:     svc,
		store:   store,
		history: history,
		db:      db,
		now:     time.Now,
		logger:  logger,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Warn("health check: database unreachable", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetCommodities handles GET /commodities
func (h *Handler) GetCommodities(w http.ResponseWriter, r *http.Request) {
	commodities, fallback := h.svc.Commodities(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"commodities": commodities,
		"fallback":    fallback,
	})
}

// GetLocations handles GET /locations
func (h *Handler) GetLocations(w http.ResponseWriter, r *http.Request) {
	locations, fallback := h.svc.Locations(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"locations": locations,
		"fallback":  fallback,
	})
}

// GetPriceHistory handles GET /prices/history
func (h *Handler) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := h.svc.Today()

	rng, err := parseRange(q, daterange.LastDays(today, daterange.HistoricalWindowDays), daterange.HistoryOptions(), today)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	width, err := parseWidth(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.History(r.Context(), monitor.HistoryQuery{
		Commodity: q.Get("commodity"),
		Location:  q.Get("location"),
		Range:     rng,
		Width:     width,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetForecast handles GET /prices/forecast. The horizon comes from days or
// from start_date/end_date, defaulting to the next week.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := h.svc.Today()

	def := daterange.NextDays(today, daterange.ForecastWindowDays)
	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		if days > daterange.MaxForecastDays {
			http.Error(w, fmt.Sprintf("days must be at most %d", daterange.MaxForecastDays), http.StatusBadRequest)
			return
		}
		def = daterange.NextDays(today, days)
	}

	rng, err := parseRange(q, def, daterange.ForecastOptions(), today)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	width, err := parseWidth(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.Forecast(r.Context(), monitor.ForecastQuery{
		Commodity: q.Get("commodity"),
		Location:  q.Get("location"),
		Range:     rng,
		Width:     width,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetRealtimePrices handles GET /prices/realtime
func (h *Handler) GetRealtimePrices(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Realtime(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetDashboard handles GET /dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, err := parseWidth(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.Dashboard(r.Context(), monitor.DashboardQuery{
		Commodity: q.Get("commodity"),
		Location:  q.Get("location"),
		Width:     width,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// parseRange reads start_date and end_date, taking missing fields from def,
// and commits the pair. Malformed dates and out-of-bounds pairs are errors.
func parseRange(q url.Values, def daterange.Range, opts daterange.Options, today civil.Date) (daterange.Range, error) {
	start, end := def.Start, def.End

	if v := q.Get("start_date"); v != "" {
		d, ok := daterange.ParseDate(v)
		if !ok {
			return def, fmt.Errorf("%w: start_date %q, expected %s", daterange.ErrInvalidDate, v, daterange.Layout)
		}
		start = d
	}
	if v := q.Get("end_date"); v != "" {
		d, ok := daterange.ParseDate(v)
		if !ok {
			return def, fmt.Errorf("%w: end_date %q, expected %s", daterange.ErrInvalidDate, v, daterange.Layout)
		}
		end = d
	}

	return daterange.Commit(def, start, end, opts, today)
}

func parseWidth(q url.Values) (int, error) {
	v := q.Get("width")
	if v == "" {
		return 0, nil
	}
	width, err := strconv.Atoi(v)
	if err != nil || width < 1 {
		return 0, errors.New("width must be a positive integer")
	}
	return width, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, monitor.ErrInvalidQuery),
		errors.Is(err, state.ErrInvalidUser),
		errors.Is(err, models.ErrInvalidAlert),
		errors.Is(err, models.ErrUnsupportedLanguage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrAlertNotFound),
		errors.Is(err, models.ErrNotificationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request timed out", http.StatusGatewayTimeout)
	default:
		h.logger.Error("request failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
