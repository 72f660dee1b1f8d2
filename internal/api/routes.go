package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(handler.logRequests)

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Catalog and price routes
	api.HandleFunc("/commodities", handler.GetCommodities).Methods("GET")
	api.HandleFunc("/locations", handler.GetLocations).Methods("GET")
	api.HandleFunc("/prices/history", handler.GetPriceHistory).Methods("GET")
	api.HandleFunc("/prices/forecast", handler.GetForecast).Methods("GET")
	api.HandleFunc("/prices/realtime", handler.GetRealtimePrices).Methods("GET")
	api.HandleFunc("/dashboard", handler.GetDashboard).Methods("GET")

	// User state routes
	users := api.PathPrefix("/users/{user}").Subrouter()
	users.HandleFunc("/preferences", handler.GetPreferences).Methods("GET")
	users.HandleFunc("/preferences", handler.UpdatePreferences).Methods("PUT")
	users.HandleFunc("/session", handler.CreateSession).Methods("POST")
	users.HandleFunc("/session", handler.DeleteSession).Methods("DELETE")
	users.HandleFunc("/alerts", handler.GetAlerts).Methods("GET")
	users.HandleFunc("/alerts", handler.CreateAlert).Methods("POST")
	users.HandleFunc("/alerts/history", handler.GetAlertHistory).Methods("GET")
	users.HandleFunc("/alerts/{id}", handler.DeleteAlert).Methods("DELETE")
	users.HandleFunc("/alerts/{id}/toggle", handler.ToggleAlert).Methods("POST")
	users.HandleFunc("/notifications", handler.GetNotifications).Methods("GET")
	users.HandleFunc("/notifications", handler.ClearNotifications).Methods("DELETE")
	users.HandleFunc("/notifications/{id}/read", handler.MarkNotificationRead).Methods("POST")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}
