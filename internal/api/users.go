package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/crop-price-monitor/internal/models"
)

const defaultHistoryLimit = 50

type preferences struct {
	Language            string `json:"language"`
	LoggedIn            bool   `json:"logged_in"`
	UnreadNotifications int    `json:"unread_notifications"`
}

func preferencesOf(st *models.AppState) preferences {
	return preferences{
		Language:            st.Language,
		LoggedIn:            st.LoggedIn(),
		UnreadNotifications: st.UnreadCount(),
	}
}

// GetPreferences handles GET /users/{user}/preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Load(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, preferencesOf(st))
}

// UpdatePreferences handles PUT /users/{user}/preferences
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	st, err := h.store.Update(r.Context(), mux.Vars(r)["user"], func(st *models.AppState) error {
		return st.SetLanguage(req.Language)
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, preferencesOf(st))
}

// CreateSession handles POST /users/{user}/session. A token is generated
// when the body carries none.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Token == "" {
		req.Token = uuid.NewString()
	}

	_, err := h.store.Update(r.Context(), mux.Vars(r)["user"], func(st *models.AppState) error {
		return st.Login(req.Token)
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"session_token": req.Token})
}

// DeleteSession handles DELETE /users/{user}/session
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	_, err := h.store.Update(r.Context(), mux.Vars(r)["user"], func(st *models.AppState) error {
		st.Logout()
		return nil
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAlerts handles GET /users/{user}/alerts
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Load(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st.Alerts)
}

// CreateAlert handles POST /users/{user}/alerts
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Commodity   string          `json:"commodity"`
		Location    string          `json:"location"`
		TargetPrice decimal.Decimal `json:"target_price"`
		Condition   string          `json:"condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var created models.PriceAlert
	_, err := h.store.Update(r.Context(), mux.Vars(r)["user"], func(st *models.AppState) error {
		a, err := st.AddAlert(models.PriceAlert{
			Commodity:   req.Commodity,
			Location:    req.Location,
			TargetPrice: req.TargetPrice,
			Condition:   req.Condition,
		}, h.now())
		if err != nil {
			return err
		}
		created = *a
		return nil
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// DeleteAlert handles DELETE /users/{user}/alerts/{id}
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	_, err := h.store.Update(r.Context(), vars["user"], func(st *models.AppState) error {
		return st.RemoveAlert(vars["id"])
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleAlert handles POST /users/{user}/alerts/{id}/toggle
func (h *Handler) ToggleAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var toggled models.PriceAlert
	_, err := h.store.Update(r.Context(), vars["user"], func(st *models.AppState) error {
		a, err := st.ToggleAlert(vars["id"])
		if err != nil {
			return err
		}
		toggled = *a
		return nil
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toggled)
}

// GetAlertHistory handles GET /users/{user}/alerts/history
func (h *Handler) GetAlertHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	if h.history == nil {
		respondJSON(w, http.StatusOK, []*models.AlertHistory{})
		return
	}

	history, err := h.history.GetAlertHistoryByUser(mux.Vars(r)["user"], limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if history == nil {
		history = []*models.AlertHistory{}
	}
	respondJSON(w, http.StatusOK, history)
}

// GetNotifications handles GET /users/{user}/notifications
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Load(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": st.Notifications,
		"unread":        st.UnreadCount(),
	})
}

// ClearNotifications handles DELETE /users/{user}/notifications
func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	_, err := h.store.Update(r.Context(), mux.Vars(r)["user"], func(st *models.AppState) error {
		st.ClearNotifications()
		return nil
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkNotificationRead handles POST /users/{user}/notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	_, err := h.store.Update(r.Context(), vars["user"], func(st *models.AppState) error {
		return st.MarkNotificationRead(vars["id"])
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
