package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Language constants
const (
	LanguageEnglish = "en"
	LanguageUrdu    = "ur"
)

// MaxNotifications bounds the stored notification list; the oldest entries are dropped first.
const MaxNotifications = 100

var (
	ErrUnsupportedLanguage  = errors.New("unsupported language")
	ErrAlertNotFound        = errors.New("alert not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidAlert         = errors.New("invalid alert")
)

// AppState is the per-user application state persisted in the key-value store.
// Callers mutate it through its methods and then save it explicitly.
type AppState struct {
	SessionToken  string         `json:"session_token,omitempty"`
	Language      string         `json:"language"`
	Alerts        []PriceAlert   `json:"alerts"`
	Notifications []Notification `json:"notifications"`
}

// NewAppState returns the state of a user seen for the first time
func NewAppState() *AppState {
	return &AppState{
		Language:      LanguageEnglish,
		Alerts:        []PriceAlert{},
		Notifications: []Notification{},
	}
}

// LoggedIn reports whether a session token is held
func (s *AppState) LoggedIn() bool {
	return s.SessionToken != ""
}

// Login stores the session token
func (s *AppState) Login(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("session token is required")
	}
	s.SessionToken = token
	return nil
}

// Logout clears the session token
func (s *AppState) Logout() {
	s.SessionToken = ""
}

// SetLanguage switches the display language
func (s *AppState) SetLanguage(lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != LanguageEnglish && lang != LanguageUrdu {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	s.Language = lang
	return nil
}

// AddAlert validates and appends a new alert, assigning its ID
func (s *AppState) AddAlert(a PriceAlert, now time.Time) (*PriceAlert, error) {
	if err := ValidateAlert(&a); err != nil {
		return nil, err
	}
	a.ID = uuid.NewString()
	a.Active = true
	a.CreatedAt = now
	a.LastTriggeredAt = nil
	s.Alerts = append(s.Alerts, a)
	return &s.Alerts[len(s.Alerts)-1], nil
}

// RemoveAlert deletes an alert by ID
func (s *AppState) RemoveAlert(id string) error {
	for i := range s.Alerts {
		if s.Alerts[i].ID == id {
			s.Alerts = append(s.Alerts[:i], s.Alerts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAlertNotFound, id)
}

// ToggleAlert flips an alert between active and paused
func (s *AppState) ToggleAlert(id string) (*PriceAlert, error) {
	a := s.FindAlert(id)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
	}
	a.Active = !a.Active
	return a, nil
}

// FindAlert returns a pointer into the alert list, or nil
func (s *AppState) FindAlert(id string) *PriceAlert {
	for i := range s.Alerts {
		if s.Alerts[i].ID == id {
			return &s.Alerts[i]
		}
	}
	return nil
}

// AddNotification prepends a notification, newest first
func (s *AppState) AddNotification(n Notification) *Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	s.Notifications = append([]Notification{n}, s.Notifications...)
	if len(s.Notifications) > MaxNotifications {
		s.Notifications = s.Notifications[:MaxNotifications]
	}
	return &s.Notifications[0]
}

// MarkNotificationRead marks one notification as read
func (s *AppState) MarkNotificationRead(id string) error {
	for i := range s.Notifications {
		if s.Notifications[i].ID == id {
			s.Notifications[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
}

// ClearNotifications empties the notification list
func (s *AppState) ClearNotifications() {
	s.Notifications = []Notification{}
}

// UnreadCount returns the number of unread notifications
func (s *AppState) UnreadCount() int {
	count := 0
	for _, n := range s.Notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// ValidateAlert checks the user-supplied fields of an alert
func ValidateAlert(a *PriceAlert) error {
	a.Commodity = strings.TrimSpace(a.Commodity)
	a.Location = strings.TrimSpace(a.Location)
	a.Condition = strings.ToLower(strings.TrimSpace(a.Condition))

	if a.Commodity == "" {
		return fmt.Errorf("%w: commodity is required", ErrInvalidAlert)
	}
	if a.Location == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidAlert)
	}
	if !a.TargetPrice.IsPositive() {
		return fmt.Errorf("%w: target price must be positive", ErrInvalidAlert)
	}
	if a.Condition != ConditionAbove && a.Condition != ConditionBelow {
		return fmt.Errorf("%w: condition must be %q or %q", ErrInvalidAlert, ConditionAbove, ConditionBelow)
	}
	return nil
}
