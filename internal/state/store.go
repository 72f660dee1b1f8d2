package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/trogers1052/crop-price-monitor/internal/models"
)

// ErrInvalidUser is returned for empty user IDs
var ErrInvalidUser = errors.New("invalid user id")

const (
	fieldSession       = "session"
	fieldLanguage      = "language"
	fieldAlerts        = "alerts"
	fieldNotifications = "notifications"
)

// Store loads and saves AppState per user. Every save writes all fields.
type Store struct {
	kv     KV
	prefix string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store whose keys start with prefix
func NewStore(kv KV, prefix string) *Store {
	return &Store{
		kv:     kv,
		prefix: prefix,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) usersKey() string {
	return s.prefix + "users"
}

func (s *Store) key(user, field string) string {
	return s.prefix + "user:" + user + ":" + field
}

func (s *Store) keys(user string) []string {
	return []string{
		s.key(user, fieldSession),
		s.key(user, fieldLanguage),
		s.key(user, fieldAlerts),
		s.key(user, fieldNotifications),
	}
}

// Load reads a user's state; missing fields take their defaults
func (s *Store) Load(ctx context.Context, user string) (*models.AppState, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	values, err := s.kv.GetAll(ctx, s.keys(user)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load state for %s: %w", user, err)
	}

	st := models.NewAppState()
	st.SessionToken = values[s.key(user, fieldSession)]
	if lang := values[s.key(user, fieldLanguage)]; lang != "" {
		st.Language = lang
	}
	if raw := values[s.key(user, fieldAlerts)]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &st.Alerts); err != nil {
			return nil, fmt.Errorf("failed to decode alerts for %s: %w", user, err)
		}
	}
	if raw := values[s.key(user, fieldNotifications)]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &st.Notifications); err != nil {
			return nil, fmt.Errorf("failed to decode notifications for %s: %w", user, err)
		}
	}
	return st, nil
}

// Save writes all fields of a user's state and registers the user
func (s *Store) Save(ctx context.Context, user string, st *models.AppState) error {
	if err := validateUser(user); err != nil {
		return err
	}

	alerts, err := json.Marshal(nonNilAlerts(st.Alerts))
	if err != nil {
		return fmt.Errorf("failed to encode alerts: %w", err)
	}
	notifications, err := json.Marshal(nonNilNotifications(st.Notifications))
	if err != nil {
		return fmt.Errorf("failed to encode notifications: %w", err)
	}

	values := map[string]string{
		s.key(user, fieldSession):       st.SessionToken,
		s.key(user, fieldLanguage):      st.Language,
		s.key(user, fieldAlerts):        string(alerts),
		s.key(user, fieldNotifications): string(notifications),
	}
	if err := s.kv.SetAll(ctx, values); err != nil {
		return fmt.Errorf("failed to save state for %s: %w", user, err)
	}
	if err := s.kv.AddMember(ctx, s.usersKey(), user); err != nil {
		return err
	}
	return nil
}

// Update loads a user's state, applies fn and saves the result. Updates for
// the same user are serialized within this process. Nothing is saved when fn
// fails.
func (s *Store) Update(ctx context.Context, user string, fn func(*models.AppState) error) (*models.AppState, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.Load(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, user, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes a user's state entirely
func (s *Store) Delete(ctx context.Context, user string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, s.keys(user)...); err != nil {
		return err
	}
	return s.kv.RemoveMember(ctx, s.usersKey(), user)
}

// Users lists every user with saved state
func (s *Store) Users(ctx context.Context) ([]string, error) {
	return s.kv.Members(ctx, s.usersKey())
}

func (s *Store) userLock(user string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[user]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[user] = lock
	}
	return lock
}

func validateUser(user string) error {
	if strings.TrimSpace(user) == "" || strings.ContainsAny(user, ": ") {
		return fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	return nil
}

func nonNilAlerts(a []models.PriceAlert) []models.PriceAlert {
	if a == nil {
		return []models.PriceAlert{}
	}
	return a
}

func nonNilNotifications(n []models.Notification) []models.Notification {
	if n == nil {
		return []models.Notification{}
	}
	return n
}
