// Package fetch tags asynchronous data fetches so that a response arriving
// after its screen's filters changed is discarded instead of applied.
package fetch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind names a class of fetch; at most one of each kind is in flight
type Kind string

const (
	KindHistory   Kind = "history"
	KindForecast  Kind = "forecast"
	KindRealtime  Kind = "realtime"
	KindDashboard Kind = "dashboard"
)

// ErrInFlight is returned by Begin when a fetch of the same kind is outstanding
var ErrInFlight = errors.New("fetch already in flight")

// Token identifies one fetch
type Token struct {
	Kind Kind
	ID   uuid.UUID
}

// Tracker records the current token and loading flag per kind
type Tracker struct {
	mu      sync.Mutex
	current map[Kind]uuid.UUID
	loading map[Kind]bool
}

// NewTracker creates an empty Tracker
func NewTracker() *Tracker {
	return &Tracker{
		current: make(map[Kind]uuid.UUID),
		loading: make(map[Kind]bool),
	}
}

// Begin starts a fetch of kind and returns its token
func (t *Tracker) Begin(kind Kind) (Token, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loading[kind] {
		return Token{}, fmt.Errorf("%w: %s", ErrInFlight, kind)
	}
	tok := Token{Kind: kind, ID: uuid.New()}
	t.current[kind] = tok.ID
	t.loading[kind] = true
	return tok, nil
}

// Finish ends the fetch identified by tok. It reports whether tok is still
// current; a false result means the caller must drop the response.
func (t *Tracker) Finish(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current[tok.Kind] != tok.ID {
		return false
	}
	t.loading[tok.Kind] = false
	return true
}

// Invalidate orphans any in-flight fetch of kind and clears its loading flag
// so a fetch for the new filters can begin immediately.
func (t *Tracker) Invalidate(kind Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.current, kind)
	t.loading[kind] = false
}

// InvalidateAll invalidates every kind
func (t *Tracker) InvalidateAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = make(map[Kind]uuid.UUID)
	t.loading = make(map[Kind]bool)
}

// Loading reports whether a fetch of kind is outstanding
func (t *Tracker) Loading(kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading[kind]
}
