package daterange

import (
	"fmt"
	"sync"

	"cloud.google.com/go/civil"
)

// Normalizer holds the draft text of a screen's two date fields and the last
// committed range. The committed range only changes when both fields hold a
// complete, valid, in-bounds date, so incomplete input never reaches a query.
type Normalizer struct {
	mu        sync.RWMutex
	committed Range
	startText string
	endText   string
	opts      Options
	today     func() civil.Date
}

// NewNormalizer creates a Normalizer committed to initial. A nil today uses
// the local calendar date.
func NewNormalizer(initial Range, opts Options, today func() civil.Date) *Normalizer {
	if today == nil {
		today = Today
	}
	return &Normalizer{
		committed: initial,
		startText: initial.Start.String(),
		endText:   initial.End.String(),
		opts:      opts,
		today:     today,
	}
}

// Range returns the committed range
func (n *Normalizer) Range() Range {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.committed
}

// Days returns DaysBetween of the committed range
func (n *Normalizer) Days() int {
	return DaysBetween(n.Range())
}

// Draft returns the uncommitted text of both fields
func (n *Normalizer) Draft() (start, end string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.startText, n.endText
}

// Commit replaces the committed range with start..end if it is in bounds.
// The draft text follows a successful commit.
func (n *Normalizer) Commit(start, end civil.Date) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	r, err := Commit(n.committed, start, end, n.opts, n.today())
	if err != nil {
		return err
	}
	n.committed = r
	n.startText = start.String()
	n.endText = end.String()
	return nil
}

// CommitText parses both fields and commits them together
func (n *Normalizer) CommitText(startText, endText string) error {
	start, ok := ParseDate(startText)
	if !ok {
		return fmt.Errorf("%w: start %q, expected %s", ErrInvalidDate, startText, Layout)
	}
	end, ok := ParseDate(endText)
	if !ok {
		return fmt.Errorf("%w: end %q, expected %s", ErrInvalidDate, endText, Layout)
	}
	return n.Commit(start, end)
}

// SetStartText records a keystroke in the start field. It returns the
// auto-formatted text and whether the committed range changed.
func (n *Normalizer) SetStartText(text string) (string, bool) {
	return n.setText(text, true)
}

// SetEndText records a keystroke in the end field
func (n *Normalizer) SetEndText(text string) (string, bool) {
	return n.setText(text, false)
}

func (n *Normalizer) setText(text string, isStart bool) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if isStart {
		n.startText = AutoFormat(n.startText, text)
		text = n.startText
	} else {
		n.endText = AutoFormat(n.endText, text)
		text = n.endText
	}

	start, ok := ParseDate(n.startText)
	if !ok {
		return text, false
	}
	end, ok := ParseDate(n.endText)
	if !ok {
		return text, false
	}

	r, err := Commit(n.committed, start, end, n.opts, n.today())
	if err != nil || r == n.committed {
		return text, false
	}
	n.committed = r
	return text, true
}
