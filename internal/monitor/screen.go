package monitor

import (
	"context"
	"sync"

	"github.com/trogers1052/crop-price-monitor/internal/daterange"
	"github.com/trogers1052/crop-price-monitor/internal/fetch"
	"go.uber.org/zap"
)

// Screen is a long-lived price view: a commodity/market selection, a date
// range edited field by field, and the last applied result. Changing the
// selection or the committed range orphans any fetch still in flight so its
// late response cannot overwrite newer state.
type Screen struct {
	svc     *Service
	kind    fetch.Kind
	tracker *fetch.Tracker
	dates   *daterange.Normalizer

	mu        sync.Mutex
	commodity string
	location  string
	width     int
	history   *HistoryResult
	forecast  *ForecastResult
	lastErr   error
}

// ScreenState is a consistent copy of a Screen's visible state
type ScreenState struct {
	Commodity string          `json:"commodity"`
	Location  string          `json:"location"`
	Range     daterange.Range `json:"range"`
	StartText string          `json:"start_text"`
	EndText   string          `json:"end_text"`
	Loading   bool            `json:"loading"`
	History   *HistoryResult  `json:"history,omitempty"`
	Forecast  *ForecastResult `json:"forecast,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// NewHistoryScreen opens a historical view over the default window
func (s *Service) NewHistoryScreen(commodity, location string, width int) *Screen {
	initial := daterange.LastDays(s.today(), daterange.HistoricalWindowDays)
	return s.newScreen(fetch.KindHistory, commodity, location, width,
		daterange.NewNormalizer(initial, daterange.HistoryOptions(), s.today))
}

// NewForecastScreen opens a forecast view over the default horizon
func (s *Service) NewForecastScreen(commodity, location string, width int) *Screen {
	initial := daterange.NextDays(s.today(), daterange.ForecastWindowDays)
	return s.newScreen(fetch.KindForecast, commodity, location, width,
		daterange.NewNormalizer(initial, daterange.ForecastOptions(), s.today))
}

func (s *Service) newScreen(kind fetch.Kind, commodity, location string, width int, dates *daterange.Normalizer) *Screen {
	return &Screen{
		svc:       s,
		kind:      kind,
		tracker:   fetch.NewTracker(),
		dates:     dates,
		commodity: commodity,
		location:  location,
		width:     width,
	}
}

// SetFilters changes the commodity and market
func (sc *Screen) SetFilters(commodity, location string) {
	sc.mu.Lock()
	changed := commodity != sc.commodity || location != sc.location
	sc.commodity = commodity
	sc.location = location
	sc.mu.Unlock()

	if changed {
		sc.tracker.Invalidate(sc.kind)
	}
}

// SetWidth changes the chart width used for the point budget
func (sc *Screen) SetWidth(width int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.width = width
}

// SetStartText records a keystroke in the start date field and returns the
// formatted text
func (sc *Screen) SetStartText(text string) string {
	formatted, committed := sc.dates.SetStartText(text)
	if committed {
		sc.tracker.Invalidate(sc.kind)
	}
	return formatted
}

// SetEndText records a keystroke in the end date field
func (sc *Screen) SetEndText(text string) string {
	formatted, committed := sc.dates.SetEndText(text)
	if committed {
		sc.tracker.Invalidate(sc.kind)
	}
	return formatted
}

// CommitRange parses and commits both date fields at once
func (sc *Screen) CommitRange(startText, endText string) error {
	before := sc.dates.Range()
	if err := sc.dates.CommitText(startText, endText); err != nil {
		return err
	}
	if sc.dates.Range() != before {
		sc.tracker.Invalidate(sc.kind)
	}
	return nil
}

// Refresh fetches data for the current selection. It returns false when the
// response was discarded because the selection changed while it was in
// flight, and fetch.ErrInFlight when a fetch is already running.
func (sc *Screen) Refresh(ctx context.Context) (bool, error) {
	tok, err := sc.tracker.Begin(sc.kind)
	if err != nil {
		return false, err
	}

	sc.mu.Lock()
	commodity, location, width := sc.commodity, sc.location, sc.width
	sc.mu.Unlock()
	r := sc.dates.Range()

	var history *HistoryResult
	var forecast *ForecastResult
	if sc.kind == fetch.KindForecast {
		forecast, err = sc.svc.Forecast(ctx, ForecastQuery{Commodity: commodity, Location: location, Range: r, Width: width})
	} else {
		history, err = sc.svc.History(ctx, HistoryQuery{Commodity: commodity, Location: location, Range: r, Width: width})
	}

	if !sc.tracker.Finish(tok) {
		sc.svc.logger.Debug("discarding stale fetch",
			zap.String("kind", string(sc.kind)),
			zap.String("commodity", commodity),
			zap.String("location", location))
		return false, nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.lastErr = err
	if err != nil {
		return false, err
	}
	sc.history = history
	sc.forecast = forecast
	return true, nil
}

// Snapshot returns the visible state
func (sc *Screen) Snapshot() ScreenState {
	start, end := sc.dates.Draft()

	sc.mu.Lock()
	defer sc.mu.Unlock()
	st := ScreenState{
		Commodity: sc.commodity,
		Location:  sc.location,
		Range:     sc.dates.Range(),
		StartText: start,
		EndText:   end,
		Loading:   sc.tracker.Loading(sc.kind),
		History:   sc.history,
		Forecast:  sc.forecast,
	}
	if sc.lastErr != nil {
		st.Error = sc.lastErr.Error()
	}
	return st
}
