package series

// Budget is the presentation policy used to size a chart's point budget
type Budget struct {
	PixelsPerPoint int `yaml:"pixels_per_point"`
	MinPoints      int `yaml:"min_points"`
	MaxPoints      int `yaml:"max_points"`
}

// DefaultBudget keeps one point per ten pixels, capped at a year of daily points
var DefaultBudget = Budget{
	PixelsPerPoint: 10,
	MinPoints:      2,
	MaxPoints:      365,
}

// MaxPoints derives the point budget for a chart widthPx pixels wide showing
// spanDays days. Wider charts get more points; a short span never gets more
// points than it has days. The result is at least 2 so both endpoints fit.
func MaxPoints(widthPx, spanDays int, b Budget) int {
	ppp := b.PixelsPerPoint
	if ppp <= 0 {
		ppp = DefaultBudget.PixelsPerPoint
	}

	n := widthPx / ppp
	if spanDays > 0 && spanDays+1 < n {
		n = spanDays + 1
	}
	if b.MaxPoints > 0 && n > b.MaxPoints {
		n = b.MaxPoints
	}

	floor := b.MinPoints
	if floor < 2 {
		floor = 2
	}
	if n < floor {
		n = floor
	}
	return n
}
