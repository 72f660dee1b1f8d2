package series

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/crop-price-monitor/internal/models"
)

// Summarize computes current/highest/lowest/average for a series.
// The current price is the last point; the average is rounded to two places.
func Summarize(points []models.PricePoint) models.PriceStats {
	if len(points) == 0 {
		return models.PriceStats{}
	}

	high := points[0].Price
	low := points[0].Price
	sum := decimal.Zero
	for _, p := range points {
		if p.Price.GreaterThan(high) {
			high = p.Price
		}
		if p.Price.LessThan(low) {
			low = p.Price
		}
		sum = sum.Add(p.Price)
	}

	return models.PriceStats{
		Current: points[len(points)-1].Price,
		Highest: high,
		Lowest:  low,
		Average: sum.Div(decimal.NewFromInt(int64(len(points)))).Round(2),
	}
}
