// Package series reduces price series to a chart point budget and summarizes them.
package series

import (
	"errors"
	"fmt"

	"github.com/trogers1052/crop-price-monitor/internal/models"
)

// ErrInvalidArgument is returned when a caller passes a non-positive point budget
var ErrInvalidArgument = errors.New("invalid argument")

// Sample reduces an ascending series to roughly maxPoints entries for charting.
//
// A series that already fits is returned unchanged. Longer series are walked with
// an even stride of len/maxPoints starting at the first point, and the original
// last point is appended when the stride does not land on it, so the result holds
// at most maxPoints+1 points and always keeps both endpoints. The final interval
// may be shorter than the others. The stride is fractional rather than rounded
// up to a whole step so long series come back close to maxPoints points
// instead of well short of it.
func Sample(points []models.PricePoint, maxPoints int) ([]models.PricePoint, error) {
	if maxPoints <= 0 {
		return nil, fmt.Errorf("%w: maxPoints must be positive, got %d", ErrInvalidArgument, maxPoints)
	}

	n := len(points)
	if n <= maxPoints {
		return points, nil
	}

	sampled := make([]models.PricePoint, 0, maxPoints+1)
	idx := 0
	for i := 0; i < maxPoints; i++ {
		idx = i * n / maxPoints
		sampled = append(sampled, points[idx])
	}
	if idx != n-1 {
		sampled = append(sampled, points[n-1])
	}
	return sampled, nil
}
