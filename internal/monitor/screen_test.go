package monitor

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/crop-price-monitor/internal/daterange"
	"github.com/trogers1052/crop-price-monitor/internal/fetch"
	"github.com/trogers1052/crop-price-monitor/internal/models"
)

// gatedBackend blocks history requests for the named commodity until released.
func gatedBackend(blocked string, started chan<- struct{}, release <-chan struct{}) *fakeBackend {
	return &fakeBackend{
		history: func(_ context.Context, commodity, _ string, r daterange.Range) (*models.PriceHistory, error) {
			if commodity == blocked {
				started <- struct{}{}
				<-release
			}
			return &models.PriceHistory{Data: daily(r.Start, 5)}, nil
		},
	}
}

func TestScreen(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh applies result", func(t *testing.T) {
		svc := newTestService(&fakeBackend{
			history: func(_ context.Context, _, _ string, r daterange.Range) (*models.PriceHistory, error) {
				return &models.PriceHistory{Data: daily(r.Start, 5)}, nil
			},
		}, nil)
		sc := svc.NewHistoryScreen("Wheat", "Lahore", 360)

		applied, err := sc.Refresh(ctx)
		require.NoError(t, err)
		assert.True(t, applied)

		st := sc.Snapshot()
		require.NotNil(t, st.History)
		assert.Equal(t, daterange.HistoricalWindowDays, st.History.Days)
		assert.False(t, st.Loading)
	})

	t.Run("stale response is discarded after filter change", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		svc := newTestService(gatedBackend("Wheat", started, release), nil)
		sc := svc.NewHistoryScreen("Wheat", "Lahore", 360)

		type outcome struct {
			applied bool
			err     error
		}
		done := make(chan outcome)
		go func() {
			applied, err := sc.Refresh(ctx)
			done <- outcome{applied, err}
		}()
		<-started

		_, err := sc.Refresh(ctx)
		assert.ErrorIs(t, err, fetch.ErrInFlight, "same-kind fetch is not re-entrant")

		sc.SetFilters("Rice", "Karachi")
		applied, err := sc.Refresh(ctx)
		require.NoError(t, err)
		assert.True(t, applied)

		close(release)
		stale := <-done
		require.NoError(t, stale.err)
		assert.False(t, stale.applied)

		st := sc.Snapshot()
		assert.Equal(t, "Rice", st.Commodity)
		require.NotNil(t, st.History)
		assert.Equal(t, "Rice", st.History.Commodity)
	})

	t.Run("typing a range invalidates only on commit", func(t *testing.T) {
		svc := newTestService(&fakeBackend{}, nil)
		sc := svc.NewHistoryScreen("Wheat", "Lahore", 360)
		before := sc.Snapshot().Range

		assert.Equal(t, "", sc.SetStartText(""))
		assert.Equal(t, "202", sc.SetStartText("202"))
		assert.Equal(t, "2023-", sc.SetStartText("2023"))
		assert.Equal(t, before, sc.Snapshot().Range)

		require.NoError(t, sc.CommitRange("2023-01-01", "2023-01-08"))
		st := sc.Snapshot()
		assert.Equal(t, civil.Date{Year: 2023, Month: 1, Day: 1}, st.Range.Start)
		assert.Equal(t, "2023-01-08", st.EndText)

		err := sc.CommitRange("2023-03-01", "2023-01-01")
		assert.ErrorIs(t, err, daterange.ErrStartAfterEnd)
		assert.Equal(t, st.Range, sc.Snapshot().Range)
	})

	t.Run("forecast screen allows future end", func(t *testing.T) {
		var gotDays int
		svc := newTestService(&fakeBackend{
			forecast: func(_ context.Context, _, _ string, days int) (*models.Forecast, error) {
				gotDays = days
				return &models.Forecast{Forecast: daily(testToday.AddDays(1), days), UsingModel: true}, nil
			},
		}, nil)
		sc := svc.NewForecastScreen("Wheat", "Lahore", 360)
		require.NoError(t, sc.CommitRange(testToday.String(), testToday.AddDays(14).String()))

		applied, err := sc.Refresh(ctx)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, 14, gotDays)
		assert.Len(t, sc.Snapshot().Forecast.Points, 14)
	})
}
