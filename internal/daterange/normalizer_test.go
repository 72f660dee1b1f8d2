package daterange

import (
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedToday(d civil.Date) func() civil.Date {
	return func() civil.Date { return d }
}

func TestNormalizer(t *testing.T) {
	today := civil.Date{Year: 2023, Month: 6, Day: 15}
	initial := LastDays(today, DashboardWindowDays)

	t.Run("rejected commit keeps prior range", func(t *testing.T) {
		n := NewNormalizer(initial, Options{}, fixedToday(today))
		err := n.CommitText("2023-03-01", "2023-01-01")
		assert.ErrorIs(t, err, ErrStartAfterEnd)
		assert.Equal(t, initial, n.Range())
	})

	t.Run("invalid text is not committed", func(t *testing.T) {
		n := NewNormalizer(initial, Options{}, fixedToday(today))
		err := n.CommitText("2023-02-30", "2023-03-01")
		assert.ErrorIs(t, err, ErrInvalidDate)
		assert.Equal(t, initial, n.Range())
	})

	t.Run("typing commits only when both fields are complete", func(t *testing.T) {
		n := NewNormalizer(initial, Options{}, fixedToday(today))

		// User clears the start field and retypes it.
		text, changed := n.SetStartText("")
		assert.Equal(t, "", text)
		assert.False(t, changed)

		typed := ""
		var committedAt []int
		for i, ch := range "2023-01-10" {
			prev := typed
			if len(prev) > i {
				// Auto-format already inserted the separator.
				continue
			}
			typed, changed = n.SetStartText(prev + string(ch))
			if changed {
				committedAt = append(committedAt, i)
			}
		}

		assert.Equal(t, "2023-01-10", typed)
		assert.Equal(t, []int{9}, committedAt)
		assert.Equal(t, "2023-01-10", n.Range().Start.String())
		assert.Equal(t, initial.End, n.Range().End)
		assert.Equal(t, 156, n.Days())
	})

	t.Run("future end rejected unless allowed", func(t *testing.T) {
		hist := NewNormalizer(initial, Options{}, fixedToday(today))
		_, changed := hist.SetEndText("2023-07-01")
		assert.False(t, changed)
		start, end := hist.Draft()
		assert.Equal(t, initial.Start.String(), start)
		assert.Equal(t, "2023-07-01", end)
		assert.Equal(t, initial, hist.Range())

		fc := NewNormalizer(NextDays(today, ForecastWindowDays), Options{AllowFutureEnd: true}, fixedToday(today))
		_, changed = fc.SetEndText("2023-07-01")
		assert.True(t, changed)
		assert.Equal(t, 16, fc.Days())
	})

	t.Run("Commit syncs draft text", func(t *testing.T) {
		n := NewNormalizer(initial, Options{}, fixedToday(today))
		require.NoError(t, n.Commit(civil.Date{Year: 2023, Month: 1, Day: 1}, civil.Date{Year: 2023, Month: 1, Day: 8}))
		start, end := n.Draft()
		assert.Equal(t, "2023-01-01", start)
		assert.Equal(t, "2023-01-08", end)
		assert.Equal(t, 7, n.Days())
	})

	t.Run("readers never observe a partial commit", func(t *testing.T) {
		a := Range{Start: civil.Date{Year: 2023, Month: 1, Day: 1}, End: civil.Date{Year: 2023, Month: 1, Day: 31}}
		b := Range{Start: civil.Date{Year: 2023, Month: 4, Day: 1}, End: civil.Date{Year: 2023, Month: 4, Day: 30}}
		n := NewNormalizer(a, Options{}, fixedToday(today))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				next := a
				if i%2 == 0 {
					next = b
				}
				_ = n.Commit(next.Start, next.End)
			}
		}()
		bad := 0
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if r := n.Range(); r != a && r != b {
					bad++
				}
			}
		}()
		wg.Wait()
		assert.Zero(t, bad)
	})
}
