package kafka

import (
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/crop-price-monitor/internal/models"
	"go.uber.org/zap"
)

// MockRepository implements PriceRepository for testing
type MockRepository struct {
	prices map[string]*models.StoredPrice // key: commodity|location|date
	err    error

	UpsertCalls int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		prices: make(map[string]*models.StoredPrice),
	}
}

func (m *MockRepository) UpsertPrice(p *models.StoredPrice) error {
	m.UpsertCalls++
	if m.err != nil {
		return m.err
	}
	m.prices[p.Commodity+"|"+p.Location+"|"+p.Date.String()] = p
	return nil
}

var testToday = civil.Date{Year: 2023, Month: 2, Day: 4}

func newTestConsumer(repo PriceRepository) *Consumer {
	return &Consumer{
		repo:   repo,
		today:  func() civil.Date { return testToday },
		logger: zap.NewNop(),
	}
}

func reportMessage(t *testing.T, eventType string, data models.PriceReportData) kafka.Message {
	t.Helper()
	value, err := json.Marshal(models.PriceReportEvent{
		EventType: eventType,
		Source:    "market-committee",
		Data:      data,
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(data.Commodity), Value: value}
}

func TestProcessMessage_StoresReport(t *testing.T) {
	repo := NewMockRepository()
	consumer := newTestConsumer(repo)

	msg := reportMessage(t, models.EventPriceReported, models.PriceReportData{
		Commodity: " Wheat ",
		Location:  "Lahore",
		Date:      "2023-02-03",
		Price:     "4012.456",
	})
	require.NoError(t, consumer.processMessage(msg))

	stored, ok := repo.prices["Wheat|Lahore|2023-02-03"]
	require.True(t, ok)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("4012.46")))
	assert.Equal(t, models.SourceReport, stored.Source)
	assert.Equal(t, civil.Date{Year: 2023, Month: 2, Day: 3}, stored.Date)
}

func TestProcessMessage_SameDayReportOverwrites(t *testing.T) {
	repo := NewMockRepository()
	consumer := newTestConsumer(repo)

	for _, p := range []string{"100", "120"} {
		msg := reportMessage(t, models.EventPriceReported, models.PriceReportData{
			Commodity: "Rice", Location: "Karachi", Date: "2023-02-04", Price: p,
		})
		require.NoError(t, consumer.processMessage(msg))
	}

	assert.Len(t, repo.prices, 1)
	assert.True(t, repo.prices["Rice|Karachi|2023-02-04"].Price.Equal(decimal.NewFromInt(120)))
}

func TestProcessMessage_IgnoresOtherEvents(t *testing.T) {
	repo := NewMockRepository()
	consumer := newTestConsumer(repo)

	msg := reportMessage(t, models.EventPriceSnapshot, models.PriceReportData{
		Commodity: "Rice", Location: "Karachi", Date: "2023-02-04", Price: "1",
	})
	require.NoError(t, consumer.processMessage(msg))
	assert.Equal(t, 0, repo.UpsertCalls)
}

func TestProcessMessage_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data models.PriceReportData
	}{
		{"missing commodity", models.PriceReportData{Location: "Lahore", Date: "2023-02-01", Price: "1"}},
		{"missing location", models.PriceReportData{Commodity: "Wheat", Date: "2023-02-01", Price: "1"}},
		{"bad date format", models.PriceReportData{Commodity: "Wheat", Location: "Lahore", Date: "02/01/2023", Price: "1"}},
		{"impossible date", models.PriceReportData{Commodity: "Wheat", Location: "Lahore", Date: "2023-02-30", Price: "1"}},
		{"future date", models.PriceReportData{Commodity: "Wheat", Location: "Lahore", Date: "2023-02-05", Price: "1"}},
		{"bad price", models.PriceReportData{Commodity: "Wheat", Location: "Lahore", Date: "2023-02-01", Price: "abc"}},
		{"negative price", models.PriceReportData{Commodity: "Wheat", Location: "Lahore", Date: "2023-02-01", Price: "-5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockRepository()
			consumer := newTestConsumer(repo)

			err := consumer.processMessage(reportMessage(t, models.EventPriceReported, tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidReport))
			assert.Equal(t, 0, repo.UpsertCalls)
		})
	}
}

func TestProcessMessage_MalformedJSON(t *testing.T) {
	consumer := newTestConsumer(NewMockRepository())
	err := consumer.processMessage(kafka.Message{Value: []byte("{")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal price report")
}

func TestProcessMessage_RepositoryError(t *testing.T) {
	repo := NewMockRepository()
	repo.err = errors.New("db down")
	consumer := newTestConsumer(repo)

	msg := reportMessage(t, models.EventPriceReported, models.PriceReportData{
		Commodity: "Wheat", Location: "Lahore", Date: "2023-02-01", Price: "1",
	})
	err := consumer.processMessage(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save price report")
}
