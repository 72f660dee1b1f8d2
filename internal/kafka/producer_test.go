package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/crop-price-monitor/internal/models"
)

type captureWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer() (*Producer, *captureWriter, *captureWriter) {
	alerts, prices := &captureWriter{}, &captureWriter{}
	ts := time.Date(2023, 2, 4, 10, 0, 0, 0, time.UTC)
	return &Producer{alerts: alerts, prices: prices, now: func() time.Time { return ts }}, alerts, prices
}

func TestProducer_PublishAlertTriggered(t *testing.T) {
	p, alerts, prices := newTestProducer()
	alert := &models.PriceAlert{ID: "a1", Commodity: "Wheat", Location: "Lahore", Condition: "above"}
	price := models.RealtimePrice{Commodity: "Wheat", Location: "Lahore", Price: decimal.NewFromInt(4100), Date: testToday}

	require.NoError(t, p.PublishAlertTriggered(context.Background(), "alice", alert, price))
	require.Len(t, alerts.messages, 1)
	assert.Empty(t, prices.messages)
	assert.Equal(t, "alice", string(alerts.messages[0].Key))

	var event models.AlertEvent
	require.NoError(t, json.Unmarshal(alerts.messages[0].Value, &event))
	assert.Equal(t, models.EventPriceAlertTriggered, event.EventType)
	assert.Equal(t, "alice", event.UserID)
	assert.Equal(t, "a1", event.Alert.ID)
	assert.True(t, event.Price.Price.Equal(decimal.NewFromInt(4100)))
}

func TestProducer_PublishPriceSnapshot(t *testing.T) {
	p, alerts, prices := newTestProducer()
	rows := []models.RealtimePrice{{Commodity: "Rice", Location: "Karachi", Price: decimal.NewFromInt(9000), Date: testToday}}

	require.NoError(t, p.PublishPriceSnapshot(context.Background(), "", rows))
	require.Len(t, prices.messages, 1)
	assert.Empty(t, alerts.messages)
	assert.Equal(t, "all", string(prices.messages[0].Key))

	var event models.PriceSnapshotEvent
	require.NoError(t, json.Unmarshal(prices.messages[0].Value, &event))
	assert.Equal(t, models.EventPriceSnapshot, event.EventType)
	assert.Len(t, event.Prices, 1)
}

func TestProducer_WriteError(t *testing.T) {
	p, alerts, _ := newTestProducer()
	alerts.err = errors.New("broker down")

	err := p.PublishAlertTriggered(context.Background(), "alice", &models.PriceAlert{}, models.RealtimePrice{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write message to kafka")
}

func TestProducer_Close(t *testing.T) {
	p, alerts, prices := newTestProducer()
	require.NoError(t, p.Close())
	assert.True(t, alerts.closed)
	assert.True(t, prices.closed)
}
