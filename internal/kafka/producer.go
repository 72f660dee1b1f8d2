package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/crop-price-monitor/internal/models"
)

// MessageWriter is the subset of *kafka.Writer used by Producer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes alert and price snapshot events
type Producer struct {
	alerts MessageWriter
	prices MessageWriter
	now    func() time.Time
}

// NewProducer creates a producer writing alert events to alertsTopic and
// price snapshots to pricesTopic
func NewProducer(brokers []string, alertsTopic, pricesTopic string) *Producer {
	return &Producer{
		alerts: newWriter(brokers, alertsTopic),
		prices: newWriter(brokers, pricesTopic),
		now:    time.Now,
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
}

// PublishAlertTriggered publishes a PRICE_ALERT_TRIGGERED event keyed by user
func (p *Producer) PublishAlertTriggered(ctx context.Context, userID string, alert *models.PriceAlert, price models.RealtimePrice) error {
	event := models.AlertEvent{
		EventType: models.EventPriceAlertTriggered,
		UserID:    userID,
		Alert:     alert,
		Price:     price,
		Timestamp: p.now(),
	}
	return publish(ctx, p.alerts, userID, event)
}

// PublishPriceSnapshot publishes a PRICE_SNAPSHOT event keyed by location
func (p *Producer) PublishPriceSnapshot(ctx context.Context, location string, prices []models.RealtimePrice) error {
	if location == "" {
		location = "all"
	}
	event := models.PriceSnapshotEvent{
		EventType: models.EventPriceSnapshot,
		Prices:    prices,
		Timestamp: p.now(),
	}
	return publish(ctx, p.prices, location, event)
}

func publish(ctx context.Context, w MessageWriter, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes both writers
func (p *Producer) Close() error {
	alertsErr := p.alerts.Close()
	pricesErr := p.prices.Close()
	if alertsErr != nil {
		return alertsErr
	}
	return pricesErr
}
