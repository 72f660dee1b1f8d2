package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/crop-price-monitor/internal/daterange"
	"github.com/trogers1052/crop-price-monitor/internal/models"
	"go.uber.org/zap"
)

// ErrInvalidReport is returned for price reports that fail validation
var ErrInvalidReport = errors.New("invalid price report")

// PriceRepository defines the price store written by the consumer
type PriceRepository interface {
	UpsertPrice(p *models.StoredPrice) error
}

// Consumer ingests market price reports into the price store
type Consumer struct {
	reader *kafka.Reader
	repo   PriceRepository
	today  func() civil.Date
	logger *zap.Logger
}

// NewConsumer creates a new Kafka consumer for price report events
func NewConsumer(brokers []string, topic, groupID string, repo PriceRepository, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
		today:  daterange.Today,
		logger: logger,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("error reading message", zap.Error(err))
				continue
			}

			if err := c.processMessage(msg); err != nil {
				c.logger.Warn("error processing message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(msg kafka.Message) error {
	var event models.PriceReportEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price report: %w", err)
	}

	if event.EventType != models.EventPriceReported {
		c.logger.Debug("ignoring event", zap.String("event_type", event.EventType))
		return nil
	}

	price, err := c.convertEventToPrice(event)
	if err != nil {
		return err
	}

	if err := c.repo.UpsertPrice(price); err != nil {
		return fmt.Errorf("failed to save price report: %w", err)
	}

	c.logger.Info("saved price report",
		zap.String("reporter", event.Source),
		zap.String("commodity", price.Commodity),
		zap.String("location", price.Location),
		zap.String("date", price.Date.String()),
		zap.String("price", price.Price.String()))
	return nil
}

// convertEventToPrice validates a report and maps it to a StoredPrice
func (c *Consumer) convertEventToPrice(event models.PriceReportEvent) (*models.StoredPrice, error) {
	data := event.Data

	commodity := strings.TrimSpace(data.Commodity)
	location := strings.TrimSpace(data.Location)
	if commodity == "" || location == "" {
		return nil, fmt.Errorf("%w: commodity and location are required", ErrInvalidReport)
	}

	date, ok := daterange.ParseDate(data.Date)
	if !ok {
		return nil, fmt.Errorf("%w: invalid date %q", ErrInvalidReport, data.Date)
	}
	if date.After(c.today()) {
		return nil, fmt.Errorf("%w: date %s is in the future", ErrInvalidReport, date)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(data.Price))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid price %q: %v", ErrInvalidReport, data.Price, err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: negative price %s", ErrInvalidReport, price)
	}

	return &models.StoredPrice{
		Commodity: commodity,
		Location:  location,
		Date:      date,
		Price:     price.Round(2),
		Source:    models.SourceReport,
	}, nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
