package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/crop-price-monitor/internal/models"
	"github.com/trogers1052/crop-price-monitor/internal/state"
	"go.uber.org/zap"
)

// PriceSource fetches the live realtime table; an empty location means all markets
type PriceSource interface {
	LiveRealtime(ctx context.Context, location string) ([]models.RealtimePrice, error)
}

// HistoryRecorder persists triggered alerts
type HistoryRecorder interface {
	CreateAlertHistory(h *models.AlertHistory) error
}

// Publisher announces triggered alerts
type Publisher interface {
	PublishAlertTriggered(ctx context.Context, userID string, alert *models.PriceAlert, price models.RealtimePrice) error
}

// Checker runs alert evaluation for every known user
type Checker struct {
	prices    PriceSource
	store     *state.Store
	history   HistoryRecorder
	publisher Publisher
	cooldown  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewChecker creates a Checker. history and publisher may be nil.
func NewChecker(prices PriceSource, store *state.Store, history HistoryRecorder, publisher Publisher, cooldown time.Duration, logger *zap.Logger) *Checker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Checker{
		prices:    prices,
		store:     store,
		history:   history,
		publisher: publisher,
		cooldown:  cooldown,
		now:       time.Now,
		logger:    logger,
	}
}

// Run fetches the realtime table once and evaluates every user's alerts
// against it. It returns the number of triggered alerts. A failure for one
// user is logged and does not stop the others.
func (c *Checker) Run(ctx context.Context) (int, error) {
	prices, err := c.prices.LiveRealtime(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch realtime prices: %w", err)
	}

	users, err := c.store.Users(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	total := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := c.checkUser(ctx, user, prices)
		if err != nil {
			c.logger.Error("alert check failed", zap.String("user", user), zap.Error(err))
			continue
		}
		total += n
	}

	c.logger.Info("alert check complete",
		zap.Int("users", len(users)),
		zap.Int("prices", len(prices)),
		zap.Int("triggered", total))
	return total, nil
}

func (c *Checker) checkUser(ctx context.Context, user string, prices []models.RealtimePrice) (int, error) {
	now := c.now()
	var fired []Trigger

	_, err := c.store.Update(ctx, user, func(st *models.AppState) error {
		fired = Evaluate(st.Alerts, prices, now, c.cooldown)
		for _, t := range fired {
			if a := st.FindAlert(t.Alert.ID); a != nil {
				triggeredAt := now
				a.LastTriggeredAt = &triggeredAt
			}
			st.AddNotification(Notify(t, st.Language, now))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i := range fired {
		c.record(ctx, user, fired[i], now)
	}
	return len(fired), nil
}

func (c *Checker) record(ctx context.Context, user string, t Trigger, now time.Time) {
	if c.history != nil {
		h := &models.AlertHistory{
			UserID:         user,
			AlertID:        t.Alert.ID,
			Commodity:      t.Alert.Commodity,
			Location:       t.Alert.Location,
			Condition:      t.Alert.Condition,
			TargetPrice:    t.Alert.TargetPrice,
			TriggeredPrice: t.Price.Price,
			Message:        Notify(t, models.LanguageEnglish, now).Message,
			TriggeredAt:    now,
		}
		if err := c.history.CreateAlertHistory(h); err != nil {
			c.logger.Warn("failed to record alert history", zap.String("alert_id", t.Alert.ID), zap.Error(err))
		}
	}

	if c.publisher != nil {
		if err := c.publisher.PublishAlertTriggered(ctx, user, &t.Alert, t.Price); err != nil {
			c.logger.Warn("failed to publish alert event", zap.String("alert_id", t.Alert.ID), zap.Error(err))
		}
	}
}
