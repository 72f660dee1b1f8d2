// Package alerts evaluates user price alerts against the realtime price table.
package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/trogers1052/crop-price-monitor/internal/models"
)

// DefaultCooldown is the minimum gap between two triggers of the same alert
const DefaultCooldown = 6 * time.Hour

// Trigger is an alert whose condition holds for a realtime price
type Trigger struct {
	Alert models.PriceAlert
	Price models.RealtimePrice
}

// Evaluate returns a trigger for every active alert whose commodity and
// location match a price row and whose condition holds. "above" fires at or
// above the target, "below" at or below it. Alerts triggered less than
// cooldown before now are skipped.
func Evaluate(alerts []models.PriceAlert, prices []models.RealtimePrice, now time.Time, cooldown time.Duration) []Trigger {
	index := make(map[string]models.RealtimePrice, len(prices))
	for _, p := range prices {
		index[priceKey(p.Commodity, p.Location)] = p
	}

	var triggers []Trigger
	for _, a := range alerts {
		if !a.Active {
			continue
		}
		if a.LastTriggeredAt != nil && now.Sub(*a.LastTriggeredAt) < cooldown {
			continue
		}
		p, ok := index[priceKey(a.Commodity, a.Location)]
		if !ok {
			continue
		}
		if conditionMet(a, p) {
			triggers = append(triggers, Trigger{Alert: a, Price: p})
		}
	}
	return triggers
}

func conditionMet(a models.PriceAlert, p models.RealtimePrice) bool {
	switch a.Condition {
	case models.ConditionAbove:
		return p.Price.GreaterThanOrEqual(a.TargetPrice)
	case models.ConditionBelow:
		return p.Price.LessThanOrEqual(a.TargetPrice)
	}
	return false
}

func priceKey(commodity, location string) string {
	return strings.ToLower(strings.TrimSpace(commodity)) + "|" + strings.ToLower(strings.TrimSpace(location))
}

// Notify builds the notification for a trigger in the given language
func Notify(t Trigger, lang string, now time.Time) models.Notification {
	n := models.Notification{
		AlertID:   t.Alert.ID,
		CreatedAt: now,
	}

	price := t.Price.Price.StringFixed(2)
	target := t.Alert.TargetPrice.StringFixed(2)

	if lang == models.LanguageUrdu {
		condition := "سے اوپر"
		if t.Alert.Condition == models.ConditionBelow {
			condition = "سے نیچے"
		}
		n.Title = "قیمت کا الرٹ"
		n.Message = fmt.Sprintf("%s (%s) کی قیمت %s روپے ہے، جو آپ کے ہدف %s %s ہے",
			t.Alert.Commodity, t.Alert.Location, price, target, condition)
		return n
	}

	n.Title = "Price alert"
	n.Message = fmt.Sprintf("%s at %s is Rs %s, %s your target of %s",
		t.Alert.Commodity, t.Alert.Location, price, t.Alert.Condition, target)
	return n
}
