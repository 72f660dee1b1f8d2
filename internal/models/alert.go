package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Alert condition constants
const (
	ConditionAbove = "above"
	ConditionBelow = "below"
)

// PriceAlert is a user-defined price threshold for a commodity at a market
type PriceAlert struct {
	ID              string          `json:"id"`
	Commodity       string          `json:"commodity"`
	Location        string          `json:"location"`
	TargetPrice     decimal.Decimal `json:"target_price"`
	Condition       string          `json:"condition"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty"`
}

// Notification is a message shown in the user's notification list
type Notification struct {
	ID        string    `json:"id"`
	AlertID   string    `json:"alert_id,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// AlertHistory is a triggered alert record
type AlertHistory struct {
	ID             int             `json:"id"`
	UserID         string          `json:"user_id"`
	AlertID        string          `json:"alert_id"`
	Commodity      string          `json:"commodity"`
	Location       string          `json:"location"`
	Condition      string          `json:"condition"`
	TargetPrice    decimal.Decimal `json:"target_price"`
	TriggeredPrice decimal.Decimal `json:"triggered_price"`
	Message        string          `json:"message,omitempty"`
	TriggeredAt    time.Time       `json:"triggered_at"`
}
