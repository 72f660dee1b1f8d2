package models

import "time"

// Event type constants
const (
	EventPriceReported       = "PRICE_REPORTED"
	EventPriceSnapshot       = "PRICE_SNAPSHOT"
	EventPriceAlertTriggered = "PRICE_ALERT_TRIGGERED"
)

// PriceReportEvent is an inbound market price report
type PriceReportEvent struct {
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      PriceReportData `json:"data"`
}

// PriceReportData carries the reported values as text, as sent by reporters
type PriceReportData struct {
	Commodity string `json:"commodity"`
	Location  string `json:"location"`
	Date      string `json:"date"`
	Price     string `json:"price"`
}

// PriceSnapshotEvent announces a persisted realtime price table
type PriceSnapshotEvent struct {
	EventType string          `json:"event_type"`
	Prices    []RealtimePrice `json:"prices"`
	Timestamp time.Time       `json:"timestamp"`
}

// AlertEvent announces a triggered price alert
type AlertEvent struct {
	EventType string        `json:"event_type"`
	UserID    string        `json:"user_id"`
	Alert     *PriceAlert   `json:"alert"`
	Price     RealtimePrice `json:"price"`
	Timestamp time.Time     `json:"timestamp"`
}
