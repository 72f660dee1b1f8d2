package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// PricePoint is a single dated price for a commodity at a market
type PricePoint struct {
	Date  civil.Date      `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// PriceStats summarizes a price series
type PriceStats struct {
	Current decimal.Decimal `json:"current"`
	Highest decimal.Decimal `json:"highest"`
	Lowest  decimal.Decimal `json:"lowest"`
	Average decimal.Decimal `json:"average"`
}

// PriceHistory is the backend payload for a historical price query
type PriceHistory struct {
	Data  []PricePoint `json:"data"`
	Stats PriceStats   `json:"stats"`
}

// Forecast is the backend payload for a price prediction query
type Forecast struct {
	Forecast   []PricePoint `json:"forecast"`
	UsingModel bool         `json:"using_model"`
	Message    string       `json:"message,omitempty"`
}

// RealtimePrice is one row of the current market price table
type RealtimePrice struct {
	Commodity string          `json:"commodity"`
	Location  string          `json:"location"`
	Price     decimal.Decimal `json:"price"`
	Change    decimal.Decimal `json:"change"`
	Unit      string          `json:"unit,omitempty"`
	Date      civil.Date      `json:"date"`
}

// StoredPrice is a price point persisted in the price cache
type StoredPrice struct {
	ID        int             `json:"id"`
	Commodity string          `json:"commodity"`
	Location  string          `json:"location"`
	Date      civil.Date      `json:"date"`
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"source"`
}

// Price source constants
const (
	SourceBackend  = "backend"
	SourceRealtime = "realtime"
	SourceReport   = "report"
)
