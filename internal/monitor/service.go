// Package monitor assembles chart-ready price data for the dashboard,
// historical and forecast views, falling back to cached or bundled sample
// prices whenever the backend cannot be reached.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/trogers1052/crop-price-monitor/internal/daterange"
	"github.com/trogers1052/crop-price-monitor/internal/models"
	"github.com/trogers1052/crop-price-monitor/internal/sampledata"
	"github.com/trogers1052/crop-price-monitor/internal/series"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Data source labels reported with every result
const (
	SourceBackend = "backend"
	SourceCache   = "cache"
	SourceSample  = "sample"
)

// CacheMessage is shown when saved prices replace live data
const CacheMessage = "Live prices are unavailable; showing saved prices."

// DefaultWidth is the chart width assumed when a caller does not send one
const DefaultWidth = 360

// ErrInvalidQuery is returned for queries missing a commodity or location
var ErrInvalidQuery = errors.New("invalid query")

var errEmptySeries = errors.New("backend returned no prices")

// Backend is the remote price API
type Backend interface {
	Locations(ctx context.Context) ([]models.Location, error)
	Commodities(ctx context.Context) ([]models.Commodity, error)
	PriceHistory(ctx context.Context, commodity, location string, r daterange.Range) (*models.PriceHistory, error)
	Forecast(ctx context.Context, commodity, location string, days int) (*models.Forecast, error)
	RealtimePrices(ctx context.Context, location string) ([]models.RealtimePrice, error)
}

// PriceCache stores fetched series for use when the backend is down
type PriceCache interface {
	SavePricePoints(commodity, location, source string, points []models.PricePoint) error
	GetPriceRange(commodity, location string, r daterange.Range) ([]models.PricePoint, error)
}

// Options configure a Service
type Options struct {
	Budget       series.Budget
	DefaultWidth int
	Today        func() civil.Date
}

// Service is the shared data core behind every price view
type Service struct {
	backend      Backend
	cache        PriceCache
	budget       series.Budget
	defaultWidth int
	today        func() civil.Date
	logger       *zap.Logger
}

// NewService creates a Service. cache may be nil.
func NewService(backend Backend, cache PriceCache, opts Options, logger *zap.Logger) *Service {
	if opts.Budget == (series.Budget{}) {
		opts.Budget = series.DefaultBudget
	}
	if opts.DefaultWidth <= 0 {
		opts.DefaultWidth = DefaultWidth
	}
	if opts.Today == nil {
		opts.Today = daterange.Today
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:      backend,
		cache:        cache,
		budget:       opts.Budget,
		defaultWidth: opts.DefaultWidth,
		today:        opts.Today,
		logger:       logger,
	}
}

// Today returns the service's current calendar date
func (s *Service) Today() civil.Date {
	return s.today()
}

// HistoryQuery selects a historical series
type HistoryQuery struct {
	Commodity string
	Location  string
	Range     daterange.Range
	Width     int
}

// HistoryResult is a chart-ready historical series
type HistoryResult struct {
	Commodity   string              `json:"commodity"`
	Location    string              `json:"location"`
	Range       daterange.Range     `json:"range"`
	Days        int                 `json:"days"`
	Points      []models.PricePoint `json:"points"`
	TotalPoints int                 `json:"total_points"`
	Stats       models.PriceStats   `json:"stats"`
	Source      string              `json:"source"`
	Fallback    bool                `json:"fallback"`
	Message     string              `json:"message,omitempty"`
}

// History fetches, summarizes and samples a historical series
func (s *Service) History(ctx context.Context, q HistoryQuery) (*HistoryResult, error) {
	if err := validateSelection(q.Commodity, q.Location); err != nil {
		return nil, err
	}
	if err := validateSpan(q.Range, daterange.MaxHistoryDays); err != nil {
		return nil, err
	}

	res := &HistoryResult{
		Commodity: q.Commodity,
		Location:  q.Location,
		Range:     q.Range,
		Days:      daterange.DaysBetween(q.Range),
		Source:    SourceBackend,
	}

	var points []models.PricePoint
	history, err := s.backend.PriceHistory(ctx, q.Commodity, q.Location, q.Range)
	if err == nil && (history == nil || len(history.Data) == 0) {
		err = errEmptySeries
	}
	if err == nil {
		points = sortedByDate(history.Data)
		res.Stats = history.Stats
		if res.Stats == (models.PriceStats{}) {
			res.Stats = series.Summarize(points)
		}
		s.cachePoints(q.Commodity, q.Location, points)
	} else {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("price history fetch failed, falling back",
			zap.String("commodity", q.Commodity),
			zap.String("location", q.Location),
			zap.Error(err))

		points, res.Source, res.Message = s.fallbackHistory(q)
		res.Fallback = true
		res.Stats = series.Summarize(points)
	}

	res.TotalPoints = len(points)
	res.Points, err = series.Sample(points, s.maxPoints(q.Width, res.Days))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) fallbackHistory(q HistoryQuery) ([]models.PricePoint, string, string) {
	if s.cache != nil {
		cached, err := s.cache.GetPriceRange(q.Commodity, q.Location, q.Range)
		if err != nil {
			s.logger.Warn("price cache read failed", zap.Error(err))
		} else if len(cached) > 0 {
			return cached, SourceCache, CacheMessage
		}
	}
	return sampledata.Series(q.Commodity, q.Location, q.Range), SourceSample, sampledata.FallbackMessage
}

func (s *Service) cachePoints(commodity, location string, points []models.PricePoint) {
	if s.cache == nil || len(points) == 0 {
		return
	}
	if err := s.cache.SavePricePoints(commodity, location, models.SourceBackend, points); err != nil {
		s.logger.Warn("failed to cache price history", zap.Error(err))
	}
}

// ForecastQuery selects a forecast horizon through its date range
type ForecastQuery struct {
	Commodity string
	Location  string
	Range     daterange.Range
	Width     int
}

// ForecastResult is a chart-ready forecast series
type ForecastResult struct {
	Commodity  string              `json:"commodity"`
	Location   string              `json:"location"`
	Range      daterange.Range     `json:"range"`
	Days       int                 `json:"days"`
	Points     []models.PricePoint `json:"points"`
	UsingModel bool                `json:"using_model"`
	Source     string              `json:"source"`
	Fallback   bool                `json:"fallback"`
	Message    string              `json:"message,omitempty"`
}

// Forecast fetches a prediction covering DaysBetween(q.Range) days
func (s *Service) Forecast(ctx context.Context, q ForecastQuery) (*ForecastResult, error) {
	if err := validateSelection(q.Commodity, q.Location); err != nil {
		return nil, err
	}
	if err := validateSpan(q.Range, daterange.MaxForecastDays); err != nil {
		return nil, err
	}

	days := daterange.DaysBetween(q.Range)
	res := &ForecastResult{
		Commodity: q.Commodity,
		Location:  q.Location,
		Range:     q.Range,
		Days:      days,
		Source:    SourceBackend,
	}

	fc, err := s.backend.Forecast(ctx, q.Commodity, q.Location, days)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("forecast fetch failed, falling back",
			zap.String("commodity", q.Commodity),
			zap.String("location", q.Location),
			zap.Error(err))

		fc = sampledata.Forecast(q.Commodity, q.Location, s.today(), days)
		res.Source = SourceSample
		res.Fallback = true
	}

	res.UsingModel = fc.UsingModel
	res.Message = fc.Message
	res.Points, err = series.Sample(sortedByDate(fc.Forecast), s.maxPoints(q.Width, days))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RealtimeResult is the current market price table
type RealtimeResult struct {
	Location string                 `json:"location,omitempty"`
	Prices   []models.RealtimePrice `json:"prices"`
	Source   string                 `json:"source"`
	Fallback bool                   `json:"fallback"`
	Message  string                 `json:"message,omitempty"`
}

// Realtime fetches the current price table; an empty location means all markets
func (s *Service) Realtime(ctx context.Context, location string) (*RealtimeResult, error) {
	res := &RealtimeResult{Location: location, Source: SourceBackend}

	prices, err := s.backend.RealtimePrices(ctx, location)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("realtime fetch failed, falling back", zap.String("location", location), zap.Error(err))
		prices = sampledata.Realtime(location, s.today())
		res.Source = SourceSample
		res.Fallback = true
		res.Message = sampledata.FallbackMessage
	}

	res.Prices = prices
	return res, nil
}

// LiveRealtime fetches the current price table without falling back
func (s *Service) LiveRealtime(ctx context.Context, location string) ([]models.RealtimePrice, error) {
	return s.backend.RealtimePrices(ctx, location)
}

// Commodities lists tracked commodities. The bool reports a fallback.
func (s *Service) Commodities(ctx context.Context) ([]models.Commodity, bool) {
	commodities, err := s.backend.Commodities(ctx)
	if err != nil || len(commodities) == 0 {
		if err != nil {
			s.logger.Warn("commodity fetch failed, falling back", zap.Error(err))
		}
		return sampledata.Commodities(), true
	}
	return commodities, false
}

// Locations lists markets. The bool reports a fallback.
func (s *Service) Locations(ctx context.Context) ([]models.Location, bool) {
	locations, err := s.backend.Locations(ctx)
	if err != nil || len(locations) == 0 {
		if err != nil {
			s.logger.Warn("location fetch failed, falling back", zap.Error(err))
		}
		return sampledata.Locations(), true
	}
	return locations, false
}

// DashboardQuery selects the dashboard's commodity and market
type DashboardQuery struct {
	Commodity string
	Location  string
	Width     int
}

// DashboardResult combines the dashboard's three panels
type DashboardResult struct {
	Realtime *RealtimeResult `json:"realtime"`
	History  *HistoryResult  `json:"history"`
	Forecast *ForecastResult `json:"forecast"`
}

// Dashboard loads the realtime table, the recent history and the short
// forecast concurrently. Each panel falls back on its own.
func (s *Service) Dashboard(ctx context.Context, q DashboardQuery) (*DashboardResult, error) {
	if err := validateSelection(q.Commodity, q.Location); err != nil {
		return nil, err
	}

	today := s.today()
	var res DashboardResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		res.Realtime, err = s.Realtime(gctx, q.Location)
		return err
	})
	g.Go(func() error {
		var err error
		res.History, err = s.History(gctx, HistoryQuery{
			Commodity: q.Commodity,
			Location:  q.Location,
			Range:     daterange.LastDays(today, daterange.DashboardWindowDays),
			Width:     q.Width,
		})
		return err
	})
	g.Go(func() error {
		var err error
		res.Forecast, err = s.Forecast(gctx, ForecastQuery{
			Commodity: q.Commodity,
			Location:  q.Location,
			Range:     daterange.NextDays(today, daterange.ForecastWindowDays),
			Width:     q.Width,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return &res, nil
}

func (s *Service) maxPoints(width, days int) int {
	if width <= 0 {
		width = s.defaultWidth
	}
	return series.MaxPoints(width, days, s.budget)
}

func validateSpan(r daterange.Range, maxDays int) error {
	if days := r.End.DaysSince(r.Start); days > maxDays {
		return fmt.Errorf("%w: range of %d days exceeds %d", ErrInvalidQuery, days, maxDays)
	}
	return nil
}

func validateSelection(commodity, location string) error {
	if strings.TrimSpace(commodity) == "" {
		return fmt.Errorf("%w: commodity is required", ErrInvalidQuery)
	}
	if strings.TrimSpace(location) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidQuery)
	}
	return nil
}

func sortedByDate(points []models.PricePoint) []models.PricePoint {
	if sort.SliceIsSorted(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) }) {
		return points
	}
	sorted := append([]models.PricePoint(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	return sorted
}
