// Package scheduler runs the periodic alert check, realtime snapshot and
// retention jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/robfig/cron/v3"
	"github.com/trogers1052/crop-price-monitor/internal/models"
	"go.uber.org/zap"
)

// AlertRunner evaluates every user's alerts once
type AlertRunner interface {
	Run(ctx context.Context) (int, error)
}

// PriceSource fetches the live realtime table; an empty location means all markets
type PriceSource interface {
	LiveRealtime(ctx context.Context, location string) ([]models.RealtimePrice, error)
}

// PriceWriter persists price rows
type PriceWriter interface {
	UpsertPrices(prices []*models.StoredPrice) error
}

// SnapshotPublisher announces persisted snapshots
type SnapshotPublisher interface {
	PublishPriceSnapshot(ctx context.Context, location string, prices []models.RealtimePrice) error
}

// Pruner deletes data past its retention period
type Pruner interface {
	DeletePricesOlderThan(date civil.Date) (int64, error)
	DeleteAlertHistoryOlderThan(t time.Time) (int64, error)
}

// Specs holds the cron expressions (with seconds) of each job. Empty
// expressions disable the job.
type Specs struct {
	AlertCheck string
	Snapshot   string
	Cleanup    string
}

// Jobs holds the job dependencies. Nil dependencies disable the jobs that need them.
type Jobs struct {
	Alerts        AlertRunner
	Prices        PriceSource
	Store         PriceWriter
	Publisher     SnapshotPublisher
	Pruner        Pruner
	RetentionDays int
}

// Scheduler manages all cron tasks
type Scheduler struct {
	cron    *cron.Cron
	jobs    Jobs
	ctx     context.Context
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a Scheduler whose jobs run under ctx, each bounded by timeout
func New(ctx context.Context, jobs Jobs, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:    jobs,
		ctx:     ctx,
		timeout: timeout,
		now:     time.Now,
		logger:  logger,
	}
}

// RegisterAll registers every job that has a cron expression and its dependencies
func (s *Scheduler) RegisterAll(specs Specs) error {
	if specs.AlertCheck != "" && s.jobs.Alerts != nil {
		if _, err := s.cron.AddFunc(specs.AlertCheck, s.wrap("alert check", s.RunAlertCheck)); err != nil {
			return fmt.Errorf("register alert check: %w", err)
		}
	}
	if specs.Snapshot != "" && s.jobs.Prices != nil && s.jobs.Store != nil {
		if _, err := s.cron.AddFunc(specs.Snapshot, s.wrap("realtime snapshot", s.RunSnapshot)); err != nil {
			return fmt.Errorf("register realtime snapshot: %w", err)
		}
	}
	if specs.Cleanup != "" && s.jobs.Pruner != nil && s.jobs.RetentionDays > 0 {
		if _, err := s.cron.AddFunc(specs.Cleanup, s.wrap("retention cleanup", s.RunCleanup)); err != nil {
			return fmt.Errorf("register retention cleanup: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) wrap(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		start := s.now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Debug("scheduled job done", zap.String("job", name), zap.Duration("took", s.now().Sub(start)))
	}
}

// RunAlertCheck evaluates all alerts now
func (s *Scheduler) RunAlertCheck(ctx context.Context) error {
	_, err := s.jobs.Alerts.Run(ctx)
	return err
}

// RunSnapshot stores the realtime table as the day's prices and publishes it
func (s *Scheduler) RunSnapshot(ctx context.Context) error {
	prices, err := s.jobs.Prices.LiveRealtime(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to fetch realtime prices: %w", err)
	}
	if len(prices) == 0 {
		return nil
	}

	today := civil.DateOf(s.now())
	rows := make([]*models.StoredPrice, 0, len(prices))
	for _, p := range prices {
		date := p.Date
		if !date.IsValid() || date.After(today) {
			date = today
		}
		rows = append(rows, &models.StoredPrice{
			Commodity: p.Commodity,
			Location:  p.Location,
			Date:      date,
			Price:     p.Price,
			Source:    models.SourceRealtime,
		})
	}

	if err := s.jobs.Store.UpsertPrices(rows); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	if s.jobs.Publisher != nil {
		if err := s.jobs.Publisher.PublishPriceSnapshot(ctx, "", prices); err != nil {
			s.logger.Warn("failed to publish snapshot", zap.Error(err))
		}
	}

	s.logger.Info("stored realtime snapshot", zap.Int("rows", len(rows)))
	return nil
}

// RunCleanup deletes prices and alert history older than the retention period
func (s *Scheduler) RunCleanup(_ context.Context) error {
	now := s.now()
	cutoff := now.AddDate(0, 0, -s.jobs.RetentionDays)

	prices, err := s.jobs.Pruner.DeletePricesOlderThan(civil.DateOf(cutoff))
	if err != nil {
		return err
	}
	history, err := s.jobs.Pruner.DeleteAlertHistoryOlderThan(cutoff)
	if err != nil {
		return err
	}

	s.logger.Info("retention cleanup done",
		zap.Int64("prices_deleted", prices),
		zap.Int64("alert_history_deleted", history))
	return nil
}
