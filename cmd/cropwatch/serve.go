package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/crop-price-monitor/internal/alerts"
	"github.com/trogers1052/crop-price-monitor/internal/api"
	"github.com/trogers1052/crop-price-monitor/internal/client"
	"github.com/trogers1052/crop-price-monitor/internal/database"
	"github.com/trogers1052/crop-price-monitor/internal/kafka"
	"github.com/trogers1052/crop-price-monitor/internal/monitor"
	"github.com/trogers1052/crop-price-monitor/internal/scheduler"
	"github.com/trogers1052/crop-price-monitor/internal/state"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, scheduled jobs and the price report consumer",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := client.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)

	var (
		db       *database.DB
		cache    monitor.PriceCache
		history  api.AlertHistoryReader
		pinger   api.Pinger
		recorder alerts.HistoryRecorder
		jobs     scheduler.Jobs
	)
	if cfg.Database.Enabled {
		var err error
		db, err = database.New(cfg.Database.ConnectionString())
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return err
		}
		cache, history, pinger, recorder = db, db, db, db
		jobs.Store = db
		jobs.Pruner = db
		jobs.RetentionDays = cfg.Schedule.RetentionDays
	} else {
		logger.Warn("database disabled, price cache and alert history are off")
	}

	kv, err := openKV(ctx)
	if err != nil {
		return err
	}
	defer kv.Close()
	store := state.NewStore(kv, cfg.Redis.KeyPrefix)

	svc := monitor.NewService(backend, cache, monitor.Options{
		Budget:       cfg.Chart.Budget,
		DefaultWidth: cfg.Chart.Width,
	}, logger)

	var publisher alerts.Publisher
	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic, cfg.Kafka.PricesTopic)
		defer producer.Close()
		publisher = producer
		jobs.Publisher = producer

		if db != nil {
			consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ReportsTopic, cfg.Kafka.GroupID, db, logger)
			g.Go(func() error { return consumer.Start(gctx) })
		}
	} else {
		logger.Info("no kafka brokers configured, messaging disabled")
	}

	jobs.Alerts = alerts.NewChecker(svc, store, recorder, publisher, cfg.Alerts.Cooldown, logger)
	jobs.Prices = svc

	sched := scheduler.New(gctx, jobs, cfg.Schedule.JobTimeout, logger)
	if err := sched.RegisterAll(scheduler.Specs{
		AlertCheck: cfg.Schedule.AlertCheckCron,
		Snapshot:   cfg.Schedule.SnapshotCron,
		Cleanup:    cfg.Schedule.CleanupCron,
	}); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(svc, store, history, pinger, logger)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openKV(ctx context.Context) (state.KV, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("no redis address configured, application state is kept in memory")
		return state.NewMemoryKV(), nil
	}
	return state.NewRedisKV(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
}
