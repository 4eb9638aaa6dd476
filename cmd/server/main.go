// Command server runs the dashboard API. With the default in-memory
// tracking queue it also serves the tracking endpoints and consumes
// events in-process; with SQS configured, the tracking and worker
// binaries take those roles.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inteldesk/inteldesk/internal/api"
	"github.com/inteldesk/inteldesk/internal/audit"
	"github.com/inteldesk/inteldesk/internal/auth"
	"github.com/inteldesk/inteldesk/internal/config"
	"github.com/inteldesk/inteldesk/internal/delivery"
	"github.com/inteldesk/inteldesk/internal/feeds"
	"github.com/inteldesk/inteldesk/internal/mailer"
	"github.com/inteldesk/inteldesk/internal/pkg/distlock"
	"github.com/inteldesk/inteldesk/internal/pkg/logger"
	"github.com/inteldesk/inteldesk/internal/search"
	"github.com/inteldesk/inteldesk/internal/store"
	"github.com/inteldesk/inteldesk/internal/tracking"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns,
		time.Duration(cfg.Database.ConnMaxLifeMins)*time.Minute)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(ctx, db); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}
	st := store.New(db)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	transport, err := buildTransport(cfg)
	if err != nil {
		logger.Error("build mail transport", "error", err)
		os.Exit(1)
	}

	var archiver delivery.Archiver
	if cfg.Archive.Enabled && cfg.Archive.S3Bucket != "" {
		s3Archiver, err := delivery.NewS3Archiver(cfg.Archive.S3Bucket, cfg.Archive.Region, cfg.Archive.Prefix)
		if err != nil {
			logger.Error("build archiver", "error", err)
			os.Exit(1)
		}
		archiver = s3Archiver
	}

	auditLog := audit.New(st)
	orchestrator := delivery.NewOrchestrator(st, delivery.NewRenderer(), transport, auditLog, archiver,
		cfg.Mail.From, cfg.Mail.FromName, cfg.Tracking.BaseURL)

	// With the in-memory queue the server is the whole pipeline: edge
	// endpoints, queue, and consumer all live in this process.
	var trackingHandler *tracking.Handler
	var consumer *tracking.Consumer
	switch cfg.Tracking.QueueType {
	case "sqs":
		// Edge and consumer run in the tracking and worker binaries.
	default:
		queue := tracking.NewMemoryQueue(0)
		trackingHandler = tracking.NewHandler(queue)
		consumer = tracking.NewConsumer(queue, st, buildDeduper(rdb, cfg))
		consumer.Start(ctx)
		defer consumer.Stop()
	}

	if cfg.Scheduler.Enabled {
		lock := distlock.New(rdb, db, "scheduler:due-emails", cfg.Scheduler.PollInterval())
		scheduler := delivery.NewScheduler(st, orchestrator, lock, cfg.Scheduler.PollInterval(), cfg.Scheduler.BatchSize)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	if cfg.Feeds.Enabled && len(cfg.Feeds.Sources) > 0 {
		poller := feeds.NewPoller(st, cfg.Feeds.Sources, cfg.Feeds.Interval())
		poller.Start(ctx)
		defer poller.Stop()
	}

	deps := api.Deps{
		Store:        st,
		Orchestrator: orchestrator,
		SearchIndex:  search.NewSQLIndex(st),
		Audit:        auditLog,
		Verifier:     auth.NewJWTVerifier(cfg.Auth.JWTSecret),
		TokenCookie:  cfg.Auth.TokenCookie,
		CORSOrigins:  corsOrigins(),
	}
	if trackingHandler != nil {
		deps.Tracking = trackingHandler.Routes()
	}
	srv := api.NewServer(cfg.Server, deps)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "host", cfg.Server.GetHost(), "port", cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Error("server exited", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func buildTransport(cfg *config.Config) (mailer.Transport, error) {
	if cfg.Mail.Transport == "ses" {
		return mailer.NewSESTransport(cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region)
	}
	return mailer.NewSMTPTransport(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Timeout()), nil
}

func buildDeduper(rdb *redis.Client, cfg *config.Config) tracking.Deduper {
	if rdb == nil {
		return tracking.NopDeduper{}
	}
	return tracking.NewRedisDeduper(rdb, cfg.Tracking.DedupTTL())
}

func corsOrigins() []string {
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		return strings.Split(v, ",")
	}
	return nil
}
