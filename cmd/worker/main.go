// Command worker runs the background side of a split deployment: the SQS
// tracking-event consumer, the due-email scheduler, and the feed poller.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	"github.com/inteldesk/inteldesk/internal/audit"
	"github.com/inteldesk/inteldesk/internal/config"
	"github.com/inteldesk/inteldesk/internal/delivery"
	"github.com/inteldesk/inteldesk/internal/feeds"
	"github.com/inteldesk/inteldesk/internal/mailer"
	"github.com/inteldesk/inteldesk/internal/pkg/distlock"
	"github.com/inteldesk/inteldesk/internal/pkg/logger"
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
	st := store.New(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	if cfg.Tracking.QueueType == "sqs" && cfg.Tracking.SQSQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Tracking.AWSRegion))
		if err != nil {
			logger.Error("aws config", "error", err)
			os.Exit(1)
		}
		queue := tracking.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.Tracking.SQSQueueURL)

		var dedup tracking.Deduper = tracking.NopDeduper{}
		if rdb != nil {
			dedup = tracking.NewRedisDeduper(rdb, cfg.Tracking.DedupTTL())
		}
		consumer := tracking.NewConsumer(queue, st, dedup)
		consumer.Start(ctx)
		defer consumer.Stop()
	}

	if cfg.Scheduler.Enabled {
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

		orchestrator := delivery.NewOrchestrator(st, delivery.NewRenderer(), transport, audit.New(st), archiver,
			cfg.Mail.From, cfg.Mail.FromName, cfg.Tracking.BaseURL)
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

	logger.Info("worker running")
	<-ctx.Done()
	logger.Info("worker shutting down")
}

func buildTransport(cfg *config.Config) (mailer.Transport, error) {
	if cfg.Mail.Transport == "ses" {
		return mailer.NewSESTransport(cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region)
	}
	return mailer.NewSMTPTransport(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Timeout()), nil
}
