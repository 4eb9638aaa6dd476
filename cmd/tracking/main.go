// Command tracking runs the standalone tracking edge: pixel and redirect
// endpoints publishing to SQS. It holds no database connection, so it can
// be deployed on the public edge with minimal blast radius.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/inteldesk/inteldesk/internal/pkg/logger"
	"github.com/inteldesk/inteldesk/internal/tracking"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	queueURL := os.Getenv("SQS_TRACKING_QUEUE_URL")
	if queueURL == "" {
		logger.Error("SQS_TRACKING_QUEUE_URL is required")
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("aws config", "error", err)
		os.Exit(1)
	}

	queue := tracking.NewSQSQueue(sqs.NewFromConfig(awsCfg), queueURL)
	handler := tracking.NewHandler(queue)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("tracking service listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down tracking service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
