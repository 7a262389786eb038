package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"timecompliance.service/internal/config"
	"timecompliance.service/internal/ports/repository"
	"timecompliance.service/internal/worker"
	"timecompliance.service/internal/worker/alert"
	"timecompliance.service/internal/worker/dispatcher"
	"timecompliance.service/pkg/aws"
	"timecompliance.service/pkg/database"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	// DB connection
	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()
	log.Println("Successfully connected to the database.")

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("unable to load SDK config: %v", err)
	}

	// Initialize Dependencies
	sqsClient := sqs.NewFromConfig(awsCfg)

	repo := repository.NewComplianceRepository(db)

	dispatcherClient := dispatcher.NewHTTPClient(cfg.DispatcherAPIURL)
	processor := alert.NewProcessor(repo, dispatcherClient)

	// Start Worker
	ctx, cancel := context.WithCancel(context.Background())
	app := worker.NewWorker(sqsClient, cfg.AlertSQSQueueURL, processor)

	go func() {
		app.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down worker...")

	// Cancel the context to signal the worker to stop polling.
	cancel()

	log.Println("Worker exited gracefully")
}
