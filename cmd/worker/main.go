// The worker mirrors audit entries published over NATS into Postgres so
// operators keep a durable copy beyond the API's process-local trail.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kyc-verification/internal/bootstrap"
	"kyc-verification/internal/config"
	"kyc-verification/internal/core/domain"
	"kyc-verification/internal/infrastructure/repository/postgres"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, "kyc-worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()
	if app.Queue == nil {
		log.Fatalf("worker requires a reachable NATS broker at %s", cfg.NATSURL)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	repo := postgres.NewAuditRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	app.Logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAuditEntries(ctx, func(handlerCtx context.Context, entry domain.AuditEntry) error {
		insertCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		return repo.Insert(insertCtx, entry)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
