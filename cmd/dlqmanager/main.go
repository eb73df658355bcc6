package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/outbox"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[dlq] ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay)
	manager.SetLogger(logger)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		logger.Printf("metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics server error: %v", err)
		}
	}()

	logger.Printf("replaying failed run and goal events (interval=%s, batch=%d, maxRetries=%d)",
		cfg.DLQPollInterval, cfg.DLQBatchSize, cfg.DLQMaxRetries)
	replay(ctx, manager, cfg.DLQPollInterval, cfg.DLQBatchSize, logger)
	logger.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
	}
}

// replay drains due DLQ entries immediately and then on every tick until ctx ends.
func replay(ctx context.Context, manager *outbox.DLQManager, interval time.Duration, batchSize int, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		requeued, err := manager.RunOnce(ctx, batchSize)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Printf("replay pass failed: %v", err)
		case requeued > 0:
			logger.Printf("re-queued %d events into the outbox", requeued)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
