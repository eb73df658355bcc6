package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/runtracker/internal/api"
	"example.com/runtracker/internal/bot"
	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/observability"
	"example.com/runtracker/internal/outbox"
	"example.com/runtracker/internal/persistence/bolt"
	"example.com/runtracker/internal/persistence/memory"
	"example.com/runtracker/internal/persistence/postgres"
	httptransport "example.com/runtracker/internal/transport/http"
	"example.com/runtracker/internal/workflow"
)

// backend is the selected run store plus whatever must be stopped with it.
type backend struct {
	store      domain.RunStore
	dispatcher *outbox.Dispatcher
	close      func()
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer store.close()

	if store.dispatcher != nil {
		go store.dispatcher.Start(ctx)
	}

	service := domain.NewService(store.store, domain.WithClock(cfg.Now))
	sessions := workflow.NewSessions(cfg.WorkflowIdleTTL)
	observability.RegisterConversationGauge(sessions.Active)

	dispatcher := bot.NewDispatcher(service, sessions,
		bot.WithLogger(log.New(os.Stdout, "[bot] ", log.LstdFlags)),
		bot.WithStagingDir(cfg.ExportStagingDir),
	)

	handler := api.NewHandler(service, dispatcher)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.Chain(mux,
		httptransport.RequestLogger(log.New(os.Stdout, "[http] ", log.LstdFlags)),
		httptransport.CORS(cfg.CORSAllowedOrigin),
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("runtracker listening on %s (store=%s, tz=%s)", cfg.HTTPAddress, cfg.StoreDriver, cfg.Location)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	if store.dispatcher != nil {
		store.dispatcher.Wait()
	}
}

func openBackend(ctx context.Context, cfg config.Config) (backend, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return backend{store: memory.NewStore(cfg.DefaultWeeklyGoal), close: func() {}}, nil

	case config.StoreBolt:
		store, err := bolt.Open(cfg.BoltPath, cfg.DefaultWeeklyGoal)
		if err != nil {
			return backend{}, err
		}
		return backend{store: store, close: func() {
			if err := store.Close(); err != nil {
				log.Printf("bolt close failed: %v", err)
			}
		}}, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return backend{}, err
		}
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers,
			outbox.WithProducerLogger(log.New(os.Stdout, "[kafka] ", log.LstdFlags)),
			outbox.WithWriteTimeout(cfg.KafkaWriteTimeout),
		)
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		return backend{
			store:      postgres.NewRepository(pool, cfg.DefaultWeeklyGoal),
			dispatcher: outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize),
			close: func() {
				if err := producer.Close(); err != nil {
					log.Printf("kafka producer close failed: %v", err)
				}
				pool.Close()
			},
		}, nil
	}
	return backend{}, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
