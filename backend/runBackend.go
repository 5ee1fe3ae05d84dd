// Package backend assembles and runs the EcoTrack API server.
package backend

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jghoshh/ecotrack/backend/config"
	"github.com/jghoshh/ecotrack/backend/logger"
	"github.com/jghoshh/ecotrack/backend/queue"
	"github.com/jghoshh/ecotrack/backend/server"
	"github.com/jghoshh/ecotrack/backend/server/apperror"
	"github.com/jghoshh/ecotrack/backend/server/handlers"
	storage "github.com/jghoshh/ecotrack/backend/storage/persistent"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	numActivityProducers = 1
	numActivityConsumers = 1
)

// RunBackend is the main function that sets up and runs the backend server.
// It blocks until SIGINT or SIGTERM is received.
func RunBackend() {
	// Load the .env file. A missing file is not an error.
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Info("no .env file loaded", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The store keeps retrying in the background, so a failed first
	// connection only fails the requests that reach it.
	store, err := storage.NewStorage(cfg.DBName, cfg.MongoURI, cfg.DBTimeout)
	if err != nil {
		log.Error("MongoDB connection error", zap.Error(err))
	} else {
		log.Info("MongoDB connected", zap.String("database", cfg.DBName))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := store.Disconnect(shutdownCtx); err != nil {
			log.Warn("error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	publisher, closeQueue := activityPublisher(ctx, cfg, log)
	defer closeQueue()

	h := handlers.New(store, publisher, apperror.NewValidator(), log)
	router := server.NewRouter(h, server.NewMetrics(), log)

	if err := server.Start(ctx, cfg.Addr(), router, cfg.ShutdownTimeout, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

// activityPublisher connects the activity feed when a broker is configured.
// Without one, or when the broker cannot be reached, activity is discarded.
func activityPublisher(ctx context.Context, cfg *config.Config, log *zap.Logger) (queue.Publisher, func()) {
	if cfg.RabbitMQURL == "" {
		log.Info("RABBITMQ_URL not set, activity feed disabled")
		return queue.NopPublisher{}, func() {}
	}

	q, err := queue.BuildActivityQueue(cfg.RabbitMQURL, cfg.ActivityQueue, numActivityProducers, numActivityConsumers, log)
	if err != nil {
		log.Error("activity feed disabled", zap.Error(err))
		return queue.NopPublisher{}, func() {}
	}

	wg := q.StartConsumers(ctx, log)
	return queue.NewActivityPublisher(q, log), func() {
		if err := q.Close(); err != nil {
			log.Warn("error closing activity queue", zap.Error(err))
		}
		wg.Wait()
	}
}
