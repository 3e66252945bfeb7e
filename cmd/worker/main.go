package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"picmagic/config"
	"picmagic/kafka"
	"picmagic/pool"
	"picmagic/provider"
	"picmagic/provider/chatimage"
	"picmagic/provider/localfx"
	"picmagic/provider/neuralstyle"
	"picmagic/service"
	"picmagic/store"
	"picmagic/styles"
)

func main() {
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Worker service starting",
		zap.String("store", cfg.StoreDriver),
		zap.String("provider", cfg.Provider),
		zap.String("topic", cfg.KafkaTopic),
		zap.Int("workers", cfg.WorkerCount),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	taskStore, closeStore, err := newTaskStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Init task store", zap.Error(err))
	}
	defer closeStore()

	table := styles.NewTable(styles.Defaults())

	stylizer, err := newStylizer(cfg, table, logger)
	if err != nil {
		logger.Fatal("Init provider", zap.Error(err))
	}

	executor := service.NewExecutor(taskStore, stylizer, logger)

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID)
	if err != nil {
		logger.Fatal("Init kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	workers := pool.NewWorkerPool(cfg.WorkerCount)

	handler := func(ctx context.Context, msg *kafka.TaskMessage) error {
		workers.Submit(ctx, msg, func(ctx context.Context, m *kafka.TaskMessage) error {
			logger.Info("Executing task",
				zap.String("task_id", m.TaskID),
				zap.String("trace_id", m.TraceID),
			)
			executor.Execute(ctx, m.TaskID)
			return nil
		})
		return nil
	}

	go func() {
		for {
			// Consume returns on rebalance; loop until shutdown.
			if err := consumer.Consume(ctx, cfg.KafkaTopic, handler); err != nil {
				logger.Error("Consume", zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down, draining in-flight tasks")
	workers.Wait()
}

func newTaskStore(ctx context.Context, cfg *config.Config) (store.TaskStore, func(), error) {
	switch cfg.StoreDriver {
	case "redis":
		s, err := store.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Init(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "memory":
		// A process-local map cannot be shared with the API service.
		return nil, nil, fmt.Errorf("memory store cannot back a separate worker deployment")
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %s", cfg.StoreDriver)
	}
}

func newStylizer(cfg *config.Config, table *styles.Table, logger *zap.Logger) (provider.Stylizer, error) {
	switch cfg.Provider {
	case "chatimage":
		return chatimage.New(cfg.ChatAPIBaseURL, table, logger), nil
	case "neuralstyle":
		return neuralstyle.New(cfg.NeuralStyleBaseURL, table, logger), nil
	case "local":
		return localfx.New(cfg.OutputDir, cfg.PublicBaseURL, table, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
