package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"picmagic/config"
	"picmagic/handlers"
	"picmagic/kafka"
	"picmagic/middleware"
	"picmagic/objectstore"
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
	if cfg.Env == "development" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("API service starting",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("store", cfg.StoreDriver),
		zap.String("provider", cfg.Provider),
		zap.String("dispatcher", cfg.Dispatcher),
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

	dispatcher, closeDispatcher, err := newDispatcher(cfg, executor)
	if err != nil {
		logger.Fatal("Init dispatcher", zap.Error(err))
	}
	defer closeDispatcher()

	lifecycle := service.NewLifecycle(taskStore, dispatcher, logger)

	stylizeHandler := handlers.NewStylizeHandler(lifecycle, logger)
	stylesHandler := handlers.NewStylesHandler(table)
	keyHandler := handlers.NewValidateKeyHandler(logger)

	r := chi.NewRouter()
	r.Use(middleware.Trace)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/stylize", stylizeHandler.Submit)
		r.Get("/stylize/status", stylizeHandler.Status)
		r.Get("/styles", stylesHandler.List)
		r.Post("/validate-key", keyHandler.Validate)
	})

	if cfg.MinioEndpoint != "" {
		uploader, err := objectstore.NewMinioStore(objectstore.MinioConfig{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			PublicBaseURL: cfg.PublicBaseURL,
			Secure:        cfg.MinioSecure,
		})
		if err != nil {
			logger.Fatal("Init object store", zap.Error(err))
		}
		uploadHandler := handlers.NewUploadHandler(uploader, logger)
		r.Post("/api/upload", uploadHandler.Upload)
	} else {
		logger.Warn("MINIO_ENDPOINT not set, upload endpoint disabled")
	}

	// Results of the local provider are served straight from the output dir.
	r.Handle("/outputs/*", http.StripPrefix("/outputs/", http.FileServer(http.Dir(cfg.OutputDir))))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown", zap.Error(err))
	}
}

func newTaskStore(ctx context.Context, cfg *config.Config) (store.TaskStore, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemoryStore(), func() {}, nil
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

func newDispatcher(cfg *config.Config, executor *service.Executor) (service.Dispatcher, func(), error) {
	switch cfg.Dispatcher {
	case "goroutine":
		d := service.NewGoDispatcher(executor)
		return d, func() { d.Wait() }, nil
	case "kafka":
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, nil, err
		}
		return service.NewKafkaDispatcher(producer, cfg.KafkaTopic), func() { producer.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown dispatcher: %s", cfg.Dispatcher)
	}
}
