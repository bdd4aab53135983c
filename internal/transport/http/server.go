package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phonebuddy/internal/cache"
	"phonebuddy/internal/config"
	"phonebuddy/internal/database"
	"phonebuddy/internal/handler"
	"phonebuddy/internal/notify"
	"phonebuddy/internal/queue"
	appredis "phonebuddy/internal/redis"
	"phonebuddy/internal/repository"
	"phonebuddy/internal/store"
	"phonebuddy/internal/worker"
)

// Run wires the dispatcher service: Firestore watcher -> Redis stream ->
// worker pool -> FCM, plus the admin HTTP API. Blocks until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		return err
	}

	credentials := cfg.FirebaseCredentialsJSON()

	roomStore, err := store.NewRoomStore(ctx, cfg.FirebaseProjectID, credentials)
	if err != nil {
		return fmt.Errorf("failed to create room store: %w", err)
	}
	defer roomStore.Close()

	fcmSender, err := notify.NewFCMSender(ctx, cfg.FirebaseProjectID, credentials)
	if err != nil {
		return fmt.Errorf("failed to create fcm sender: %w", err)
	}

	dispatchClient := notify.NewClient(fcmSender)
	deliveryRepo := repository.NewDeliveryRepository(db)

	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)
	deviceCache := cache.NewDeviceCache(redisClient.Client)

	// Watcher: store change stream -> queue.
	watcher := store.NewWatcher(roomStore, deviceCache, publisher)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[Server] Watcher stopped: %v", err)
			stop()
		}
	}()

	// Workers: queue -> evaluate -> dispatch -> audit.
	dispatchHandler := worker.NewHandler(roomStore, dispatchClient, deliveryRepo)
	manager := worker.NewManager(consumer, dispatchHandler, worker.ManagerConfig{
		WorkerCount: cfg.WorkerCount,
	})
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	router := NewRouter(RouterConfig{
		AdminHandler:  handler.NewAdminHandler(dispatchClient, deliveryRepo),
		DeviceHandler: handler.NewDeviceHandler(roomStore),
		JWTSecret:     cfg.JWTSecret,
	})

	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Server] Shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
		return err
	}
	return nil
}
