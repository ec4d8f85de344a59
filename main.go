package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"bookmarket/server/internal/api"
	"bookmarket/server/internal/api/handlers"
	"bookmarket/server/internal/cache"
	"bookmarket/server/internal/config"
	"bookmarket/server/internal/db"
	"bookmarket/server/internal/email"
	"bookmarket/server/internal/services"
	"bookmarket/server/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

const (
	indexTimeout    = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName, cfg.AppName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), indexTimeout)
	if err := db.EnsureIndexes(indexCtx, mongoDb); err != nil {
		log.Printf("WARNING: failed to ensure indexes: %v", err)
	}
	cancelIndex()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Email delivery
	var primaryEmailSender email.Sender
	if cfg.MockServices && redisClient != nil {
		log.Println("MOCK_SERVICES enabled: using Redis email sender.")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		if cfg.MockServices {
			log.Println("MOCK_SERVICES needs REDIS_ADDR; falling back to SMTP/logging email sender.")
		}
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if cfg.EmailLogFile != "" {
		fileSender, err := email.NewFileEmailSender(cfg.EmailLogFile)
		if err != nil {
			log.Printf("WARNING: file email logger disabled (EMAIL_LOG_FILE='%s'): %v", cfg.EmailLogFile, err)
		} else {
			compositeSender.AddSender(fileSender)
			log.Printf("Outgoing email is also logged to %s", cfg.EmailLogFile)
		}
	}

	svc := api.Services{
		Books:     services.NewBookService(mongoDb),
		Purchases: services.NewPurchaseService(mongoDb),
		Contacts:  services.NewContactService(mongoDb),
	}
	emailTemplateService := services.NewEmailTemplateService(mongoDb, cfg.DefaultLocale)

	// Left as a nil interface when notifications are off.
	var taskClient handlers.IAsynqClient
	if redisClient != nil && cfg.NotificationsEnabled() {
		client := tasks.NewClient(redisClient)
		defer client.Close()
		taskClient = client
		log.Printf("Contact notifications go to %s", cfg.ContactNotifyTo)
	} else {
		log.Println("Contact notifications disabled (set REDIS_ADDR and CONTACT_NOTIFY_TO to enable).")
	}

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		log.Println("Service API server stopped.")
	}()

	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server

	log.Printf("Starting application in '%s' mode...", cfg.RunMode)

	apiMode := func() {
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(cfg, svc, taskClient),
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			log.Println("Main API server stopped.")
		}()
	}

	bgMode := func() {
		if redisClient == nil {
			log.Println("REDIS_ADDR not set, background worker not started.")
			return
		}
		processor := tasks.NewTaskProcessor(cfg, compositeSender, emailTemplateService)
		srv, mux := tasks.SetupServer(redisClient, processor)
		if err := srv.Start(mux); err != nil {
			log.Fatalf("Background task server error: %v", err)
		}
		backgroundTaskSrv = srv
		log.Println("Background task server started.")
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("Received signal: %s. Shutting down gracefully...", sig)
	case <-shutdownChan:
		log.Println("Shutdown requested via Service API. Shutting down gracefully...")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
		log.Println("Background task server stopped.")
	}
	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server gracefully stopped")
}
