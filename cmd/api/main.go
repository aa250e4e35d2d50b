package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Xmanuel01/Viralclips/api"
	"github.com/Xmanuel01/Viralclips/config"
	"github.com/Xmanuel01/Viralclips/db"
	"github.com/Xmanuel01/Viralclips/models"
	"github.com/Xmanuel01/Viralclips/pubsub"
	"github.com/Xmanuel01/Viralclips/queue"
	"github.com/Xmanuel01/Viralclips/quota"
	"github.com/Xmanuel01/Viralclips/storage"
)

func main() {
	cfg, err := config.Load(config.GetEnv("CONFIG_PATH", "config/config.yaml"))
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 1. Database
	gormDB, err := db.InitDB(cfg.Database.DSN, cfg.Database.CloudSQLInstance)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	repo := db.NewRepository(gormDB)

	// 2. Redis: queue, quota and progress all ride the same connection
	rdb, err := pubsub.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to initialize Redis:", err)
	}

	q, err := queue.New(rdb, queue.Options{LeaseTTL: cfg.LeaseTTL()})
	if err != nil {
		log.Fatal("Failed to initialize queue:", err)
	}

	// 3. Blob storage
	store, err := storage.NewBlobStore(cfg.Storage.Endpoint, cfg.Storage.AccessKey,
		cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		log.Fatal("Failed to connect to object storage:", err)
	}

	// 4. Fiber app
	maxUpload := int64(0)
	for _, tier := range cfg.Tiers {
		if mb := tier.MaxFileSizeMB << 20; mb > maxUpload {
			maxUpload = mb
		}
	}
	app := fiber.New(fiber.Config{
		BodyLimit: int(maxUpload) + 1<<20,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID, X-User-Tier",
	}))

	progress := pubsub.NewProgress(rdb)
	handler := api.NewHandler(cfg, repo, store, q, quota.NewRedisService(rdb), progress)
	handler.Register(app)

	// 5. Firehose log of terminal stage outcomes for ops visibility
	fhCtx, fhCancel := context.WithCancel(context.Background())
	go func() {
		updates, err := progress.SubscribeAll(fhCtx)
		if err != nil {
			log.Printf(" [!] progress firehose unavailable: %v", err)
			return
		}
		for p := range updates {
			switch p.Status {
			case models.StatusCompleted, models.StatusFailed, models.StatusCancelled:
				log.Printf(" [i] job %s: %s %s", p.JobID, p.Type, p.Status)
			}
		}
	}()

	// 6. Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, draining API...")
		fhCancel()
		if err := app.Shutdown(); err != nil {
			log.Printf(" [!] shutdown: %v", err)
		}
	}()

	addr := cfg.Server.Host + ":" + config.GetEnv("PORT", strconv.Itoa(cfg.Server.Port))
	log.Printf(" [*] API listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}
