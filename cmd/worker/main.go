package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/Xmanuel01/Viralclips/config"
	"github.com/Xmanuel01/Viralclips/db"
	"github.com/Xmanuel01/Viralclips/events"
	"github.com/Xmanuel01/Viralclips/fetch"
	"github.com/Xmanuel01/Viralclips/orchestrator"
	"github.com/Xmanuel01/Viralclips/pubsub"
	"github.com/Xmanuel01/Viralclips/queue"
	"github.com/Xmanuel01/Viralclips/render"
	"github.com/Xmanuel01/Viralclips/storage"
	"github.com/Xmanuel01/Viralclips/transcribe"
)

func main() {
	cfg, err := config.Load(config.GetEnv("CONFIG_PATH", "config/config.yaml"))
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if err := os.MkdirAll(cfg.Storage.TempDir, 0755); err != nil {
		log.Fatal("Failed to create temp dir:", err)
	}

	// 1. Database and Redis
	gormDB, err := db.InitDB(cfg.Database.DSN, cfg.Database.CloudSQLInstance)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	repo := db.NewRepository(gormDB)

	rdb, err := pubsub.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to initialize Redis:", err)
	}

	// 2. Blob storage
	store, err := storage.NewBlobStore(cfg.Storage.Endpoint, cfg.Storage.AccessKey,
		cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		log.Fatal("Failed to connect to object storage:", err)
	}

	// 3. Graceful shutdown: in-flight stages observe the cancelled context and
	// their tasks are re-delivered to another worker.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, stopping worker...")
		cancel()
	}()

	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to ensure bucket:", err)
	}

	// 4. Stage events are optional; without a broker they are dropped.
	var emitter *events.Emitter
	if cfg.Events.AMQPURL != "" {
		emitter, err = events.NewEmitter(cfg.Events.AMQPURL, cfg.Events.Queue)
		if err != nil {
			log.Printf(" [!] stage events disabled: %v", err)
		} else {
			defer emitter.Close()
		}
	}

	// 5. Transcription engine
	var engine transcribe.Engine
	switch cfg.Transcriber.Engine {
	case "openai":
		engine = transcribe.NewOpenAIEngine(cfg.Transcriber.APIKey, cfg.Transcriber.BaseURL, cfg.Transcriber.Model)
	default:
		log.Println(" [!] no transcription engine configured, using placeholder segments")
		engine = transcribe.MockEngine{}
	}

	// 6. Queue and orchestrator
	q, err := queue.New(rdb, queue.Options{
		Consumer:       consumerName(),
		Concurrency:    cfg.Worker.Concurrency,
		HeavySlots:     cfg.Worker.HeavySlots,
		LeaseTTL:       cfg.LeaseTTL(),
		ReservedLowPct: cfg.Worker.ReservedLowPct,
	})
	if err != nil {
		log.Fatal("Failed to initialize queue:", err)
	}

	orch := orchestrator.New(cfg, repo, store, pubsub.NewProgress(rdb), emitter,
		fetch.NewFetcher(cfg.Storage.TempDir),
		transcribe.NewTranscriber(engine, cfg.Storage.TempDir, cfg.Transcriber.ChunkSeconds),
		render.NewRenderer(cfg.Storage.TempDir, cfg.Render.WatermarkText, cfg.Render.BrandAssetDir, cfg.Render.PaddingSec),
		q)

	log.Println(" [*] Worker started. Ready to process pipeline stages.")
	if err := q.Run(ctx, orch.Handle); err != nil && ctx.Err() == nil {
		log.Fatal("Worker stopped:", err)
	}
	log.Println(" [√] Worker drained, bye.")
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
