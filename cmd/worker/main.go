package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/persona-engine/internal/config"
	"github.com/jwebster45206/persona-engine/internal/logger"
	internalmemory "github.com/jwebster45206/persona-engine/internal/memory"
	"github.com/jwebster45206/persona-engine/internal/services"
	"github.com/jwebster45206/persona-engine/internal/services/queue"
	"github.com/jwebster45206/persona-engine/internal/storage"
	"github.com/jwebster45206/persona-engine/internal/worker"
	"github.com/jwebster45206/persona-engine/pkg/persona"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Persona Engine Worker",
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"concurrency", cfg.WorkerConcurrency)

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()

	queueClient, err := queue.NewClient(startCtx, cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	turnQueue := queue.NewTurnQueue(queueClient)
	log.Info("Queue service initialized successfully")

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.ConversationTTL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	if err := store.WaitForConnection(startCtx, 30, 2*time.Second); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

	invoker, backendName, err := services.NewInvoker(startCtx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize model provider", "error", err, "provider", cfg.LLMProvider)
		os.Exit(1)
	}

	personas, err := persona.LoadStore(cfg.PersonaDir)
	if err != nil {
		log.Error("Failed to load personas", "error", err, "dir", cfg.PersonaDir)
		os.Exit(1)
	}

	memStore, err := internalmemory.Open(startCtx, internalmemory.Options{
		Backend: cfg.MemoryBackend,
		DSN:     cfg.MemoryDSN(),
		Redis:   store.Client(),
		Logger:  log,
	})
	if err != nil {
		log.Error("Failed to open memory store", "error", err, "backend", cfg.MemoryBackend)
		os.Exit(1)
	}
	if memStore != nil {
		defer func() {
			if err := memStore.Close(); err != nil {
				log.Error("Error closing memory store", "error", err)
			}
		}()
	}

	processor := worker.NewTurnProcessor(store, invoker, personas, memStore, worker.ProcessorConfig{
		HistoryLimit:      cfg.HistoryLimit,
		SemanticStrategy:  cfg.MemorySemanticStrategyID,
		CharacterStrategy: cfg.MemoryCharacterStrategyID,
		Backend:           backendName,
	}, log)
	log.Info("Turn processor initialized successfully", "backend", backendName)

	w := worker.New(turnQueue, processor, queueClient.GetRedisClient(), log, cfg.WorkerID, cfg.WorkerConcurrency)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- w.Start()
	}()

	log.Info("Worker started, waiting for requests...")

	select {
	case <-quit:
		log.Info("Worker shutdown signal received")
		w.Stop()
		select {
		case err := <-done:
			if err != nil {
				log.Error("Worker stopped with error", "error", err)
			}
		case <-time.After(30 * time.Second):
			log.Warn("Worker did not stop in time")
		}
	case err := <-done:
		if err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}

	log.Info("Worker exited")
}
