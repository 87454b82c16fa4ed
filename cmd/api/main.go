package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/persona-engine/internal/config"
	"github.com/jwebster45206/persona-engine/internal/handlers"
	"github.com/jwebster45206/persona-engine/internal/logger"
	internalmemory "github.com/jwebster45206/persona-engine/internal/memory"
	"github.com/jwebster45206/persona-engine/internal/metrics"
	"github.com/jwebster45206/persona-engine/internal/middleware"
	"github.com/jwebster45206/persona-engine/internal/services"
	"github.com/jwebster45206/persona-engine/internal/services/events"
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

	log.Info("Starting Persona Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"memory_backend", cfg.MemoryBackend)

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()

	invoker, backendName, err := services.NewInvoker(startCtx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize model provider", "error", err, "provider", cfg.LLMProvider)
		os.Exit(1)
	}
	log.Info("Using model provider", "provider", cfg.LLMProvider, "backend", backendName)

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.ConversationTTL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	if err := store.WaitForConnection(startCtx, 30, 2*time.Second); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	personas, err := persona.LoadStore(cfg.PersonaDir)
	if err != nil {
		log.Error("Failed to load personas", "error", err, "dir", cfg.PersonaDir)
		os.Exit(1)
	}
	log.Info("Personas loaded", "modes", personas.Modes())

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

	processor := worker.NewTurnProcessor(store, invoker, personas, memStore, worker.ProcessorConfig{
		HistoryLimit:      cfg.HistoryLimit,
		SemanticStrategy:  cfg.MemorySemanticStrategyID,
		CharacterStrategy: cfg.MemoryCharacterStrategyID,
		Backend:           backendName,
	}, log)

	queueClient := queue.NewClientFromRedis(store.Client(), log)
	turnQueue := queue.NewTurnQueue(queueClient)
	broadcaster := events.NewBroadcaster(store.Client(), log)

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(map[string]handlers.Pinger{"redis": store}, log))
	mux.Handle("/ping", handlers.PingHandler{})
	mux.Handle("/invocations", handlers.NewInvocationsHandler(processor, log))
	mux.Handle("/v1/chat", handlers.NewChatHandler(processor, log))
	mux.Handle("/v1/turns", handlers.NewTurnsHandler(turnQueue, broadcaster, log))
	mux.Handle("/v1/conversations/", handlers.NewConversationsHandler(store, log))
	mux.Handle("/v1/events/conversations/", handlers.NewEventsHandler(store.Client(), log))
	mux.Handle("/metrics", metrics.Handler())

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE endpoint streams indefinitely
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if memStore != nil {
		if err := memStore.Close(); err != nil {
			log.Error("Error closing memory store", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
