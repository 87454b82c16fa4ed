package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/internal/services/queue"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	queuePkg "github.com/jwebster45206/persona-engine/pkg/queue"
)

func main() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	ctx := context.Background()
	client, err := queue.NewClient(ctx, redisURL, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer func() { _ = client.Close() }()

	fmt.Println("Connected to Redis successfully!")

	turnQueue := queue.NewTurnQueue(client)
	conversationID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	turns := []chat.TurnRequest{
		{ConversationID: conversationID, Message: "Hello, this is a test message!", Owner: "test-user"},
		{ConversationID: uuid.New(), Message: "I push open the tavern door.", Mode: "game_master", Owner: "test-user"},
	}
	for _, turn := range turns {
		req := queuePkg.NewTurnRequest(turn)
		if err := turnQueue.EnqueueRequest(ctx, req); err != nil {
			log.Fatal("Failed to enqueue request:", err)
		}
		fmt.Printf("✅ Enqueued turn %s for conversation %s\n", req.RequestID, req.ConversationID)
	}

	depth, err := turnQueue.RequestQueueDepth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}

	fmt.Printf("\n📊 Queue depth: %d requests\n", depth)
	fmt.Println("\n💡 Now start the worker to see it process these requests!")
	fmt.Println("   Run: go run ./cmd/worker")
}
