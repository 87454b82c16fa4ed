package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/reply"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_PublishesToConversationChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	id := uuid.New()
	sub := client.Subscribe(ctx, Channel(id))
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	b := NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, b.PublishTurnCompleted(ctx, id, "req-1", "msg-1", reply.Reply{Response: "done"}))

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, EventTypeTurnCompleted, ev.Type)
		assert.Equal(t, "req-1", ev.RequestID)
		assert.Equal(t, id.String(), ev.ConversationID)
		assert.Equal(t, "msg-1", ev.Data["message_id"])
		assert.Equal(t, "done", ev.Data["reply"].(map[string]any)["response"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
