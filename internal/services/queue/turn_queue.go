package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwebster45206/persona-engine/pkg/queue"
	"github.com/redis/go-redis/v9"
)

// RequestsKey is the Redis list holding pending turn requests
const RequestsKey = "requests"

// TurnQueue is the global FIFO of async turn requests
type TurnQueue struct {
	client *Client
}

func NewTurnQueue(client *Client) *TurnQueue {
	return &TurnQueue{client: client}
}

// EnqueueRequest adds a request to the end of the queue
func (q *TurnQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, RequestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	return nil
}

// Requeue puts a request back at the head of the queue, counting the
// attempt. A later turn of the same conversation stays behind it.
func (q *TurnQueue) Requeue(ctx context.Context, req *queue.Request) error {
	req.Attempts++
	return q.Restore(ctx, req)
}

// Restore returns an undelivered request to the head of the queue
func (q *TurnQueue) Restore(ctx context.Context, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if err := q.client.rdb.LPush(ctx, RequestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to requeue request: %w", err)
	}
	return nil
}

// DequeueRequest removes and returns the next request. Returns nil if the
// queue is empty.
func (q *TurnQueue) DequeueRequest(ctx context.Context) (*queue.Request, error) {
	result, err := q.client.rdb.LPop(ctx, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	req, err := queue.FromJSON([]byte(result))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// BlockingDequeueRequest waits up to timeout for a request. Returns nil when
// the timeout passes with nothing queued.
func (q *TurnQueue) BlockingDequeueRequest(ctx context.Context, timeout time.Duration) (*queue.Request, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, RequestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	req, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// RequestQueueDepth returns the number of pending requests
func (q *TurnQueue) RequestQueueDepth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, RequestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}
