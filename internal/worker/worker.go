package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/internal/metrics"
	"github.com/jwebster45206/persona-engine/internal/services/events"
	"github.com/jwebster45206/persona-engine/internal/services/queue"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	queuePkg "github.com/jwebster45206/persona-engine/pkg/queue"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	pollTimeout    = 5 * time.Second
	lockTTL        = 2 * time.Minute
	lockRetryDelay = 250 * time.Millisecond
	errorBackoff   = 1 * time.Second
)

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Processor runs a single turn. *TurnProcessor satisfies it.
type Processor interface {
	ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error)
}

// Worker drains the turn queue. Turns of one conversation are serialized by
// a Redis lock; different conversations run in parallel.
type Worker struct {
	id          string
	queue       *queue.TurnQueue
	processor   Processor
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	concurrency int
	pollTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(turnQueue *queue.TurnQueue, processor Processor, redisClient *redis.Client, log *slog.Logger, workerID string, concurrency int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if concurrency < 1 {
		concurrency = 1
	}

	return &Worker{
		id:          workerID,
		queue:       turnQueue,
		processor:   processor,
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         log,
		concurrency: concurrency,
		pollTimeout: pollTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start runs the consumer loops and blocks until Stop is called.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id, "concurrency", w.concurrency)

	g, ctx := errgroup.WithContext(w.ctx)
	for slot := range w.concurrency {
		g.Go(func() error {
			return w.loop(ctx, slot)
		})
	}
	err := g.Wait()
	w.log.Info("Worker shutting down", "worker_id", w.id)
	return err
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

func (w *Worker) loop(ctx context.Context, slot int) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := w.processNextRequest(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("Error processing request", "error", err, "worker_id", w.id, "slot", slot)
			sleep(ctx, errorBackoff)
		}
	}
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest(ctx context.Context) error {
	req, err := w.queue.BlockingDequeueRequest(ctx, w.pollTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}
	w.updateQueueDepth(ctx)

	if err := req.Validate(); err != nil {
		w.log.Warn("Dropping invalid request", "request_id", req.RequestID, "error", err)
		if req.ConversationID != uuid.Nil {
			w.publishFailed(ctx, req, err)
		}
		return nil
	}

	log := w.log.With("worker_id", w.id, "request_id", req.RequestID, "conversation_id", req.ConversationID.String())
	log.Info("Received request from queue", "attempts", req.Attempts)

	token := w.id + ":" + req.RequestID
	locked, err := w.acquireLock(ctx, req.ConversationID, token)
	if err != nil {
		// Put it back so the turn is not lost.
		if qerr := w.queue.Restore(context.WithoutCancel(ctx), req); qerr != nil {
			log.Error("Failed to restore request after lock error", "error", qerr)
		}
		return fmt.Errorf("failed to acquire conversation lock: %w", err)
	}
	if !locked {
		log.Info("Conversation already locked, re-queueing request")
		metrics.LockContention()
		if err := w.queue.Requeue(context.WithoutCancel(ctx), req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		sleep(ctx, lockRetryDelay)
		return nil
	}

	defer w.releaseLock(req.ConversationID, token)
	return w.processRequest(ctx, log, req)
}

func (w *Worker) processRequest(ctx context.Context, log *slog.Logger, req *queuePkg.Request) error {
	start := time.Now()
	// An accepted turn runs to completion even if shutdown starts meanwhile.
	ctx = context.WithoutCancel(ctx)

	if err := w.broadcaster.PublishTurnProcessing(ctx, req.ConversationID, req.RequestID, req.Turn.Message); err != nil {
		log.Warn("Failed to publish processing event", "error", err)
	}

	turn := req.Turn
	turn.ConversationID = req.ConversationID
	resp, err := w.processor.ProcessTurn(ctx, turn)
	if err != nil {
		w.publishFailed(ctx, req, err)
		return fmt.Errorf("failed to process turn: %w", err)
	}

	log.Info("Turn request processed", "duration_ms", time.Since(start).Milliseconds())

	if err := w.broadcaster.PublishTurnCompleted(ctx, req.ConversationID, req.RequestID, resp.MessageID, resp.Reply); err != nil {
		log.Warn("Failed to publish completion event", "error", err)
	}
	return nil
}

func (w *Worker) publishFailed(ctx context.Context, req *queuePkg.Request, cause error) {
	if err := w.broadcaster.PublishTurnFailed(context.WithoutCancel(ctx), req.ConversationID, req.RequestID, cause.Error()); err != nil {
		w.log.Warn("Failed to publish failure event", "error", err, "request_id", req.RequestID)
	}
}

func lockKey(conversationID uuid.UUID) string {
	return "conversation-lock:" + conversationID.String()
}

// acquireLock returns true if the lock was acquired, false if already held.
func (w *Worker) acquireLock(ctx context.Context, conversationID uuid.UUID, token string) (bool, error) {
	return w.redisClient.SetNX(ctx, lockKey(conversationID), token, lockTTL).Result()
}

func (w *Worker) releaseLock(conversationID uuid.UUID, token string) {
	// Release even when shutdown has cancelled the worker context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := releaseScript.Run(ctx, w.redisClient, []string{lockKey(conversationID)}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		w.log.Error("Failed to release conversation lock", "error", err, "conversation_id", conversationID.String())
	}
}

func (w *Worker) updateQueueDepth(ctx context.Context) {
	depth, err := w.queue.RequestQueueDepth(ctx)
	if err != nil {
		w.log.Debug("Failed to read queue depth", "error", err)
		return
	}
	metrics.SetQueueDepth(int64(depth))
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
