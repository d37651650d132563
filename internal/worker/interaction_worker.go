package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/sat-explorer/internal/config"
	"github.com/stemsi/sat-explorer/internal/model"
)

const (
	InteractionBatchSize    = 100
	InteractionBatchTimeout = 2 * time.Second
	InteractionPollTimeout  = 1 * time.Second
)

// InteractionStore persists batches of interactions.
type InteractionStore interface {
	InsertBatch(ctx context.Context, batch []model.Interaction) (int64, error)
}

// Queue is the FIFO list between sessions and the worker.
type Queue interface {
	// Pop waits up to timeout for an item. ok is false when none arrived.
	Pop(ctx context.Context, timeout time.Duration) (raw string, ok bool, err error)
	Push(ctx context.Context, raw []byte) error
}

// RedisQueue is a Queue on a Redis list.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue returns the persist-interactions queue on rdb.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: config.WorkerKey.PersistInteractionsQueue}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	item, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(item) < 2 {
		return "", false, nil
	}
	return item[1], true, nil
}

func (q *RedisQueue) Push(ctx context.Context, raw []byte) error {
	return q.rdb.RPush(ctx, q.key, raw).Err()
}

// InteractionQueue is the producer side used by sessions.
type InteractionQueue struct {
	queue Queue
	log   zerolog.Logger
}

func NewInteractionQueue(queue Queue, log zerolog.Logger) *InteractionQueue {
	return &InteractionQueue{
		queue: queue,
		log:   log.With().Str("component", "interaction_queue").Logger(),
	}
}

// Record enqueues it. Failures are logged and dropped.
func (q *InteractionQueue) Record(ctx context.Context, it model.Interaction) {
	raw, err := json.Marshal(it)
	if err != nil {
		q.log.Error().Err(err).Msg("Marshal interaction failed")
		return
	}
	if err := q.queue.Push(ctx, raw); err != nil {
		q.log.Warn().Err(err).Msg("Enqueue interaction failed")
	}
}

// InteractionWorker drains the persist queue into the database in batches.
type InteractionWorker struct {
	store        InteractionStore
	queue        Queue
	log          zerolog.Logger
	batchSize    int
	batchTimeout time.Duration
	pollTimeout  time.Duration
}

func NewInteractionWorker(store InteractionStore, queue Queue, log zerolog.Logger) *InteractionWorker {
	return &InteractionWorker{
		store:        store,
		queue:        queue,
		log:          log.With().Str("component", "interaction_worker").Logger(),
		batchSize:    InteractionBatchSize,
		batchTimeout: InteractionBatchTimeout,
		pollTimeout:  InteractionPollTimeout,
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is cancelled, then flushes what it holds.
func (w *InteractionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("InteractionWorker started")

	b := newBatcher(w.batchSize, w.batchTimeout, time.Now)

	for {
		if b.due() {
			w.flushSafe(ctx, b.take())
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), b.take())
			return

		default:
			raw, ok, err := w.queue.Pop(ctx, w.pollTimeout)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Queue pop error")
				}
				continue
			}
			if !ok {
				continue
			}

			it, err := decodeInteraction(raw)
			if err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			b.add(it)
		}
	}
}

// flushSafe persists batch, pushing it back onto the queue when the store
// fails so the next pass retries it.
func (w *InteractionWorker) flushSafe(ctx context.Context, batch []model.Interaction) {
	if len(batch) == 0 {
		return
	}

	n, err := w.store.InsertBatch(ctx, batch)
	if err != nil {
		w.log.Error().Err(err).Int("batch", len(batch)).Msg("Persist interactions failed, requeueing")
		for _, it := range batch {
			raw, _ := json.Marshal(it)
			if perr := w.queue.Push(ctx, raw); perr != nil {
				w.log.Error().Err(perr).Msg("Requeue failed, interaction dropped")
			}
		}
		return
	}

	w.log.Debug().Int64("rows", n).Msg("Interactions persisted")
}

func decodeInteraction(raw string) (model.Interaction, error) {
	var it model.Interaction
	err := json.Unmarshal([]byte(raw), &it)
	return it, err
}

// batcher accumulates items until the batch is full or has waited long enough.
type batcher struct {
	items     []model.Interaction
	size      int
	timeout   time.Duration
	lastFlush time.Time
	now       func() time.Time
}

func newBatcher(size int, timeout time.Duration, now func() time.Time) *batcher {
	return &batcher{
		items:     make([]model.Interaction, 0, size),
		size:      size,
		timeout:   timeout,
		lastFlush: now(),
		now:       now,
	}
}

func (b *batcher) add(it model.Interaction) {
	b.items = append(b.items, it)
}

func (b *batcher) due() bool {
	return len(b.items) > 0 &&
		(len(b.items) >= b.size || b.now().Sub(b.lastFlush) >= b.timeout)
}

// take returns the pending items and resets the batch.
func (b *batcher) take() []model.Interaction {
	out := b.items
	b.items = make([]model.Interaction, 0, b.size)
	b.lastFlush = b.now()
	return out
}
