// Package worker relays audit outbox entries to the event bus.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deeproof/pkg/platform/audit"
)

// Outbox is the store-side surface the relay needs.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, publishedAt time.Time) error
}

// Producer delivers one serialized event. Implemented by the Kafka publisher.
type Producer interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Worker polls the outbox and publishes pending entries. Delivery is
// at-least-once: an entry is marked published only after the producer
// accepted it, so a crash between publish and mark replays the entry.
type Worker struct {
	outbox   Outbox
	producer Producer
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func New(outbox Outbox, producer Producer, logger *slog.Logger) *Worker {
	return &Worker{
		outbox:   outbox,
		producer: producer,
		logger:   logger,
		interval: defaultInterval,
		batch:    defaultBatchSize,
	}
}

// Run drains the outbox until the context is cancelled. Publish failures are
// logged and retried on the next tick rather than stopping the relay.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.WarnContext(ctx, "audit relay cycle failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	entries, err := w.outbox.FetchUnpublished(ctx, w.batch)
	if err != nil {
		return err
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := w.producer.Publish(ctx, entry.Key, entry.Payload); err != nil {
			w.logger.WarnContext(ctx, "audit publish failed",
				"event_id", entry.ID.String(),
				"error", err,
			)
			break
		}
		published = append(published, entry.ID)
	}

	if len(published) == 0 {
		return nil
	}
	return w.outbox.MarkPublished(ctx, published, time.Now())
}
