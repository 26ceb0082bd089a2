package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeproof/pkg/platform/audit"
)

type fakeOutbox struct {
	entries []audit.OutboxEntry
	marked  []uuid.UUID
}

func (f *fakeOutbox) FetchUnpublished(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	if len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	f.marked = append(f.marked, ids...)
	return nil
}

type fakeProducer struct {
	failAfter int
	published []string
}

func (f *fakeProducer) Publish(_ context.Context, key string, _ []byte) error {
	if f.failAfter >= 0 && len(f.published) >= f.failAfter {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, key)
	return nil
}

func entry(key string) audit.OutboxEntry {
	return audit.OutboxEntry{ID: uuid.New(), Key: key, Payload: []byte(`{}`)}
}

func newTestWorker(outbox *fakeOutbox, producer *fakeProducer) *Worker {
	return New(outbox, producer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_Drain_PublishesAndMarks(t *testing.T) {
	outbox := &fakeOutbox{entries: []audit.OutboxEntry{entry("a"), entry("b")}}
	producer := &fakeProducer{failAfter: -1}

	require.NoError(t, newTestWorker(outbox, producer).drain(context.Background()))

	assert.Equal(t, []string{"a", "b"}, producer.published)
	assert.Len(t, outbox.marked, 2)
}

func Test_Drain_MarksOnlyAcceptedEntries(t *testing.T) {
	entries := []audit.OutboxEntry{entry("a"), entry("b"), entry("c")}
	outbox := &fakeOutbox{entries: entries}
	producer := &fakeProducer{failAfter: 1}

	require.NoError(t, newTestWorker(outbox, producer).drain(context.Background()))

	// Delivery stops at the first failure; the failed entry stays
	// unpublished and replays next cycle.
	assert.Equal(t, []string{"a"}, producer.published)
	require.Len(t, outbox.marked, 1)
	assert.Equal(t, entries[0].ID, outbox.marked[0])
}

func Test_Drain_EmptyOutbox(t *testing.T) {
	outbox := &fakeOutbox{}
	producer := &fakeProducer{failAfter: -1}

	require.NoError(t, newTestWorker(outbox, producer).drain(context.Background()))
	assert.Empty(t, outbox.marked)
}

func Test_Run_StopsOnCancel(t *testing.T) {
	outbox := &fakeOutbox{}
	producer := &fakeProducer{failAfter: -1}
	w := newTestWorker(outbox, producer)
	w.interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
