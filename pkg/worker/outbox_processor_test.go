package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository/memory"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/messaging"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
)

type fakeBroker struct {
	mu        sync.Mutex
	err       error
	published map[string][]messaging.Message
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: map[string][]messaging.Message{}}
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published[channel] = append(b.published[channel], message.(messaging.Message))
	return nil
}

func (b *fakeBroker) Close() error { return nil }

func newProcessor(t *testing.T, store *memory.Store, broker messaging.Broker, m *metrics.Metrics) *OutboxProcessor {
	t.Helper()
	p, err := NewOutboxProcessor(store.Outbox(), broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}, logger.Nop(), m)
	require.NoError(t, err)
	return p
}

func stageEvent(t *testing.T, store *memory.Store, eventType string) *model.OutboxEvent {
	t.Helper()
	event, err := model.NewOutboxEvent(eventType, map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(context.Background(), event))
	return event
}

func TestProcessBatchPublishesByEventType(t *testing.T) {
	store := memory.NewStore()
	broker := newFakeBroker()
	m := metrics.NewForTest()
	p := newProcessor(t, store, broker, m)

	first := stageEvent(t, store, model.EventPrescriptionCreated)
	stageEvent(t, store, model.EventRefillRequested)

	handled, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, handled)

	require.Len(t, broker.published[model.EventPrescriptionCreated], 1)
	msg := broker.published[model.EventPrescriptionCreated][0]
	assert.Equal(t, first.ID.String(), msg.ID)
	assert.Equal(t, model.EventPrescriptionCreated, msg.Type)
	assert.Equal(t, 1, msg.Attempt)
	assert.JSONEq(t, `{"k":"v"}`, string(msg.Payload))
	assert.Len(t, broker.published[model.EventRefillRequested], 1)

	assert.Equal(t, model.OutboxStatusProcessed, first.Status)
	assert.NotNil(t, first.ProcessedAt)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.OutboxEventsProcessed))

	// nothing left to do
	handled, err = p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, handled)
}

func TestProcessBatchRetriesThenFails(t *testing.T) {
	store := memory.NewStore()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return clock }

	broker := newFakeBroker()
	broker.err = errors.New("broker down")
	m := metrics.NewForTest()
	p := newProcessor(t, store, broker, m)
	p.now = store.Now

	event := stageEvent(t, store, model.EventRefillResponded)

	_, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutboxStatusRetry, event.Status)
	assert.Equal(t, 1, event.RetryCount)
	require.NotNil(t, event.RetryAt)
	assert.Equal(t, clock.Add(time.Second), *event.RetryAt)
	require.NotNil(t, event.ErrorMessage)
	assert.Equal(t, "broker down", *event.ErrorMessage)

	// not due yet
	handled, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, handled)

	clock = clock.Add(time.Second)
	_, err = p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutboxStatusRetry, event.Status)
	assert.Equal(t, clock.Add(2*time.Second), *event.RetryAt)

	clock = clock.Add(2 * time.Second)
	_, err = p.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.OutboxStatusFailed, event.Status)
	assert.Equal(t, 3, event.RetryCount)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.OutboxRetries.WithLabelValues(model.EventRefillResponded)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsFailed))
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	_, err := NewOutboxProcessor(memory.NewStore().Outbox(), newFakeBroker(), OutboxProcessorConfig{}, logger.Nop(), metrics.NewForTest())
	assert.Error(t, err)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(time.Second, 0))
	assert.Equal(t, 4*time.Second, backoff(time.Second, 2))
	assert.Equal(t, 1024*time.Second, backoff(time.Second, 50))
}
