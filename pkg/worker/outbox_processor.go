package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/messaging"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is the number of publish attempts before an event is marked failed.
	RetryAttempts int
	// RetryDelay is the first backoff; it doubles with every failed attempt.
	RetryDelay time.Duration
}

// OutboxProcessor relays staged outbox events to the broker. Each event is
// published on a channel named after its event type.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("outbox batch size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("outbox poll interval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		return nil, fmt.Errorf("outbox retry attempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		return nil, fmt.Errorf("outbox retry delay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessBatch publishes up to BatchSize due events and returns how many were handled.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	handled, err := p.repo.ProcessPending(ctx, p.config.BatchSize, func(event *model.OutboxEvent) repository.OutboxResult {
		return p.publish(ctx, event)
	})
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("process_outbox", "error").Inc()
		return 0, fmt.Errorf("failed to process pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("process_outbox", "success").Inc()
	return handled, nil
}

func (p *OutboxProcessor) publish(ctx context.Context, event *model.OutboxEvent) repository.OutboxResult {
	msg := messaging.Message{
		ID:         event.ID.String(),
		Type:       event.EventType,
		Payload:    event.Payload,
		Attempt:    event.RetryCount + 1,
		OccurredAt: event.CreatedAt,
	}
	err := p.broker.Publish(ctx, event.EventType, msg)
	if err == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		return repository.OutboxResult{Status: model.OutboxStatusProcessed}
	}

	errStr := err.Error()
	attempt := event.RetryCount + 1
	if attempt >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		p.logger.Error(err, "Giving up on outbox event",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"attempts", attempt)
		return repository.OutboxResult{Status: model.OutboxStatusFailed, Error: &errStr}
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := p.now().Add(backoff(p.config.RetryDelay, event.RetryCount))
	p.logger.Warn("Outbox event publish failed, scheduling retry",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"retry_at", retryAt)
	return repository.OutboxResult{Status: model.OutboxStatusRetry, Error: &errStr, RetryAt: &retryAt}
}

func backoff(base time.Duration, retries int) time.Duration {
	if retries > 10 {
		retries = 10
	}
	return base * time.Duration(1<<uint(retries))
}
