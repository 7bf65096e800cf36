package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/medsafe-api/internal/repository"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
)

// TokenPurger deletes access tokens that expired before the cutoff.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionWorker removes expired access tokens and published outbox events
// once they are older than the retention window.
type RetentionWorker struct {
	tokens    TokenPurger
	outbox    repository.OutboxRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

func NewRetentionWorker(tokens TokenPurger, outbox repository.OutboxRepository, retention, interval time.Duration, logger *logger.Logger) *RetentionWorker {
	return &RetentionWorker{
		tokens:    tokens,
		outbox:    outbox,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Cleanup(ctx); err != nil {
				w.logger.Error(err, "Retention cleanup failed")
			}
		}
	}
}

func (w *RetentionWorker) Cleanup(ctx context.Context) error {
	cutoff := w.now().Add(-w.retention)

	tokens, err := w.tokens.PurgeExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge expired access tokens: %w", err)
	}

	events, err := w.outbox.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete processed outbox events: %w", err)
	}

	w.logger.Info("Retention cleanup finished",
		"cutoff", cutoff,
		"access_tokens", tokens,
		"outbox_events", events)
	return nil
}
