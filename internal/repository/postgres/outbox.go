package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	if _, err := r.GetDB().NamedExecContext(ctx, insertOutboxEvent, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) ProcessPending(ctx context.Context, limit int, fn func(*model.OutboxEvent) repository.OutboxResult) (int, error) {
	selectQuery := `
		SELECT id, event_type, payload, status, error_message, retry_count,
			retry_at, created_at, processed_at, updated_at
		FROM outbox_events
		WHERE status IN ('pending', 'retry')
		AND (retry_at IS NULL OR retry_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	updateQuery := `
		UPDATE outbox_events
		SET status = $1,
			error_message = $2,
			retry_at = $3,
			retry_count = retry_count + CASE WHEN $1 = 'processed' THEN 0 ELSE 1 END,
			processed_at = CASE WHEN $1 = 'processed' THEN NOW() ELSE processed_at END,
			updated_at = NOW()
		WHERE id = $4
	`

	var handled int
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var events []*model.OutboxEvent
		if err := tx.SelectContext(ctx, &events, selectQuery, limit); err != nil {
			return fmt.Errorf("failed to lock pending events: %w", err)
		}
		for _, evt := range events {
			res := fn(evt)
			if _, err := tx.ExecContext(ctx, updateQuery, string(res.Status), res.Error, res.RetryAt, evt.ID); err != nil {
				return fmt.Errorf("failed to update event %s: %w", evt.ID, err)
			}
			handled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return handled, nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = 'processed'
		AND processed_at < $1
	`
	result, err := r.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
