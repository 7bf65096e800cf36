package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
)

type refillRepository struct {
	BaseRepository
}

func NewRefillRepository(base BaseRepository) repository.RefillRepository {
	return &refillRepository{base}
}

const refillColumns = `id, patient_id, prescription_id, medication_name, status,
	request_notes, doctor_response, doctor_id, created_at, updated_at`

func (r *refillRepository) CreateWithEvent(ctx context.Context, req *model.RefillRequest, event *model.OutboxEvent) error {
	query := `
		INSERT INTO refill_requests (` + refillColumns + `)
		VALUES (
			:id, :patient_id, :prescription_id, :medication_name, :status,
			:request_notes, :doctor_response, :doctor_id, :created_at, :updated_at
		)
	`
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, req); err != nil {
			return err
		}
		return stageEvent(ctx, tx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to create refill request: %w", err)
	}
	return nil
}

func (r *refillRepository) Get(ctx context.Context, id uuid.UUID) (*model.RefillRequest, error) {
	var req model.RefillRequest
	query := `SELECT ` + refillColumns + ` FROM refill_requests WHERE id = $1`
	if err := r.GetDB().GetContext(ctx, &req, query, id); err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *refillRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.RefillRequest, error) {
	query := `SELECT ` + refillColumns + `
		FROM refill_requests
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	requests := []*model.RefillRequest{}
	if err := r.GetDB().SelectContext(ctx, &requests, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list refill requests: %w", err)
	}
	return requests, nil
}

func (r *refillRepository) ListPending(ctx context.Context, page model.Pagination) ([]*model.RefillRequest, error) {
	query := `SELECT ` + refillColumns + `
		FROM refill_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`
	requests := []*model.RefillRequest{}
	if err := r.GetDB().SelectContext(ctx, &requests, query, page.Limit(), page.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list pending refill requests: %w", err)
	}
	return requests, nil
}

func (r *refillRepository) Respond(ctx context.Context, req *model.RefillRequest, event *model.OutboxEvent) error {
	query := `
		UPDATE refill_requests
		SET status = $1, doctor_response = $2, doctor_id = $3, updated_at = $4
		WHERE id = $5 AND status = 'pending'
	`
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			req.Status, req.DoctorResponse, req.DoctorID, req.UpdatedAt, req.ID)
		if err != nil {
			return fmt.Errorf("failed to respond to refill request: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrStateConflict
		}
		return stageEvent(ctx, tx, event)
	})
}
