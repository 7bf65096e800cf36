package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
)

type prescriptionRepository struct {
	BaseRepository
}

func NewPrescriptionRepository(base BaseRepository) repository.PrescriptionRepository {
	return &prescriptionRepository{base}
}

func (r *prescriptionRepository) CreateWithEvent(ctx context.Context, p *model.Prescription, event *model.OutboxEvent) error {
	query := `
		INSERT INTO prescriptions (
			id, patient_id, doctor_id, title, description, medications,
			file_url, file_type, is_verified, upload_source, created_at, updated_at
		) VALUES (
			:id, :patient_id, :doctor_id, :title, :description, :medications,
			:file_url, :file_type, :is_verified, :upload_source, :created_at, :updated_at
		)
	`
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
			return err
		}
		return stageEvent(ctx, tx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error) {
	query := `
		SELECT id, patient_id, doctor_id, title, description, medications,
			file_url, file_type, is_verified, upload_source, created_at, updated_at
		FROM prescriptions
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	prescriptions := []*model.Prescription{}
	if err := r.GetDB().SelectContext(ctx, &prescriptions, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}
