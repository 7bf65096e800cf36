package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
)

type medicalHistoryRepository struct {
	BaseRepository
}

func NewMedicalHistoryRepository(base BaseRepository) repository.MedicalHistoryRepository {
	return &medicalHistoryRepository{base}
}

func (r *medicalHistoryRepository) Create(ctx context.Context, record *model.MedicalHistoryRecord) error {
	query := `
		INSERT INTO medical_history (
			id, patient_id, recorded_by, record_type, title,
			description, date_recorded, attachments, created_at
		) VALUES (
			:id, :patient_id, :recorded_by, :record_type, :title,
			:description, :date_recorded, :attachments, :created_at
		)
	`
	if record.Attachments == nil {
		record.Attachments = []string{}
	}
	if _, err := r.GetDB().NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to create medical history record: %w", err)
	}
	return nil
}

func (r *medicalHistoryRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalHistoryRecord, error) {
	query := `
		SELECT id, patient_id, recorded_by, record_type, title,
			description, date_recorded, attachments, created_at
		FROM medical_history
		WHERE patient_id = $1
		ORDER BY date_recorded DESC, created_at DESC
	`
	records := []*model.MedicalHistoryRecord{}
	if err := r.GetDB().SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list medical history: %w", err)
	}
	return records, nil
}
