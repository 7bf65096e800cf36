package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
)

type reminderRepository struct {
	BaseRepository
}

func NewReminderRepository(base BaseRepository) repository.ReminderRepository {
	return &reminderRepository{base}
}

const reminderColumns = `id, user_id, prescription_id, medication_name, dosage, frequency,
	reminder_times, start_date, end_date, is_active, created_at, updated_at`

func (r *reminderRepository) Create(ctx context.Context, reminder *model.MedicationReminder) error {
	query := `
		INSERT INTO medication_reminders (` + reminderColumns + `)
		VALUES (
			:id, :user_id, :prescription_id, :medication_name, :dosage, :frequency,
			:reminder_times, :start_date, :end_date, :is_active, :created_at, :updated_at
		)
	`
	if _, err := r.GetDB().NamedExecContext(ctx, query, reminder); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) Get(ctx context.Context, id uuid.UUID) (*model.MedicationReminder, error) {
	var reminder model.MedicationReminder
	query := `SELECT ` + reminderColumns + ` FROM medication_reminders WHERE id = $1`
	if err := r.GetDB().GetContext(ctx, &reminder, query, id); err != nil {
		return nil, notFound(err)
	}
	return &reminder, nil
}

func (r *reminderRepository) Update(ctx context.Context, reminder *model.MedicationReminder) error {
	query := `
		UPDATE medication_reminders SET
			prescription_id = :prescription_id,
			medication_name = :medication_name,
			dosage = :dosage,
			frequency = :frequency,
			reminder_times = :reminder_times,
			start_date = :start_date,
			end_date = :end_date,
			updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id
	`
	result, err := r.GetDB().NamedExecContext(ctx, query, reminder)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return expectOne(result.RowsAffected())
}

func (r *reminderRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM medication_reminders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return expectOne(result.RowsAffected())
}

func (r *reminderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.MedicationReminder, error) {
	query := `SELECT ` + reminderColumns + `
		FROM medication_reminders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	reminders := []*model.MedicationReminder{}
	if err := r.GetDB().SelectContext(ctx, &reminders, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

func (r *reminderRepository) SetActive(ctx context.Context, id, userID uuid.UUID, active bool) error {
	result, err := r.GetDB().ExecContext(ctx, `
		UPDATE medication_reminders
		SET is_active = $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
	`, active, id, userID)
	if err != nil {
		return fmt.Errorf("failed to toggle reminder: %w", err)
	}
	return expectOne(result.RowsAffected())
}

func expectOne(rows int64, err error) error {
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
