package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrTokenUnavailable is returned when a token cannot be consumed by the caller:
	// unknown, expired, or already consumed by someone else.
	ErrTokenUnavailable = errors.New("access token unavailable")
	// ErrStateConflict is returned when a conditional update finds the row in the wrong state.
	ErrStateConflict = errors.New("record is not in the expected state")
)

// All repository interfaces in one file
type (
	AccessTokenRepository interface {
		Create(ctx context.Context, token *model.AccessToken) error
		// FindUnexpired returns the token with the given digest if it has not expired, used or not.
		FindUnexpired(ctx context.Context, tokenHash string) (*model.AccessToken, error)
		// Consume stamps used_by/used_at in one conditional update. The first doctor wins;
		// the same doctor may consume again while the token is unexpired.
		Consume(ctx context.Context, tokenHash string, doctorID uuid.UUID) (*model.AccessToken, error)
		HasGrant(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
		ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AccessToken, error)
		DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
	}

	PrescriptionRepository interface {
		// CreateWithEvent inserts the prescription and stages its outbox event atomically.
		CreateWithEvent(ctx context.Context, p *model.Prescription, event *model.OutboxEvent) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error)
	}

	MedicalHistoryRepository interface {
		Create(ctx context.Context, record *model.MedicalHistoryRecord) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalHistoryRecord, error)
	}

	ProfileRepository interface {
		Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
		Upsert(ctx context.Context, profile *model.Profile) error
	}

	RefillRepository interface {
		CreateWithEvent(ctx context.Context, req *model.RefillRequest, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.RefillRequest, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.RefillRequest, error)
		ListPending(ctx context.Context, page model.Pagination) ([]*model.RefillRequest, error)
		// Respond moves a pending request to its final status. ErrStateConflict if it is not pending.
		Respond(ctx context.Context, req *model.RefillRequest, event *model.OutboxEvent) error
	}

	ReminderRepository interface {
		Create(ctx context.Context, reminder *model.MedicationReminder) error
		Get(ctx context.Context, id uuid.UUID) (*model.MedicationReminder, error)
		Update(ctx context.Context, reminder *model.MedicationReminder) error
		Delete(ctx context.Context, id, userID uuid.UUID) error
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.MedicationReminder, error)
		SetActive(ctx context.Context, id, userID uuid.UUID, active bool) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ProcessPending locks up to limit due events and hands each to fn inside one transaction.
		ProcessPending(ctx context.Context, limit int, fn func(*model.OutboxEvent) OutboxResult) (int, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// OutboxResult is what the publisher decided for one event.
type OutboxResult struct {
	Status  model.OutboxStatus
	Error   *string
	RetryAt *time.Time
}
