package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
)

type Authorizer interface {
	Authorize(ctx context.Context, actor *model.Actor, patientID uuid.UUID) error
}

type Service struct {
	repo   repository.MedicalHistoryRepository
	access Authorizer
	now    func() time.Time
}

func NewService(repo repository.MedicalHistoryRepository, access Authorizer) *Service {
	return &Service{repo: repo, access: access, now: time.Now}
}

// Add appends a record to a patient's history. Audit record types are reserved.
func (s *Service) Add(ctx context.Context, actor *model.Actor, patientID uuid.UUID, req model.CreateHistoryRequest) (*model.MedicalHistoryRecord, error) {
	if err := s.access.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	if model.IsAuditType(req.RecordType) {
		return nil, apperrors.ValidationFailed("record_type is reserved for safety audit records", nil)
	}

	now := s.now().UTC()
	recordedBy := actor.ID
	record := &model.MedicalHistoryRecord{
		ID:           uuid.New(),
		PatientID:    patientID,
		RecordedBy:   &recordedBy,
		RecordType:   req.RecordType,
		Title:        req.Title,
		DateRecorded: now.Truncate(24 * time.Hour),
		Attachments:  req.Attachments,
		CreatedAt:    now,
	}
	if req.DateRecorded != nil {
		record.DateRecorded = req.DateRecorded.UTC()
	}
	if req.Description != "" {
		record.Description = &req.Description
	}
	if record.Attachments == nil {
		record.Attachments = []string{}
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, apperrors.Internal(err)
	}
	return record, nil
}

func (s *Service) List(ctx context.Context, actor *model.Actor, patientID uuid.UUID) ([]*model.MedicalHistoryRecord, error) {
	if err := s.access.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return records, nil
}
