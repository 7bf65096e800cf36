package refill

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
)

type Service struct {
	repo repository.RefillRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo repository.RefillRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, actor *model.Actor, req model.CreateRefillRequest) (*model.RefillRequest, error) {
	if !actor.IsPatient() {
		return nil, apperrors.Forbidden("only patients can request refills")
	}

	now := s.now().UTC()
	refill := &model.RefillRequest{
		Base:           model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		PatientID:      actor.ID,
		PrescriptionID: req.PrescriptionID,
		MedicationName: req.MedicationName,
		Status:         model.RefillStatusPending,
	}
	if req.RequestNotes != "" {
		refill.RequestNotes = &req.RequestNotes
	}

	evt, err := model.NewOutboxEvent(model.EventRefillRequested, map[string]interface{}{
		"refill_id":       refill.ID,
		"patient_id":      refill.PatientID,
		"medication_name": refill.MedicationName,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.repo.CreateWithEvent(ctx, refill, evt); err != nil {
		return nil, apperrors.Internal(err)
	}
	return refill, nil
}

func (s *Service) ListMine(ctx context.Context, actor *model.Actor) ([]*model.RefillRequest, error) {
	if !actor.IsPatient() {
		return nil, apperrors.Forbidden("only patients have refill requests")
	}
	list, err := s.repo.ListByPatient(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

func (s *Service) ListPending(ctx context.Context, actor *model.Actor, page model.Pagination) ([]*model.RefillRequest, error) {
	if !actor.IsDoctor() {
		return nil, apperrors.Forbidden("only doctors review refill requests")
	}
	list, err := s.repo.ListPending(ctx, page)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

// Respond approves or denies a pending request. A request is answered once.
func (s *Service) Respond(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RespondRefillRequest) (*model.RefillRequest, error) {
	if !actor.IsDoctor() {
		return nil, apperrors.Forbidden("only doctors respond to refill requests")
	}
	if req.Status != model.RefillStatusApproved && req.Status != model.RefillStatusDenied {
		return nil, apperrors.ValidationFailed("status must be approved or denied", nil)
	}

	refill, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("refill request", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if refill.Status != model.RefillStatusPending {
		return nil, apperrors.Conflict("refill request has already been answered", nil)
	}

	doctorID := actor.ID
	refill.Status = req.Status
	refill.DoctorID = &doctorID
	refill.UpdatedAt = s.now().UTC()
	if req.Response != "" {
		refill.DoctorResponse = &req.Response
	}

	evt, err := model.NewOutboxEvent(model.EventRefillResponded, map[string]interface{}{
		"refill_id":  refill.ID,
		"patient_id": refill.PatientID,
		"doctor_id":  doctorID,
		"status":     refill.Status,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.repo.Respond(ctx, refill, evt); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, apperrors.Conflict("refill request has already been answered", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.log.Info("refill request answered", "refill_id", id.String(), "status", string(refill.Status))
	return refill, nil
}
