package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
)

type Service struct {
	repo repository.ReminderRepository
	now  func() time.Time
}

func NewService(repo repository.ReminderRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func owner(actor *model.Actor) error {
	if !actor.IsPatient() {
		return apperrors.Forbidden("only patients manage medication reminders")
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("reminder", err)
	}
	return apperrors.Internal(err)
}

func (s *Service) apply(r *model.MedicationReminder, req model.ReminderRequest) error {
	r.PrescriptionID = req.PrescriptionID
	r.MedicationName = req.MedicationName
	r.Frequency = req.Frequency
	r.ReminderTimes = req.ReminderTimes
	r.Dosage = nil
	if req.Dosage != "" {
		r.Dosage = &req.Dosage
	}
	if req.StartDate != nil {
		r.StartDate = req.StartDate.UTC()
	} else if r.StartDate.IsZero() {
		r.StartDate = s.now().UTC().Truncate(24 * time.Hour)
	}
	r.EndDate = req.EndDate
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return apperrors.ValidationFailed("end_date must not be before start_date", nil)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actor *model.Actor, req model.ReminderRequest) (*model.MedicationReminder, error) {
	if err := owner(actor); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	r := &model.MedicationReminder{
		Base:     model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		UserID:   actor.ID,
		IsActive: true,
	}
	if err := s.apply(r, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, apperrors.Internal(err)
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.ReminderRequest) (*model.MedicationReminder, error) {
	if err := owner(actor); err != nil {
		return nil, err
	}
	r, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(r, req); err != nil {
		return nil, err
	}
	r.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, translate(err)
	}
	return r, nil
}

func (s *Service) get(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.MedicationReminder, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	// Someone else's reminder looks the same as a missing one.
	if r.UserID != actor.ID {
		return nil, apperrors.NotFound("reminder", repository.ErrNotFound)
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, actor *model.Actor, id uuid.UUID) error {
	if err := owner(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, actor.ID); err != nil {
		return translate(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, actor *model.Actor) ([]*model.MedicationReminder, error) {
	if err := owner(actor); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

// Toggle flips is_active and returns the updated reminder.
func (s *Service) Toggle(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.MedicationReminder, error) {
	if err := owner(actor); err != nil {
		return nil, err
	}
	r, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, actor.ID, !r.IsActive); err != nil {
		return nil, translate(err)
	}
	r.IsActive = !r.IsActive
	return r, nil
}
