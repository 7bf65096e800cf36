package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
)

type Service struct {
	repo repository.ProfileRepository
	now  func() time.Time
}

func NewService(repo repository.ProfileRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Get(ctx context.Context, actor *model.Actor) (*model.Profile, error) {
	if !actor.IsPatient() {
		return nil, apperrors.Forbidden("only patients have a profile")
	}
	p, err := s.repo.Get(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("profile", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return p, nil
}

// Update creates or replaces the caller's profile. Blank allergy and condition entries are dropped.
func (s *Service) Update(ctx context.Context, actor *model.Actor, req model.UpdateProfileRequest) (*model.Profile, error) {
	if !actor.IsPatient() {
		return nil, apperrors.Forbidden("only patients have a profile")
	}
	now := s.now().UTC()
	p := &model.Profile{
		UserID:                   actor.ID,
		Name:                     req.Name,
		Age:                      req.Age,
		Gender:                   req.Gender,
		BloodGroup:               req.BloodGroup,
		Allergies:                compact(req.Allergies),
		ChronicConditions:        compact(req.ChronicConditions),
		EmergencyContactName:     req.EmergencyContactName,
		EmergencyContactPhone:    req.EmergencyContactPhone,
		EmergencyContactRelation: req.EmergencyContactRelation,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, apperrors.Internal(err)
	}
	saved, err := s.repo.Get(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return saved, nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
