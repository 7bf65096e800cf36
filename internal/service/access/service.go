package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
	"github.com/jwalitptl/medsafe-api/pkg/security"
)

type Config struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// Service implements the emergency access-token protocol: a patient issues a
// short-lived token, a doctor presents it once to open the patient's record.
type Service struct {
	repo    repository.AccessTokenRepository
	events  repository.OutboxRepository
	cfg     Config
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewService(repo repository.AccessTokenRepository, events repository.OutboxRepository, cfg Config, m *metrics.Metrics, log *logger.Logger) *Service {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 30 * time.Minute
	}
	if cfg.MaxTTL < cfg.DefaultTTL {
		cfg.MaxTTL = cfg.DefaultTTL
	}
	return &Service{
		repo:    repo,
		events:  events,
		cfg:     cfg,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *Service) record(op, outcome string) {
	s.metrics.AccessTokenOutcomes.WithLabelValues(op, outcome).Inc()
}

// Generate issues a new token for the calling patient. ttlMinutes <= 0 selects the default.
func (s *Service) Generate(ctx context.Context, actor *model.Actor, ttlMinutes int) (*model.IssuedToken, error) {
	if !actor.IsPatient() {
		return nil, apperrors.AuthenticationRequired("only an authenticated patient can generate an access token")
	}

	// Bounded in minutes before converting so huge values cannot overflow.
	if ttlMinutes > int(s.cfg.MaxTTL/time.Minute) {
		return nil, apperrors.ValidationFailed("ttl_minutes exceeds the maximum allowed", nil)
	}
	ttl := s.cfg.DefaultTTL
	if ttlMinutes > 0 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}
	if ttl > s.cfg.MaxTTL {
		return nil, apperrors.ValidationFailed("ttl_minutes exceeds the maximum allowed", nil)
	}

	raw, err := security.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := s.now().UTC()
	token := &model.AccessToken{
		ID:        uuid.New(),
		Token:     raw,
		TokenHash: security.HashToken(raw),
		PatientID: actor.ID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.record("generate", "issued")
	s.log.Info("access token issued", "patient_id", actor.ID.String(), "expires_at", token.ExpiresAt)
	return &model.IssuedToken{Token: raw, ExpiresAt: token.ExpiresAt}, nil
}

// Validate reports whether the token exists and has not expired. It never mutates
// and an unknown or expired token is a normal answer, not an error.
func (s *Service) Validate(ctx context.Context, raw string) (*model.TokenValidation, error) {
	if !security.WellFormedToken(raw) {
		s.record("validate", "invalid")
		return &model.TokenValidation{Valid: false}, nil
	}

	token, err := s.repo.FindUnexpired(ctx, security.HashToken(raw))
	if errors.Is(err, repository.ErrNotFound) {
		s.record("validate", "invalid")
		return &model.TokenValidation{Valid: false}, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.record("validate", "valid")
	patientID := token.PatientID
	expiresAt := token.ExpiresAt
	return &model.TokenValidation{Valid: true, PatientID: &patientID, ExpiresAt: &expiresAt}, nil
}

// Consume validates and stamps the token for the calling doctor in one step.
// The first doctor to consume a token owns it; the same doctor may present it
// again until it expires.
func (s *Service) Consume(ctx context.Context, actor *model.Actor, raw string) (*model.AccessToken, error) {
	if actor == nil {
		return nil, apperrors.AuthenticationRequired("authentication required")
	}
	if !actor.IsDoctor() {
		return nil, apperrors.Forbidden("only doctors can use access tokens")
	}
	if !security.WellFormedToken(raw) {
		s.record("consume", "rejected")
		return nil, apperrors.ValidationFailed("invalid access link", nil)
	}

	token, err := s.repo.Consume(ctx, security.HashToken(raw), actor.ID)
	if errors.Is(err, repository.ErrTokenUnavailable) {
		s.record("consume", "rejected")
		s.log.Warn("access token rejected", "doctor_id", actor.ID.String())
		return nil, apperrors.ValidationFailed("access token expired or invalid", err)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.record("consume", "consumed")
	s.log.Info("access token consumed", "doctor_id", actor.ID.String(), "patient_id", token.PatientID.String())

	if s.events != nil {
		evt, err := model.NewOutboxEvent(model.EventAccessTokenConsumed, map[string]interface{}{
			"token_id":   token.ID,
			"patient_id": token.PatientID,
			"doctor_id":  actor.ID,
			"used_at":    token.UsedAt,
		})
		if err == nil {
			err = s.events.Create(ctx, evt)
		}
		if err != nil {
			s.log.Error(err, "failed to stage access event", "token_id", token.ID.String())
		}
	}
	return token, nil
}

// ListActive returns the calling patient's unexpired tokens. Raw token values are never returned.
func (s *Service) ListActive(ctx context.Context, actor *model.Actor) ([]*model.AccessToken, error) {
	if !actor.IsPatient() {
		return nil, apperrors.Forbidden("only patients can list their access tokens")
	}
	tokens, err := s.repo.ListActiveByPatient(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return tokens, nil
}

// Authorize checks that actor may act on patientID's record: the patient
// themselves, or a doctor holding an unexpired grant.
func (s *Service) Authorize(ctx context.Context, actor *model.Actor, patientID uuid.UUID) error {
	if actor == nil {
		return apperrors.AuthenticationRequired("authentication required")
	}
	if actor.IsPatient() {
		if actor.ID == patientID {
			return nil
		}
		return apperrors.Forbidden("patients can only access their own record")
	}
	if !actor.IsDoctor() {
		return apperrors.Forbidden("unsupported role")
	}
	ok, err := s.repo.HasGrant(ctx, actor.ID, patientID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !ok {
		return apperrors.Forbidden("no active access grant for this patient")
	}
	return nil
}

// PurgeExpired deletes tokens that expired before cutoff.
func (s *Service) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteExpiredBefore(ctx, cutoff)
}
