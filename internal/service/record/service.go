package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
	"github.com/jwalitptl/medsafe-api/internal/safety"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/security"
)

const (
	DoctorDashboard  = "/doctor-dashboard"
	PatientDashboard = "/dashboard"
)

type TokenConsumer interface {
	Consume(ctx context.Context, actor *model.Actor, raw string) (*model.AccessToken, error)
}

type ReadingSource interface {
	ReadFor(ctx context.Context, patientID uuid.UUID) []model.WearableReading
}

// View is what a doctor sees after presenting a patient's access token.
type View struct {
	PatientID          uuid.UUID                     `json:"patient_id"`
	AccessExpiresAt    time.Time                     `json:"access_expires_at"`
	MinimumSafeDataset model.MinimumSafeDataset      `json:"minimum_safe_dataset"`
	Profile            *model.Profile                `json:"profile"`
	History            []*model.MedicalHistoryRecord `json:"medical_history"`
	Prescriptions      []*model.Prescription         `json:"prescriptions"`
	WearableReadings   []model.WearableReading       `json:"wearable_readings"`
	Advisories         []model.DriftAdvisory         `json:"drift_advisories"`
}

type Service struct {
	tokens        TokenConsumer
	profiles      repository.ProfileRepository
	history       repository.MedicalHistoryRepository
	prescriptions repository.PrescriptionRepository
	readings      ReadingSource
	drift         *safety.DriftAnalyzer
	log           *logger.Logger
}

func NewService(
	tokens TokenConsumer,
	profiles repository.ProfileRepository,
	history repository.MedicalHistoryRepository,
	prescriptions repository.PrescriptionRepository,
	readings ReadingSource,
	drift *safety.DriftAnalyzer,
	log *logger.Logger,
) *Service {
	return &Service{
		tokens:        tokens,
		profiles:      profiles,
		history:       history,
		prescriptions: prescriptions,
		readings:      readings,
		drift:         drift,
		log:           log,
	}
}

// RedirectFor returns where a client should be sent when Open fails with err.
func RedirectFor(err error) string {
	if apperrors.Is(err, apperrors.ErrForbidden) {
		return PatientDashboard
	}
	return DoctorDashboard
}

// Open consumes the token for the calling doctor and loads the patient's record.
// The token is checked before anything about the patient is read.
func (s *Service) Open(ctx context.Context, actor *model.Actor, raw string) (*View, error) {
	if actor == nil {
		return nil, apperrors.AuthenticationRequired("")
	}
	if !security.WellFormedToken(raw) {
		return nil, apperrors.ValidationFailed("invalid access link", nil)
	}
	if !actor.IsDoctor() {
		return nil, apperrors.Forbidden("only doctors can open an access link")
	}

	token, err := s.tokens.Consume(ctx, actor, raw)
	if err != nil {
		return nil, err
	}
	patientID := token.PatientID

	profile, err := s.profiles.Get(ctx, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		profile = &model.Profile{UserID: patientID, Allergies: []string{}, ChronicConditions: []string{}}
	} else if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("load profile: %w", err))
	}

	history, err := s.history.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("load history: %w", err))
	}
	prescriptions, err := s.prescriptions.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("load prescriptions: %w", err))
	}

	readings := []model.WearableReading{}
	if s.readings != nil {
		readings = s.readings.ReadFor(ctx, patientID)
	}

	advisories := s.drift.AnalyzeDrift(model.MedicationsOf(prescriptions), history, readings,
		profile.Allergies, profile.ChronicConditions)

	s.log.Info("patient record opened", "doctor_id", actor.ID.String(), "patient_id", patientID.String())

	return &View{
		PatientID:          patientID,
		AccessExpiresAt:    token.ExpiresAt,
		MinimumSafeDataset: profile.MinimumSafeDataset(),
		Profile:            profile,
		History:            history,
		Prescriptions:      prescriptions,
		WearableReadings:   readings,
		Advisories:         advisories,
	}, nil
}
