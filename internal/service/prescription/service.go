package prescription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
	"github.com/jwalitptl/medsafe-api/internal/safety"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
)

type Stage string

const (
	StageAllergyConflict Stage = "allergy_conflict"
	StageDrugInteraction Stage = "drug_interaction"
)

type Authorizer interface {
	Authorize(ctx context.Context, actor *model.Actor, patientID uuid.UUID) error
}

type AuditWriter interface {
	LogConflict(ctx context.Context, patientID, doctorID uuid.UUID, conflicts []model.ConflictResult, acknowledged bool)
	LogInteraction(ctx context.Context, patientID, doctorID uuid.UUID, interactions []model.InteractionResult, acknowledged bool)
}

type ReadingSource interface {
	ReadFor(ctx context.Context, patientID uuid.UUID) []model.WearableReading
}

// Result describes how a submission ended. When Cancelled is set nothing was
// written and Stage names the gate that stopped it.
type Result struct {
	Prescription *model.Prescription       `json:"prescription,omitempty"`
	Cancelled    bool                      `json:"cancelled"`
	Stage        Stage                     `json:"stage,omitempty"`
	Conflicts    []model.ConflictResult    `json:"conflicts,omitempty"`
	Interactions []model.InteractionResult `json:"interactions,omitempty"`
}

type Service struct {
	prescriptions repository.PrescriptionRepository
	profiles      repository.ProfileRepository
	history       repository.MedicalHistoryRepository
	access        Authorizer
	audit         AuditWriter
	readings      ReadingSource
	engine        *safety.Engine
	metrics       *metrics.Metrics
	log           *logger.Logger
}

type Deps struct {
	Prescriptions repository.PrescriptionRepository
	Profiles      repository.ProfileRepository
	History       repository.MedicalHistoryRepository
	Access        Authorizer
	Audit         AuditWriter
	Readings      ReadingSource
	Engine        *safety.Engine
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		prescriptions: d.Prescriptions,
		profiles:      d.Profiles,
		history:       d.History,
		access:        d.Access,
		audit:         d.Audit,
		readings:      d.Readings,
		engine:        d.Engine,
		metrics:       d.Metrics,
		log:           d.Logger,
	}
}

// profile returns the patient's profile, or an empty one if none was saved yet.
func (s *Service) profile(ctx context.Context, patientID uuid.UUID) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.Profile{UserID: patientID}, nil
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("load profile: %w", err))
	}
	return p, nil
}

func (s *Service) existingMedications(ctx context.Context, patientID uuid.UUID) (model.Medications, error) {
	existing, err := s.prescriptions.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("load prescriptions: %w", err))
	}
	return model.MedicationsOf(existing), nil
}

// Submit runs the safety gates in order and persists the prescription.
//
// Doctors pass through the allergy gate, then the interaction gate; each gate that
// finds something asks ack for a decision. Cancel at any gate ends the submission
// with nothing written. Audit records for acknowledged gates are written only after
// the prescription itself is stored. Patients entering their own prescriptions skip
// every gate and the result is stored unverified.
func (s *Service) Submit(ctx context.Context, actor *model.Actor, patientID uuid.UUID, draft model.PrescriptionDraft, ack Acknowledger) (*Result, error) {
	if err := s.access.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	if ack == nil {
		ack = Flags{}
	}

	meds := model.Medications(draft.Medications).Named()

	var (
		conflicts       []model.ConflictResult
		interactions    []model.InteractionResult
		ackConflicts    bool
		ackInteractions bool
	)

	if actor.IsDoctor() {
		profile, err := s.profile(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if len(profile.Allergies) > 0 {
			conflicts = s.engine.Allergies.CheckMedications(meds, profile.Allergies)
		}
		if len(conflicts) > 0 {
			s.metrics.AllergyConflicts.Add(float64(len(conflicts)))
			decision, err := ack.ReviewConflicts(ctx, conflicts)
			if err != nil {
				return nil, err
			}
			if decision != Acknowledge {
				return s.cancel(StageAllergyConflict, conflicts, nil), nil
			}
			ackConflicts = true
		}

		// Loaded only now so the check sees prescriptions added while the first gate waited.
		existing, err := s.existingMedications(ctx, patientID)
		if err != nil {
			return nil, err
		}
		interactions = s.engine.Interactions.CheckInteractions(meds, existing)
		if len(interactions) > 0 {
			for _, in := range interactions {
				s.metrics.DrugInteractions.WithLabelValues(string(in.Severity)).Inc()
			}
			decision, err := ack.ReviewInteractions(ctx, interactions)
			if err != nil {
				return nil, err
			}
			if decision != Acknowledge {
				return s.cancel(StageDrugInteraction, nil, interactions), nil
			}
			ackInteractions = true
		}
	}

	p := model.NewPrescription(patientID, *actor, draft, meds)
	evt, err := model.NewOutboxEvent(model.EventPrescriptionCreated, map[string]interface{}{
		"prescription_id": p.ID,
		"patient_id":      p.PatientID,
		"doctor_id":       p.DoctorID,
		"upload_source":   p.UploadSource,
		"medications":     len(p.Medications),
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.prescriptions.CreateWithEvent(ctx, p, evt); err != nil {
		s.metrics.SubmissionOutcomes.WithLabelValues("failed").Inc()
		return nil, apperrors.Internal(err)
	}

	if ackConflicts {
		s.audit.LogConflict(ctx, patientID, actor.ID, conflicts, true)
	}
	if ackInteractions {
		s.audit.LogInteraction(ctx, patientID, actor.ID, interactions, true)
	}

	s.metrics.SubmissionOutcomes.WithLabelValues("created").Inc()
	s.log.Info("prescription created",
		"prescription_id", p.ID.String(),
		"patient_id", patientID.String(),
		"upload_source", string(p.UploadSource),
		"acknowledged_conflicts", ackConflicts,
		"acknowledged_interactions", ackInteractions,
	)

	return &Result{Prescription: p, Conflicts: conflicts, Interactions: interactions}, nil
}

func (s *Service) cancel(stage Stage, conflicts []model.ConflictResult, interactions []model.InteractionResult) *Result {
	s.metrics.SubmissionOutcomes.WithLabelValues("cancelled_" + string(stage)).Inc()
	return &Result{Cancelled: true, Stage: stage, Conflicts: conflicts, Interactions: interactions}
}

// Preview runs every check on a draft without persisting anything.
func (s *Service) Preview(ctx context.Context, actor *model.Actor, patientID uuid.UUID, draft model.PrescriptionDraft) (*model.SafetyReport, error) {
	if err := s.access.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	meds := model.Medications(draft.Medications).Named()

	profile, err := s.profile(ctx, patientID)
	if err != nil {
		return nil, err
	}
	existing, err := s.existingMedications(ctx, patientID)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("load history: %w", err))
	}
	var readings []model.WearableReading
	if s.readings != nil {
		readings = s.readings.ReadFor(ctx, patientID)
	}

	report := &model.SafetyReport{
		Conflicts:    []model.ConflictResult{},
		Interactions: s.engine.Interactions.CheckInteractions(meds, existing),
		Advisories:   s.engine.Drift.AnalyzeDrift(meds, history, readings, profile.Allergies, profile.ChronicConditions),
	}
	if len(profile.Allergies) > 0 {
		report.Conflicts = s.engine.Allergies.CheckMedications(meds, profile.Allergies)
	}
	for _, adv := range report.Advisories {
		s.metrics.DriftAdvisories.WithLabelValues(adv.ID).Inc()
	}
	return report, nil
}

func (s *Service) List(ctx context.Context, actor *model.Actor, patientID uuid.UUID) ([]*model.Prescription, error) {
	if err := s.access.Authorize(ctx, actor, patientID); err != nil {
		return nil, err
	}
	prescriptions, err := s.prescriptions.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return prescriptions, nil
}
