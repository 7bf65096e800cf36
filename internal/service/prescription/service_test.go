package prescription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository/memory"
	"github.com/jwalitptl/medsafe-api/internal/safety"
	"github.com/jwalitptl/medsafe-api/internal/service/access"
	"github.com/jwalitptl/medsafe-api/internal/service/audit"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
)

// scripted answers each gate with a fixed decision and records the order of calls.
type scripted struct {
	conflicts    Decision
	interactions Decision
	calls        []Stage
	onConflicts  func()
}

func (s *scripted) ReviewConflicts(_ context.Context, _ []model.ConflictResult) (Decision, error) {
	s.calls = append(s.calls, StageAllergyConflict)
	if s.onConflicts != nil {
		s.onConflicts()
	}
	return s.conflicts, nil
}

func (s *scripted) ReviewInteractions(_ context.Context, _ []model.InteractionResult) (Decision, error) {
	s.calls = append(s.calls, StageDrugInteraction)
	return s.interactions, nil
}

type SubmitSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memory.Store
	svc     *Service
	patient *model.Actor
	doctor  *model.Actor
}

func (s *SubmitSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	m := metrics.NewForTest()
	log := logger.Nop()

	s.svc = NewService(Deps{
		Prescriptions: s.store.Prescriptions(),
		Profiles:      s.store.Profiles(),
		History:       s.store.History(),
		Access:        access.NewService(s.store.AccessTokens(), nil, access.Config{}, m, log),
		Audit:         audit.NewWriter(s.store.History(), m, log),
		Engine:        safety.NewEngine(safety.DefaultKnowledgeBase()),
		Metrics:       m,
		Logger:        log,
	})

	s.patient = &model.Actor{ID: uuid.New(), Role: model.RolePatient}
	s.doctor = &model.Actor{ID: uuid.New(), Role: model.RoleDoctor}

	now := time.Now()
	doctorID := s.doctor.ID
	s.Require().NoError(s.store.AccessTokens().Create(s.ctx, &model.AccessToken{
		ID:        uuid.New(),
		TokenHash: "grant",
		PatientID: s.patient.ID,
		ExpiresAt: now.Add(time.Hour),
		UsedBy:    &doctorID,
		UsedAt:    &now,
		CreatedAt: now,
	}))
	s.Require().NoError(s.store.Profiles().Upsert(s.ctx, &model.Profile{
		UserID:    s.patient.ID,
		Name:      "Asha",
		Allergies: []string{"Penicillin"},
	}))
	s.addExisting("Warfarin")
}

func (s *SubmitSuite) addExisting(names ...string) {
	meds := make(model.Medications, 0, len(names))
	for _, n := range names {
		meds = append(meds, model.Medication{Name: n, Dosage: "5mg", Frequency: "daily"})
	}
	p := model.NewPrescription(s.patient.ID, *s.doctor, model.PrescriptionDraft{Title: "Existing"}, meds)
	s.Require().NoError(s.store.Prescriptions().CreateWithEvent(s.ctx, p, nil))
}

func (s *SubmitSuite) draft(names ...string) model.PrescriptionDraft {
	meds := []model.Medication{{Name: "   "}}
	for _, n := range names {
		meds = append(meds, model.Medication{Name: n, Dosage: "500mg", Frequency: "tid"})
	}
	return model.PrescriptionDraft{Title: "Visit", Medications: meds}
}

func (s *SubmitSuite) counts() (prescriptions, history int) {
	ps, err := s.store.Prescriptions().ListByPatient(s.ctx, s.patient.ID)
	s.Require().NoError(err)
	hs, err := s.store.History().ListByPatient(s.ctx, s.patient.ID)
	s.Require().NoError(err)
	return len(ps), len(hs)
}

func (s *SubmitSuite) TestCancelAtAllergyGateWritesNothing() {
	ack := &scripted{conflicts: Cancel, interactions: Acknowledge}

	res, err := s.svc.Submit(s.ctx, s.doctor, s.patient.ID, s.draft("Amoxicillin", "Aspirin"), ack)
	s.Require().NoError(err)
	s.True(res.Cancelled)
	s.Equal(StageAllergyConflict, res.Stage)
	s.Len(res.Conflicts, 1)
	s.Equal([]Stage{StageAllergyConflict}, ack.calls)

	p, h := s.counts()
	s.Equal(1, p)
	s.Equal(0, h)
	s.Empty(s.store.EventTypes())
}

func (s *SubmitSuite) TestCancelAtInteractionGateDiscardsAllergyAcknowledgement() {
	ack := &scripted{conflicts: Acknowledge, interactions: Cancel}

	res, err := s.svc.Submit(s.ctx, s.doctor, s.patient.ID, s.draft("Amoxicillin", "Aspirin"), ack)
	s.Require().NoError(err)
	s.True(res.Cancelled)
	s.Equal(StageDrugInteraction, res.Stage)
	s.Require().Len(res.Interactions, 1)
	s.Equal("Aspirin", res.Interactions[0].Drug1)
	s.Equal("Warfarin", res.Interactions[0].Drug2)
	s.Equal([]Stage{StageAllergyConflict, StageDrugInteraction}, ack.calls)

	p, h := s.counts()
	s.Equal(1, p)
	s.Equal(0, h)
	s.Empty(s.store.EventTypes())
}

func (s *SubmitSuite) TestAcknowledgeBothGates() {
	ack := &scripted{conflicts: Acknowledge, interactions: Acknowledge}

	res, err := s.svc.Submit(s.ctx, s.doctor, s.patient.ID, s.draft("Amoxicillin", "Aspirin"), ack)
	s.Require().NoError(err)
	s.False(res.Cancelled)
	s.Require().NotNil(res.Prescription)

	rx := res.Prescription
	s.True(rx.IsVerified)
	s.Equal(model.UploadSourceDoctor, rx.UploadSource)
	s.Require().NotNil(rx.DoctorID)
	s.Equal(s.doctor.ID, *rx.DoctorID)
	s.Len(rx.Medications, 2)

	hs, err := s.store.History().ListByPatient(s.ctx, s.patient.ID)
	s.Require().NoError(err)
	s.Require().Len(hs, 2)
	types := []string{hs[0].RecordType, hs[1].RecordType}
	s.ElementsMatch([]string{model.RecordTypeDrugAllergyConflict, model.RecordTypeDrugInteractionWarning}, types)
	s.Equal([]string{model.EventPrescriptionCreated}, s.store.EventTypes())
}

func (s *SubmitSuite) TestNoFindingsNeverAsks() {
	ack := &scripted{}

	res, err := s.svc.Submit(s.ctx, s.doctor, s.patient.ID, s.draft("Paracetamol"), ack)
	s.Require().NoError(err)
	s.False(res.Cancelled)
	s.Empty(ack.calls)

	_, h := s.counts()
	s.Equal(0, h)
}

func (s *SubmitSuite) TestInteractionGateSeesPrescriptionsAddedDuringAllergyReview() {
	ack := &scripted{conflicts: Acknowledge, interactions: Cancel}
	ack.onConflicts = func() { s.addExisting("Verapamil") }

	res, err := s.svc.Submit(s.ctx, s.doctor, s.patient.ID, s.draft("Amoxicillin", "Metoprolol"), ack)
	s.Require().NoError(err)
	s.True(res.Cancelled)
	s.Equal(StageDrugInteraction, res.Stage)
	s.Require().Len(res.Interactions, 1)
	s.Equal("Metoprolol", res.Interactions[0].Drug1)
	s.Equal("Verapamil", res.Interactions[0].Drug2)
}

func (s *SubmitSuite) TestPatientSelfEntrySkipsGates() {
	ack := &scripted{}

	res, err := s.svc.Submit(s.ctx, s.patient, s.patient.ID, s.draft("Amoxicillin", "Aspirin"), ack)
	s.Require().NoError(err)
	s.False(res.Cancelled)
	s.Empty(ack.calls)
	s.False(res.Prescription.IsVerified)
	s.Equal(model.UploadSourceUser, res.Prescription.UploadSource)
	s.Nil(res.Prescription.DoctorID)

	_, h := s.counts()
	s.Equal(0, h)
}

func (s *SubmitSuite) TestAccessRules() {
	_, err := s.svc.Submit(s.ctx, &model.Actor{ID: uuid.New(), Role: model.RoleDoctor}, s.patient.ID, s.draft("Aspirin"), nil)
	s.True(apperrors.Is(err, apperrors.ErrForbidden))

	_, err = s.svc.Submit(s.ctx, &model.Actor{ID: uuid.New(), Role: model.RolePatient}, s.patient.ID, s.draft("Aspirin"), nil)
	s.True(apperrors.Is(err, apperrors.ErrForbidden))

	_, err = s.svc.Submit(s.ctx, nil, s.patient.ID, s.draft("Aspirin"), nil)
	s.True(apperrors.Is(err, apperrors.ErrAuthenticationRequired))
}

func (s *SubmitSuite) TestFlagsAcknowledger() {
	res, err := s.svc.Submit(s.ctx, s.doctor, s.patient.ID, s.draft("Aspirin"), Flags{AcknowledgeConflicts: true})
	s.Require().NoError(err)
	s.True(res.Cancelled)
	s.Equal(StageDrugInteraction, res.Stage)

	res, err = s.svc.Submit(s.ctx, s.doctor, s.patient.ID, s.draft("Aspirin"), Flags{AcknowledgeInteractions: true})
	s.Require().NoError(err)
	s.False(res.Cancelled)
}

func (s *SubmitSuite) TestPreview() {
	report, err := s.svc.Preview(s.ctx, s.doctor, s.patient.ID, s.draft("Amoxicillin", "Aspirin"))
	s.Require().NoError(err)
	s.Len(report.Conflicts, 1)
	s.Len(report.Interactions, 1)
	s.NotNil(report.Advisories)

	p, h := s.counts()
	s.Equal(1, p)
	s.Equal(0, h)
}

func TestSubmitSuite(t *testing.T) {
	suite.Run(t, new(SubmitSuite))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "acknowledge", Acknowledge.String())
	assert.Equal(t, "cancel", Cancel.String())
	require.Equal(t, Decision(0), Cancel)
}
