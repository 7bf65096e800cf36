package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
)

const (
	conflictTitle    = "Drug-Allergy Conflict Detected"
	interactionTitle = "Drug-Drug Interaction Warning"
)

// Writer persists acknowledged safety findings into the patient's medical history.
// Writes are best effort: failures are logged and counted, never returned.
type Writer struct {
	repo    repository.MedicalHistoryRepository
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewWriter(repo repository.MedicalHistoryRepository, m *metrics.Metrics, log *logger.Logger) *Writer {
	return &Writer{repo: repo, metrics: m, log: log, now: time.Now}
}

type conflictPayload struct {
	Conflicts      []model.ConflictResult `json:"conflicts"`
	Acknowledged   bool                   `json:"acknowledged"`
	Timestamp      time.Time              `json:"timestamp"`
	AcknowledgedBy uuid.UUID              `json:"acknowledged_by"`
}

type interactionPayload struct {
	Interactions   []model.InteractionResult `json:"interactions"`
	Acknowledged   bool                      `json:"acknowledged"`
	Timestamp      time.Time                 `json:"timestamp"`
	AcknowledgedBy uuid.UUID                 `json:"acknowledged_by"`
}

func (w *Writer) LogConflict(ctx context.Context, patientID, doctorID uuid.UUID, conflicts []model.ConflictResult, acknowledged bool) {
	now := w.now().UTC()
	w.write(ctx, patientID, doctorID, model.RecordTypeDrugAllergyConflict, conflictTitle, conflictPayload{
		Conflicts:      conflicts,
		Acknowledged:   acknowledged,
		Timestamp:      now,
		AcknowledgedBy: doctorID,
	}, now)
}

func (w *Writer) LogInteraction(ctx context.Context, patientID, doctorID uuid.UUID, interactions []model.InteractionResult, acknowledged bool) {
	now := w.now().UTC()
	w.write(ctx, patientID, doctorID, model.RecordTypeDrugInteractionWarning, interactionTitle, interactionPayload{
		Interactions:   interactions,
		Acknowledged:   acknowledged,
		Timestamp:      now,
		AcknowledgedBy: doctorID,
	}, now)
}

func (w *Writer) write(ctx context.Context, patientID, doctorID uuid.UUID, recordType, title string, payload interface{}, now time.Time) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.fail(err, recordType, patientID)
		return
	}
	description := string(data)
	recordedBy := doctorID
	record := &model.MedicalHistoryRecord{
		ID:           uuid.New(),
		PatientID:    patientID,
		RecordedBy:   &recordedBy,
		RecordType:   recordType,
		Title:        title,
		Description:  &description,
		DateRecorded: now,
		Attachments:  []string{},
		CreatedAt:    now,
	}
	if err := w.repo.Create(ctx, record); err != nil {
		w.fail(err, recordType, patientID)
	}
}

func (w *Writer) fail(err error, recordType string, patientID uuid.UUID) {
	w.metrics.AuditWriteFailures.WithLabelValues(recordType).Inc()
	w.log.Error(err, "failed to write safety audit record", "record_type", recordType, "patient_id", patientID.String())
}
