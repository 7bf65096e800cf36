package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository/memory"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
)

func TestLogConflict(t *testing.T) {
	store := memory.NewStore()
	w := NewWriter(store.History(), metrics.NewForTest(), logger.Nop())
	fixed := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	patientID, doctorID := uuid.New(), uuid.New()
	conflicts := []model.ConflictResult{{Medication: "Amoxicillin", Allergy: "Penicillin", Severity: model.SeverityHigh}}
	w.LogConflict(context.Background(), patientID, doctorID, conflicts, true)

	records, err := store.History().ListByPatient(context.Background(), patientID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, model.RecordTypeDrugAllergyConflict, rec.RecordType)
	assert.Equal(t, "Drug-Allergy Conflict Detected", rec.Title)
	require.NotNil(t, rec.RecordedBy)
	assert.Equal(t, doctorID, *rec.RecordedBy)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(*rec.Description), &payload))
	assert.Equal(t, true, payload["acknowledged"])
	assert.Equal(t, doctorID.String(), payload["acknowledged_by"])
	assert.Equal(t, "2025-06-15T09:30:00Z", payload["timestamp"])
	assert.Len(t, payload["conflicts"], 1)
}

func TestLogInteraction(t *testing.T) {
	store := memory.NewStore()
	w := NewWriter(store.History(), metrics.NewForTest(), logger.Nop())

	patientID := uuid.New()
	w.LogInteraction(context.Background(), patientID, uuid.New(), []model.InteractionResult{{
		Drug1: "Warfarin", Drug2: "Aspirin", Severity: model.SeverityHigh, Description: "Increased bleeding risk",
	}}, true)

	records, err := store.History().ListByPatient(context.Background(), patientID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.RecordTypeDrugInteractionWarning, records[0].RecordType)
	assert.Equal(t, "Drug-Drug Interaction Warning", records[0].Title)
	assert.Contains(t, *records[0].Description, `"interactions":[{"drug1":"Warfarin"`)
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	store := memory.NewStore()
	store.FailHistoryWrites = errors.New("db down")
	m := metrics.NewForTest()
	w := NewWriter(store.History(), m, logger.Nop())

	assert.NotPanics(t, func() {
		w.LogConflict(context.Background(), uuid.New(), uuid.New(), nil, true)
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWriteFailures.WithLabelValues(model.RecordTypeDrugAllergyConflict)))
}
