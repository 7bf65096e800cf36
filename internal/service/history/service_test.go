package history

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
)

type ownerOnly struct{}

func (ownerOnly) Authorize(_ context.Context, actor *model.Actor, patientID uuid.UUID) error {
	if actor == nil || actor.ID != patientID {
		return apperrors.Forbidden("not yours")
	}
	return nil
}

func TestAddDefaultsDateToToday(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.History(), ownerOnly{})
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 17, 45, 0, 0, time.UTC) }

	p := &model.Actor{ID: uuid.New(), Role: model.RolePatient}
	rec, err := svc.Add(context.Background(), p, p.ID, model.CreateHistoryRequest{
		RecordType: model.RecordTypeDiagnosis,
		Title:      "Type 2 diabetes",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), rec.DateRecorded)
	assert.Nil(t, rec.Description)
	assert.NotNil(t, rec.Attachments)
	require.NotNil(t, rec.RecordedBy)
	assert.Equal(t, p.ID, *rec.RecordedBy)
}

func TestAddRejectsAuditTypes(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.History(), ownerOnly{})
	p := &model.Actor{ID: uuid.New(), Role: model.RolePatient}

	_, err := svc.Add(context.Background(), p, p.ID, model.CreateHistoryRequest{
		RecordType: model.RecordTypeDrugAllergyConflict,
		Title:      "forged",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))
}

func TestListOrdersByDateRecorded(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.History(), ownerOnly{})
	p := &model.Actor{ID: uuid.New(), Role: model.RolePatient}
	ctx := context.Background()

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Add(ctx, p, p.ID, model.CreateHistoryRequest{RecordType: "lab_test", Title: "newer", DateRecorded: &newer})
	require.NoError(t, err)
	_, err = svc.Add(ctx, p, p.ID, model.CreateHistoryRequest{RecordType: "lab_test", Title: "older", DateRecorded: &older})
	require.NoError(t, err)

	records, err := svc.List(ctx, p, p.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "newer", records[0].Title)

	_, err = svc.List(ctx, &model.Actor{ID: uuid.New(), Role: model.RolePatient}, p.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}
