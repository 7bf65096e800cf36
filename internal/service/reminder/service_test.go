package reminder

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

func TestReminderLifecycle(t *testing.T) {
	svc := NewService(memory.NewStore().Reminders())
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	p := &model.Actor{ID: uuid.New(), Role: model.RolePatient}

	r, err := svc.Create(ctx, p, model.ReminderRequest{
		MedicationName: "Metformin",
		Dosage:         "500mg",
		Frequency:      "twice daily",
		ReminderTimes:  []string{"08:00", "20:00"},
	})
	require.NoError(t, err)
	assert.True(t, r.IsActive)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), r.StartDate)

	toggled, err := svc.Toggle(ctx, p, r.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	updated, err := svc.Update(ctx, p, r.ID, model.ReminderRequest{
		MedicationName: "Metformin XR",
		Frequency:      "daily",
		ReminderTimes:  []string{"09:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Metformin XR", updated.MedicationName)
	assert.Nil(t, updated.Dosage)

	list, err := svc.List(ctx, p)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)

	require.NoError(t, svc.Delete(ctx, p, r.ID))
	assert.True(t, apperrors.Is(svc.Delete(ctx, p, r.ID), apperrors.ErrNotFound))
}

func TestReminderOwnership(t *testing.T) {
	svc := NewService(memory.NewStore().Reminders())
	ctx := context.Background()
	owner := &model.Actor{ID: uuid.New(), Role: model.RolePatient}
	other := &model.Actor{ID: uuid.New(), Role: model.RolePatient}

	r, err := svc.Create(ctx, owner, model.ReminderRequest{MedicationName: "A", Frequency: "daily", ReminderTimes: []string{"08:00"}})
	require.NoError(t, err)

	_, err = svc.Toggle(ctx, other, r.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(svc.Delete(ctx, other, r.ID), apperrors.ErrNotFound))

	_, err = svc.List(ctx, &model.Actor{ID: uuid.New(), Role: model.RoleDoctor})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)
	_, err = svc.Create(ctx, owner, model.ReminderRequest{MedicationName: "B", Frequency: "daily",
		ReminderTimes: []string{"08:00"}, StartDate: &start, EndDate: &end})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidationFailed))
}
