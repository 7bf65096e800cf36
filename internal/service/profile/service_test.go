package profile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
)

func TestUpdateAndGet(t *testing.T) {
	svc := NewService(memory.NewStore().Profiles())
	ctx := context.Background()
	p := &model.Actor{ID: uuid.New(), Role: model.RolePatient}

	_, err := svc.Get(ctx, p)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	group := "O+"
	saved, err := svc.Update(ctx, p, model.UpdateProfileRequest{
		Name:       "Asha",
		BloodGroup: &group,
		Allergies:  []string{" Penicillin ", "", "Latex"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Penicillin", "Latex"}, []string(saved.Allergies))
	assert.Empty(t, saved.ChronicConditions)

	got, err := svc.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)

	msd := got.MinimumSafeDataset()
	assert.Equal(t, "O+", *msd.BloodGroup)
	assert.Equal(t, []string{}, msd.ChronicConditions)
}

func TestDoctorsHaveNoProfile(t *testing.T) {
	svc := NewService(memory.NewStore().Profiles())
	_, err := svc.Get(context.Background(), &model.Actor{ID: uuid.New(), Role: model.RoleDoctor})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
}
