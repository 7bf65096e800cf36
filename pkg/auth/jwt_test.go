package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "medsafe")
	actor := model.Actor{ID: uuid.New(), Role: model.RoleDoctor}

	token, err := svc.GenerateAccessToken(actor, time.Hour)
	require.NoError(t, err)

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor, *got)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret", "medsafe").GenerateAccessToken(model.Actor{ID: uuid.New(), Role: model.RolePatient}, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTService("other", "medsafe").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsExpired(t *testing.T) {
	svc := NewJWTService("secret", "medsafe")
	token, err := svc.GenerateAccessToken(model.Actor{ID: uuid.New(), Role: model.RolePatient}, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsUnknownRole(t *testing.T) {
	_, err := NewJWTService("secret", "").GenerateAccessToken(model.Actor{ID: uuid.New(), Role: "admin"}, time.Hour)
	assert.Error(t, err)
}
