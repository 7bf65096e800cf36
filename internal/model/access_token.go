package model

import (
	"time"

	"github.com/google/uuid"
)

type TokenState string

const (
	TokenStateActive   TokenState = "active"
	TokenStateConsumed TokenState = "consumed"
	TokenStateExpired  TokenState = "expired"
)

// AccessToken grants a doctor temporary read access to one patient's record.
// Only the digest of the token is persisted; Token is populated once, at issue time.
type AccessToken struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Token     string     `db:"-" json:"token,omitempty"`
	TokenHash string     `db:"token_hash" json:"-"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	UsedBy    *uuid.UUID `db:"used_by" json:"used_by,omitempty"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

func (t *AccessToken) State(now time.Time) TokenState {
	switch {
	case !now.Before(t.ExpiresAt):
		return TokenStateExpired
	case t.UsedBy != nil:
		return TokenStateConsumed
	default:
		return TokenStateActive
	}
}

// IssuedToken is returned to the patient who generated the token.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenValidation is the answer to a validation query. Invalid tokens are not errors.
type TokenValidation struct {
	Valid     bool       `json:"valid"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type GenerateTokenRequest struct {
	TTLMinutes int `json:"ttl_minutes" binding:"gte=0"`
}

type UseTokenRequest struct {
	Token string `json:"token" binding:"required"`
}
