package model

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a *Actor) IsDoctor() bool {
	return a != nil && a.Role == RoleDoctor
}

func (a *Actor) IsPatient() bool {
	return a != nil && a.Role == RolePatient
}

// TokenClaims represents the bearer JWT claims. Subject carries the user id.
type TokenClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}
