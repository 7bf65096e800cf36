package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Profile struct {
	UserID                   uuid.UUID      `db:"user_id" json:"user_id"`
	Name                     string         `db:"name" json:"name"`
	Age                      *int           `db:"age" json:"age,omitempty"`
	Gender                   *string        `db:"gender" json:"gender,omitempty"`
	BloodGroup               *string        `db:"blood_group" json:"blood_group,omitempty"`
	Allergies                pq.StringArray `db:"allergies" json:"allergies"`
	ChronicConditions        pq.StringArray `db:"chronic_conditions" json:"chronic_conditions"`
	EmergencyContactName     *string        `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone    *string        `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelation *string        `db:"emergency_contact_relation" json:"emergency_contact_relation,omitempty"`
	CreatedAt                time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time      `db:"updated_at" json:"updated_at"`
}

type UpdateProfileRequest struct {
	Name                     string   `json:"name" binding:"required,max=255"`
	Age                      *int     `json:"age" binding:"omitempty,gte=0,lte=150"`
	Gender                   *string  `json:"gender" binding:"omitempty,max=32"`
	BloodGroup               *string  `json:"blood_group" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies                []string `json:"allergies" binding:"max=100,dive,max=200"`
	ChronicConditions        []string `json:"chronic_conditions" binding:"max=100,dive,max=200"`
	EmergencyContactName     *string  `json:"emergency_contact_name" binding:"omitempty,max=255"`
	EmergencyContactPhone    *string  `json:"emergency_contact_phone" binding:"omitempty,max=32"`
	EmergencyContactRelation *string  `json:"emergency_contact_relation" binding:"omitempty,max=64"`
}

// MinimumSafeDataset is the part of a profile a clinician needs first in an emergency.
type MinimumSafeDataset struct {
	Name                     string   `json:"name"`
	Age                      *int     `json:"age,omitempty"`
	BloodGroup               *string  `json:"blood_group,omitempty"`
	Allergies                []string `json:"allergies"`
	ChronicConditions        []string `json:"chronic_conditions"`
	EmergencyContactName     *string  `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone    *string  `json:"emergency_contact_phone,omitempty"`
	EmergencyContactRelation *string  `json:"emergency_contact_relation,omitempty"`
}

func (p *Profile) MinimumSafeDataset() MinimumSafeDataset {
	return MinimumSafeDataset{
		Name:                     p.Name,
		Age:                      p.Age,
		BloodGroup:               p.BloodGroup,
		Allergies:                nonNil(p.Allergies),
		ChronicConditions:        nonNil(p.ChronicConditions),
		EmergencyContactName:     p.EmergencyContactName,
		EmergencyContactPhone:    p.EmergencyContactPhone,
		EmergencyContactRelation: p.EmergencyContactRelation,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
