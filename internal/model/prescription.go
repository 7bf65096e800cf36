package model

import (
	"time"

	"github.com/google/uuid"
)

type UploadSource string

const (
	UploadSourceDoctor UploadSource = "doctor"
	UploadSourceUser   UploadSource = "user"
)

type Prescription struct {
	Base
	PatientID    uuid.UUID    `db:"patient_id" json:"patient_id"`
	DoctorID     *uuid.UUID   `db:"doctor_id" json:"doctor_id,omitempty"`
	Title        string       `db:"title" json:"title"`
	Description  *string      `db:"description" json:"description,omitempty"`
	Medications  Medications  `db:"medications" json:"medications"`
	FileURL      *string      `db:"file_url" json:"file_url,omitempty"`
	FileType     *string      `db:"file_type" json:"file_type,omitempty"`
	IsVerified   bool         `db:"is_verified" json:"is_verified"`
	UploadSource UploadSource `db:"upload_source" json:"upload_source"`
}

// PrescriptionDraft is the author-supplied part of a prescription.
type PrescriptionDraft struct {
	Title       string       `json:"title" binding:"required,notblank,max=255"`
	Description string       `json:"description" binding:"max=4000"`
	Medications []Medication `json:"medications" binding:"dive"`
	FileURL     string       `json:"file_url" binding:"omitempty,url"`
	FileType    string       `json:"file_type" binding:"max=100"`
}

// SubmitPrescriptionRequest is a draft plus the answers to the safety gates.
// A client resubmits with a flag set after the user confirmed the matching dialog.
type SubmitPrescriptionRequest struct {
	PrescriptionDraft
	AcknowledgeConflicts    bool `json:"acknowledge_conflicts"`
	AcknowledgeInteractions bool `json:"acknowledge_interactions"`
}

// NewPrescription builds a prescription for patientID authored by author.
// Verification follows the author: doctor-authored rows are verified, everything else is not.
func NewPrescription(patientID uuid.UUID, author Actor, draft PrescriptionDraft, meds Medications) *Prescription {
	now := time.Now().UTC()
	p := &Prescription{
		Base: Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PatientID:    patientID,
		Title:        draft.Title,
		Medications:  meds,
		UploadSource: UploadSourceUser,
	}
	if author.Role == RoleDoctor {
		doctorID := author.ID
		p.DoctorID = &doctorID
		p.UploadSource = UploadSourceDoctor
	}
	p.IsVerified = p.UploadSource == UploadSourceDoctor
	if draft.Description != "" {
		p.Description = &draft.Description
	}
	if draft.FileURL != "" {
		p.FileURL = &draft.FileURL
	}
	if draft.FileType != "" {
		p.FileType = &draft.FileType
	}
	return p
}

// MedicationsOf concatenates the medications of every prescription, newest prescription first.
func MedicationsOf(prescriptions []*Prescription) Medications {
	var meds Medications
	for _, p := range prescriptions {
		meds = append(meds, p.Medications...)
	}
	return meds
}
