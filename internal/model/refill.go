package model

import (
	"github.com/google/uuid"
)

type RefillStatus string

const (
	RefillStatusPending  RefillStatus = "pending"
	RefillStatusApproved RefillStatus = "approved"
	RefillStatusDenied   RefillStatus = "denied"
)

type RefillRequest struct {
	Base
	PatientID      uuid.UUID    `db:"patient_id" json:"patient_id"`
	PrescriptionID *uuid.UUID   `db:"prescription_id" json:"prescription_id,omitempty"`
	MedicationName string       `db:"medication_name" json:"medication_name"`
	Status         RefillStatus `db:"status" json:"status"`
	RequestNotes   *string      `db:"request_notes" json:"request_notes,omitempty"`
	DoctorResponse *string      `db:"doctor_response" json:"doctor_response,omitempty"`
	DoctorID       *uuid.UUID   `db:"doctor_id" json:"doctor_id,omitempty"`
}

type CreateRefillRequest struct {
	PrescriptionID *uuid.UUID `json:"prescription_id"`
	MedicationName string     `json:"medication_name" binding:"required,notblank,max=200"`
	RequestNotes   string     `json:"request_notes" binding:"max=2000"`
}

type RespondRefillRequest struct {
	Status   RefillStatus `json:"status" binding:"required,oneof=approved denied"`
	Response string       `json:"response" binding:"max=2000"`
}
