package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	RecordTypeDiagnosis    = "diagnosis"
	RecordTypeCondition    = "condition"
	RecordTypeLabTest      = "lab_test"
	RecordTypePrescription = "prescription"

	// Audit-only record types, written by the audit writer.
	RecordTypeDrugAllergyConflict    = "drug_allergy_conflict"
	RecordTypeDrugInteractionWarning = "drug_interaction_warning"
)

// MedicalHistoryRecord is an append-only entry in a patient's history.
type MedicalHistoryRecord struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	PatientID    uuid.UUID      `db:"patient_id" json:"patient_id"`
	RecordedBy   *uuid.UUID     `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordType   string         `db:"record_type" json:"record_type"`
	Title        string         `db:"title" json:"title"`
	Description  *string        `db:"description" json:"description,omitempty"`
	DateRecorded time.Time      `db:"date_recorded" json:"date_recorded"`
	Attachments  pq.StringArray `db:"attachments" json:"attachments"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

type CreateHistoryRequest struct {
	RecordType   string     `json:"record_type" binding:"required,max=50"`
	Title        string     `json:"title" binding:"required,notblank,max=255"`
	Description  string     `json:"description" binding:"max=8000"`
	DateRecorded *time.Time `json:"date_recorded"`
	Attachments  []string   `json:"attachments" binding:"dive,url"`
}

// IsAuditType reports whether recordType is reserved for the audit writer.
func IsAuditType(recordType string) bool {
	return recordType == RecordTypeDrugAllergyConflict || recordType == RecordTypeDrugInteractionWarning
}
