package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type MedicationReminder struct {
	Base
	UserID         uuid.UUID      `db:"user_id" json:"user_id"`
	PrescriptionID *uuid.UUID     `db:"prescription_id" json:"prescription_id,omitempty"`
	MedicationName string         `db:"medication_name" json:"medication_name"`
	Dosage         *string        `db:"dosage" json:"dosage,omitempty"`
	Frequency      string         `db:"frequency" json:"frequency"`
	ReminderTimes  pq.StringArray `db:"reminder_times" json:"reminder_times"`
	StartDate      time.Time      `db:"start_date" json:"start_date"`
	EndDate        *time.Time     `db:"end_date" json:"end_date,omitempty"`
	IsActive       bool           `db:"is_active" json:"is_active"`
}

type ReminderRequest struct {
	PrescriptionID *uuid.UUID `json:"prescription_id"`
	MedicationName string     `json:"medication_name" binding:"required,notblank,max=200"`
	Dosage         string     `json:"dosage" binding:"max=100"`
	Frequency      string     `json:"frequency" binding:"required,max=100"`
	ReminderTimes  []string   `json:"reminder_times" binding:"required,min=1,max=24,dive,datetime=15:04"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
}
