package model

import "time"

type ReadingType string

const (
	ReadingHeartRate     ReadingType = "heart_rate"
	ReadingBloodPressure ReadingType = "blood_pressure"
	ReadingSpO2          ReadingType = "spo2"
	ReadingTemperature   ReadingType = "temperature"
	ReadingSteps         ReadingType = "steps"
)

type ReadingStatus string

const (
	ReadingNormal      ReadingStatus = "normal"
	ReadingElevated    ReadingStatus = "elevated"
	ReadingLow         ReadingStatus = "low"
	ReadingUnavailable ReadingStatus = "unavailable"
)

type WearableReading struct {
	DeviceID  string        `json:"device_id,omitempty"`
	Type      ReadingType   `json:"type" binding:"required,oneof=heart_rate blood_pressure spo2 temperature steps"`
	Label     string        `json:"label"`
	Value     string        `json:"value" binding:"required,max=32"`
	Unit      string        `json:"unit" binding:"max=16"`
	Timestamp time.Time     `json:"timestamp"`
	Status    ReadingStatus `json:"status"`
}

// Abnormal reports whether the reading is outside its normal band.
func (r WearableReading) Abnormal() bool {
	return r.Status == ReadingElevated || r.Status == ReadingLow
}

type ConnectedDevice struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Connected bool       `json:"connected"`
	Paused    bool       `json:"paused"`
	LastSync  *time.Time `json:"last_synced,omitempty"`
}

type PushReadingsRequest struct {
	DeviceID string            `json:"device_id" binding:"required,max=128"`
	Readings []WearableReading `json:"readings" binding:"required,min=1,max=50,dive"`
}
