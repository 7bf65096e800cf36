package wearable

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

var (
	ErrDeviceNotFound     = errors.New("device not found")
	ErrDeviceDisconnected = errors.New("device is not connected")
)

// Source is a patient-scoped store of wearable devices and their latest readings.
type Source interface {
	Scan(ctx context.Context, patientID uuid.UUID) ([]model.ConnectedDevice, error)
	Connect(ctx context.Context, patientID uuid.UUID, deviceID string) (*model.ConnectedDevice, error)
	Disconnect(ctx context.Context, patientID uuid.UUID, deviceID string) error
	SetPaused(ctx context.Context, patientID uuid.UUID, deviceID string, paused bool) error
	// Read returns the latest reading of each type from connected, unpaused devices.
	Read(ctx context.Context, patientID uuid.UUID) ([]model.WearableReading, error)
}

// Recorder is implemented by sources that accept readings pushed by a companion app.
type Recorder interface {
	Record(ctx context.Context, patientID uuid.UUID, deviceID string, readings []model.WearableReading) error
}

var labels = map[model.ReadingType]struct{ label, unit string }{
	model.ReadingHeartRate:     {"Heart Rate", "bpm"},
	model.ReadingBloodPressure: {"Blood Pressure", "mmHg"},
	model.ReadingSpO2:          {"SpO2", "%"},
	model.ReadingTemperature:   {"Body Temp", "°C"},
	model.ReadingSteps:         {"Steps", "steps"},
}

var typeOrder = map[model.ReadingType]int{
	model.ReadingHeartRate:     0,
	model.ReadingBloodPressure: 1,
	model.ReadingSpO2:          2,
	model.ReadingTemperature:   3,
	model.ReadingSteps:         4,
}

// Classify fills in the label, unit and status of a reading from its type and value.
// Values that do not parse are reported as unavailable.
func Classify(r model.WearableReading) model.WearableReading {
	if meta, ok := labels[r.Type]; ok {
		if r.Label == "" {
			r.Label = meta.label
		}
		if r.Unit == "" {
			r.Unit = meta.unit
		}
	}

	switch r.Type {
	case model.ReadingHeartRate:
		r.Status = band(r.Value, 50, 100)
	case model.ReadingTemperature:
		r.Status = band(r.Value, 35.5, 37.5)
	case model.ReadingSpO2:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
		switch {
		case err != nil:
			r.Status = model.ReadingUnavailable
		case v < 95:
			r.Status = model.ReadingLow
		default:
			r.Status = model.ReadingNormal
		}
	default:
		if strings.TrimSpace(r.Value) == "" {
			r.Status = model.ReadingUnavailable
		} else {
			r.Status = model.ReadingNormal
		}
	}
	return r
}

func band(value string, low, high float64) model.ReadingStatus {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	switch {
	case err != nil:
		return model.ReadingUnavailable
	case v > high:
		return model.ReadingElevated
	case v < low:
		return model.ReadingLow
	default:
		return model.ReadingNormal
	}
}

func sortReadings(readings []model.WearableReading) {
	sort.SliceStable(readings, func(i, j int) bool {
		if typeOrder[readings[i].Type] != typeOrder[readings[j].Type] {
			return typeOrder[readings[i].Type] < typeOrder[readings[j].Type]
		}
		return readings[i].DeviceID < readings[j].DeviceID
	})
}
