package wearable

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

// SimulatedSource serves a fixed pair of devices with fixed, normal readings.
// Device state lives in process memory and is forgotten after ttl of inactivity.
type SimulatedSource struct {
	state *cache.Cache
	now   func() time.Time
}

func NewSimulatedSource(ttl time.Duration) *SimulatedSource {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SimulatedSource{state: cache.New(ttl, ttl*2), now: time.Now}
}

var simulatedDevices = []model.ConnectedDevice{
	{ID: "sim-watch-1", Name: "Simulated Smartwatch"},
	{ID: "sim-band-1", Name: "Simulated Fitness Band"},
}

var simulatedReadings = map[string][]model.WearableReading{
	"sim-watch-1": {
		{Type: model.ReadingHeartRate, Value: "72"},
		{Type: model.ReadingSpO2, Value: "98"},
		{Type: model.ReadingTemperature, Value: "36.6"},
	},
	"sim-band-1": {
		{Type: model.ReadingBloodPressure, Value: "118/76"},
		{Type: model.ReadingSteps, Value: "6240"},
	},
}

func (s *SimulatedSource) devices(patientID uuid.UUID) map[string]model.ConnectedDevice {
	if v, ok := s.state.Get(patientID.String()); ok {
		return v.(map[string]model.ConnectedDevice)
	}
	m := make(map[string]model.ConnectedDevice, len(simulatedDevices))
	for _, d := range simulatedDevices {
		m[d.ID] = d
	}
	return m
}

func (s *SimulatedSource) update(patientID uuid.UUID, deviceID string, fn func(*model.ConnectedDevice) error) (*model.ConnectedDevice, error) {
	devices := s.devices(patientID)
	d, ok := devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	if err := fn(&d); err != nil {
		return nil, err
	}
	next := make(map[string]model.ConnectedDevice, len(devices))
	for k, v := range devices {
		next[k] = v
	}
	next[deviceID] = d
	s.state.SetDefault(patientID.String(), next)
	return &d, nil
}

func (s *SimulatedSource) Scan(_ context.Context, patientID uuid.UUID) ([]model.ConnectedDevice, error) {
	devices := s.devices(patientID)
	out := make([]model.ConnectedDevice, 0, len(simulatedDevices))
	for _, d := range simulatedDevices {
		out = append(out, devices[d.ID])
	}
	return out, nil
}

func (s *SimulatedSource) Connect(_ context.Context, patientID uuid.UUID, deviceID string) (*model.ConnectedDevice, error) {
	now := s.now().UTC()
	return s.update(patientID, deviceID, func(d *model.ConnectedDevice) error {
		d.Connected = true
		d.Paused = false
		d.LastSync = &now
		return nil
	})
}

func (s *SimulatedSource) Disconnect(_ context.Context, patientID uuid.UUID, deviceID string) error {
	_, err := s.update(patientID, deviceID, func(d *model.ConnectedDevice) error {
		d.Connected = false
		d.Paused = false
		return nil
	})
	return err
}

func (s *SimulatedSource) SetPaused(_ context.Context, patientID uuid.UUID, deviceID string, paused bool) error {
	_, err := s.update(patientID, deviceID, func(d *model.ConnectedDevice) error {
		if !d.Connected {
			return ErrDeviceDisconnected
		}
		d.Paused = paused
		return nil
	})
	return err
}

func (s *SimulatedSource) Read(_ context.Context, patientID uuid.UUID) ([]model.WearableReading, error) {
	now := s.now().UTC()
	readings := []model.WearableReading{}
	for _, d := range s.devices(patientID) {
		if !d.Connected || d.Paused {
			continue
		}
		for _, r := range simulatedReadings[d.ID] {
			r.DeviceID = d.ID
			r.Timestamp = now
			readings = append(readings, Classify(r))
		}
	}
	sortReadings(readings)
	return readings, nil
}
