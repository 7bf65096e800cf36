package wearable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

// RedisSource keeps devices in one hash per patient and the latest reading of
// each type in one hash per device. Readings expire after ttl.
type RedisSource struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisSource(client *redis.Client, ttl time.Duration) *RedisSource {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSource{client: client, ttl: ttl, now: time.Now}
}

func devicesKey(patientID uuid.UUID) string {
	return fmt.Sprintf("wearable:%s:devices", patientID)
}

func readingsKey(patientID uuid.UUID, deviceID string) string {
	return fmt.Sprintf("wearable:%s:readings:%s", patientID, deviceID)
}

func (s *RedisSource) Scan(ctx context.Context, patientID uuid.UUID) ([]model.ConnectedDevice, error) {
	raw, err := s.client.HGetAll(ctx, devicesKey(patientID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	devices := make([]model.ConnectedDevice, 0, len(raw))
	for _, v := range raw {
		var d model.ConnectedDevice
		if err := json.Unmarshal([]byte(v), &d); err != nil {
			continue
		}
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

func (s *RedisSource) device(ctx context.Context, patientID uuid.UUID, deviceID string) (*model.ConnectedDevice, error) {
	v, err := s.client.HGet(ctx, devicesKey(patientID), deviceID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	var d model.ConnectedDevice
	if err := json.Unmarshal([]byte(v), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *RedisSource) save(ctx context.Context, patientID uuid.UUID, d *model.ConnectedDevice) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, devicesKey(patientID), d.ID, data).Err()
}

// Connect registers the device if it is new and marks it connected and unpaused.
func (s *RedisSource) Connect(ctx context.Context, patientID uuid.UUID, deviceID string) (*model.ConnectedDevice, error) {
	d, err := s.device(ctx, patientID, deviceID)
	if errors.Is(err, ErrDeviceNotFound) {
		d = &model.ConnectedDevice{ID: deviceID, Name: deviceID}
	} else if err != nil {
		return nil, err
	}
	d.Connected = true
	d.Paused = false
	if err := s.save(ctx, patientID, d); err != nil {
		return nil, fmt.Errorf("failed to connect device: %w", err)
	}
	return d, nil
}

func (s *RedisSource) Disconnect(ctx context.Context, patientID uuid.UUID, deviceID string) error {
	d, err := s.device(ctx, patientID, deviceID)
	if err != nil {
		return err
	}
	d.Connected = false
	d.Paused = false
	pipe := s.client.TxPipeline()
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	pipe.HSet(ctx, devicesKey(patientID), d.ID, data)
	pipe.Del(ctx, readingsKey(patientID, deviceID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSource) SetPaused(ctx context.Context, patientID uuid.UUID, deviceID string, paused bool) error {
	d, err := s.device(ctx, patientID, deviceID)
	if err != nil {
		return err
	}
	if !d.Connected {
		return ErrDeviceDisconnected
	}
	d.Paused = paused
	return s.save(ctx, patientID, d)
}

// Record stores pushed readings, keeping the newest reading per type.
// Pushing from an unknown device connects it.
func (s *RedisSource) Record(ctx context.Context, patientID uuid.UUID, deviceID string, readings []model.WearableReading) error {
	d, err := s.device(ctx, patientID, deviceID)
	if errors.Is(err, ErrDeviceNotFound) {
		d = &model.ConnectedDevice{ID: deviceID, Name: deviceID, Connected: true}
	} else if err != nil {
		return err
	}
	if !d.Connected {
		return ErrDeviceDisconnected
	}

	now := s.now().UTC()
	d.LastSync = &now
	deviceData, err := json.Marshal(d)
	if err != nil {
		return err
	}

	fields := make(map[string]interface{}, len(readings))
	for _, r := range readings {
		r.DeviceID = deviceID
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		data, err := json.Marshal(Classify(r))
		if err != nil {
			return err
		}
		fields[string(r.Type)] = data
	}

	key := readingsKey(patientID, deviceID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, devicesKey(patientID), d.ID, deviceData)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record readings: %w", err)
	}
	return nil
}

func (s *RedisSource) Read(ctx context.Context, patientID uuid.UUID) ([]model.WearableReading, error) {
	devices, err := s.Scan(ctx, patientID)
	if err != nil {
		return nil, err
	}
	readings := []model.WearableReading{}
	for _, d := range devices {
		if !d.Connected || d.Paused {
			continue
		}
		raw, err := s.client.HGetAll(ctx, readingsKey(patientID, d.ID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read device %s: %w", d.ID, err)
		}
		for _, v := range raw {
			var r model.WearableReading
			if err := json.Unmarshal([]byte(v), &r); err != nil {
				continue
			}
			readings = append(readings, r)
		}
	}
	sortReadings(readings)
	return readings, nil
}
