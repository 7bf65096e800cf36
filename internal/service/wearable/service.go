package wearable

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
)

// Service exposes a Source to the owning patient. Readings are advisory context only.
type Service struct {
	source Source
	log    *logger.Logger
}

func NewService(source Source, log *logger.Logger) *Service {
	return &Service{source: source, log: log}
}

func requirePatient(actor *model.Actor) error {
	if actor == nil {
		return apperrors.AuthenticationRequired("")
	}
	if !actor.IsPatient() {
		return apperrors.Forbidden("only patients manage wearable devices")
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDeviceNotFound):
		return apperrors.NotFound("device", err)
	case errors.Is(err, ErrDeviceDisconnected):
		return apperrors.Conflict("device is not connected", err)
	default:
		return apperrors.Unavailable("wearable source unavailable", err)
	}
}

func (s *Service) Devices(ctx context.Context, actor *model.Actor) ([]model.ConnectedDevice, error) {
	if err := requirePatient(actor); err != nil {
		return nil, err
	}
	devices, err := s.source.Scan(ctx, actor.ID)
	return devices, translate(err)
}

func (s *Service) Connect(ctx context.Context, actor *model.Actor, deviceID string) (*model.ConnectedDevice, error) {
	if err := requirePatient(actor); err != nil {
		return nil, err
	}
	d, err := s.source.Connect(ctx, actor.ID, deviceID)
	if err != nil {
		return nil, translate(err)
	}
	s.log.Info("wearable connected", "patient_id", actor.ID.String(), "device_id", deviceID)
	return d, nil
}

func (s *Service) Disconnect(ctx context.Context, actor *model.Actor, deviceID string) error {
	if err := requirePatient(actor); err != nil {
		return err
	}
	return translate(s.source.Disconnect(ctx, actor.ID, deviceID))
}

func (s *Service) SetPaused(ctx context.Context, actor *model.Actor, deviceID string, paused bool) error {
	if err := requirePatient(actor); err != nil {
		return err
	}
	return translate(s.source.SetPaused(ctx, actor.ID, deviceID, paused))
}

func (s *Service) Readings(ctx context.Context, actor *model.Actor) ([]model.WearableReading, error) {
	if err := requirePatient(actor); err != nil {
		return nil, err
	}
	readings, err := s.source.Read(ctx, actor.ID)
	return readings, translate(err)
}

func (s *Service) Push(ctx context.Context, actor *model.Actor, req model.PushReadingsRequest) error {
	if err := requirePatient(actor); err != nil {
		return err
	}
	recorder, ok := s.source.(Recorder)
	if !ok {
		return apperrors.BadRequest("the configured wearable source does not accept pushed readings", nil)
	}
	if len(req.Readings) == 0 {
		return apperrors.ValidationFailed("at least one reading is required", nil)
	}
	return translate(recorder.Record(ctx, actor.ID, req.DeviceID, req.Readings))
}

// ReadFor returns a patient's readings for a clinician view. A failing source
// degrades to no readings.
func (s *Service) ReadFor(ctx context.Context, patientID uuid.UUID) []model.WearableReading {
	readings, err := s.source.Read(ctx, patientID)
	if err != nil {
		s.log.Error(err, "failed to read wearable data", "patient_id", patientID.String())
		return []model.WearableReading{}
	}
	return readings
}
