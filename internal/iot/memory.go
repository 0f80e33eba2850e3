package iot

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"plantita.org/internal/ids"
)

// InMemory implements Service with in-process concurrency safety.
type InMemory struct {
	mu       sync.RWMutex
	devices  map[string]*Device
	sensors  map[string]*Sensor
	readings map[string][]Reading // keyed by sensor id, append-ordered
}

var _ Service = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		devices:  make(map[string]*Device),
		sensors:  make(map[string]*Sensor),
		readings: make(map[string][]Reading),
	}
}

func (s *InMemory) RegisterDevice(ctx context.Context, userID string, params DeviceParams) (Device, error) {
	if userID == "" || strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.MyPlantID) == "" {
		return Device{}, ErrInvalidInput
	}
	device := &Device{
		ID:              ids.New(),
		UserID:          userID,
		MyPlantID:       params.MyPlantID,
		Name:            params.Name,
		ConnectionType:  params.ConnectionType,
		Location:        params.Location,
		ActivatedAt:     time.Now().UTC(),
		Status:          DeviceActive,
		FirmwareVersion: params.FirmwareVersion,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[device.ID] = device
	return *device, nil
}

func (s *InMemory) ownedDevice(userID, id string) (*Device, bool) {
	d, ok := s.devices[id]
	if !ok || d.UserID != userID {
		return nil, false
	}
	return d, true
}

// ownedSensor resolves a sensor through its device to enforce user scoping.
func (s *InMemory) ownedSensor(userID, sensorID string) (*Sensor, bool) {
	sensor, ok := s.sensors[sensorID]
	if !ok {
		return nil, false
	}
	if _, ok := s.ownedDevice(userID, sensor.DeviceID); !ok {
		return nil, false
	}
	return sensor, true
}

func (s *InMemory) GetDevice(ctx context.Context, userID, id string) (Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.ownedDevice(userID, id)
	if !ok {
		return Device{}, ErrNotFound
	}
	return *d, nil
}

func (s *InMemory) ListDevices(ctx context.Context, userID string) ([]Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Device
	for _, d := range s.devices {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) UpdateDeviceStatus(ctx context.Context, userID, id, status string) (Device, error) {
	switch status {
	case DeviceActive, DeviceInactive, DeviceFaulty:
	default:
		return Device{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.ownedDevice(userID, id)
	if !ok {
		return Device{}, ErrNotFound
	}
	updated := *d
	updated.Status = status
	s.devices[id] = &updated
	return updated, nil
}

func (s *InMemory) RemoveDevice(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownedDevice(userID, id); !ok {
		return ErrNotFound
	}
	delete(s.devices, id)
	for sid, sensor := range s.sensors {
		if sensor.DeviceID == id {
			delete(s.sensors, sid)
			delete(s.readings, sid)
		}
	}
	return nil
}

func (s *InMemory) AddSensor(ctx context.Context, userID, deviceID string, params SensorParams) (Sensor, error) {
	if strings.TrimSpace(params.Type) == "" || params.RangeMax <= params.RangeMin {
		return Sensor{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownedDevice(userID, deviceID); !ok {
		return Sensor{}, ErrNotFound
	}
	sensor := &Sensor{
		ID:          ids.New(),
		DeviceID:    deviceID,
		Type:        params.Type,
		Unit:        params.Unit,
		RangeMin:    params.RangeMin,
		RangeMax:    params.RangeMax,
		Model:       params.Model,
		InstalledAt: time.Now().UTC(),
		Active:      true,
	}
	s.sensors[sensor.ID] = sensor
	return *sensor, nil
}

func (s *InMemory) ListSensors(ctx context.Context, userID, deviceID string) ([]Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ownedDevice(userID, deviceID); !ok {
		return nil, ErrNotFound
	}
	var out []Sensor
	for _, sensor := range s.sensors {
		if sensor.DeviceID == deviceID {
			out = append(out, *sensor)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) RecordReading(ctx context.Context, userID, sensorID string, value float64, recordedAt time.Time) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sensor, ok := s.ownedSensor(userID, sensorID)
	if !ok {
		return Reading{}, ErrNotFound
	}
	if !sensor.Active {
		return Reading{}, ErrSensorInactive
	}
	if value < sensor.RangeMin || value > sensor.RangeMax {
		return Reading{}, ErrOutOfRange
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	reading := Reading{
		ID:         ids.New(),
		SensorID:   sensorID,
		Value:      value,
		RecordedAt: recordedAt.UTC(),
	}
	s.readings[sensorID] = append(s.readings[sensorID], reading)
	return reading, nil
}

func (s *InMemory) ListReadings(ctx context.Context, userID, sensorID string, since time.Time, limit int) ([]Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ownedSensor(userID, sensorID); !ok {
		return nil, ErrNotFound
	}
	var out []Reading
	for _, r := range s.readings[sensorID] {
		if !since.IsZero() && r.RecordedAt.Before(since) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *InMemory) LatestReading(ctx context.Context, userID, sensorID string) (Reading, error) {
	readings, err := s.ListReadings(ctx, userID, sensorID, time.Time{}, 0)
	if err != nil {
		return Reading{}, err
	}
	if len(readings) == 0 {
		return Reading{}, ErrNotFound
	}
	return readings[len(readings)-1], nil
}
