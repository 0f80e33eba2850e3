package iot

import (
	"context"
	"errors"
	"time"
)

// Device statuses.
const (
	DeviceActive   = "active"
	DeviceInactive = "inactive"
	DeviceFaulty   = "faulty"
)

// Device is a physical unit attached to one of the user's plants.
type Device struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	MyPlantID       string    `json:"my_plant_id"`
	Name            string    `json:"name"`
	ConnectionType  string    `json:"connection_type,omitempty"`
	Location        string    `json:"location,omitempty"`
	ActivatedAt     time.Time `json:"activated_at"`
	Status          string    `json:"status"`
	FirmwareVersion string    `json:"firmware_version,omitempty"`
}

// DeviceParams carries the writable fields for device registration.
type DeviceParams struct {
	MyPlantID       string
	Name            string
	ConnectionType  string
	Location        string
	FirmwareVersion string
}

// Sensor measures one physical quantity on a device.
type Sensor struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"device_id"`
	Type        string    `json:"type"`
	Unit        string    `json:"unit"`
	RangeMin    float64   `json:"range_min"`
	RangeMax    float64   `json:"range_max"`
	Model       string    `json:"model,omitempty"`
	InstalledAt time.Time `json:"installed_at"`
	Active      bool      `json:"active"`
}

// SensorParams carries the writable fields for sensor registration.
type SensorParams struct {
	Type     string
	Unit     string
	RangeMin float64
	RangeMax float64
	Model    string
}

// Reading is a single measured value.
type Reading struct {
	ID         string    `json:"id"`
	SensorID   string    `json:"sensor_id"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

var (
	ErrNotFound       = errors.New("iot: not found")
	ErrInvalidInput   = errors.New("iot: invalid input")
	ErrOutOfRange     = errors.New("iot: reading outside sensor range")
	ErrSensorInactive = errors.New("iot: sensor is inactive")
)

// Service defines device, sensor and ingestion operations. Device access is
// scoped to the owning user; readings are validated against the sensor's
// configured range before they are stored.
type Service interface {
	RegisterDevice(ctx context.Context, userID string, params DeviceParams) (Device, error)
	GetDevice(ctx context.Context, userID, id string) (Device, error)
	ListDevices(ctx context.Context, userID string) ([]Device, error)
	UpdateDeviceStatus(ctx context.Context, userID, id, status string) (Device, error)
	RemoveDevice(ctx context.Context, userID, id string) error

	AddSensor(ctx context.Context, userID, deviceID string, params SensorParams) (Sensor, error)
	ListSensors(ctx context.Context, userID, deviceID string) ([]Sensor, error)

	RecordReading(ctx context.Context, userID, sensorID string, value float64, recordedAt time.Time) (Reading, error)
	ListReadings(ctx context.Context, userID, sensorID string, since time.Time, limit int) ([]Reading, error)
	LatestReading(ctx context.Context, userID, sensorID string) (Reading, error)
}
