package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"plantita.org/internal/audit"
	"plantita.org/internal/iot"
	"plantita.org/internal/obs"
)

type deviceRequest struct {
	MyPlantID       string `json:"my_plant_id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	ConnectionType  string `json:"connection_type"`
	Location        string `json:"location"`
	FirmwareVersion string `json:"firmware_version"`
}

func (a *API) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	var req deviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	device, err := a.iot.RegisterDevice(r.Context(), principal.UserID, iot.DeviceParams{
		MyPlantID:       req.MyPlantID,
		Name:            req.Name,
		ConnectionType:  req.ConnectionType,
		Location:        req.Location,
		FirmwareVersion: req.FirmwareVersion,
	})
	if err != nil {
		writeIoTError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "iot.device_registered", map[string]any{"device_id": device.ID})
	writeJSON(w, http.StatusCreated, device)
}

func (a *API) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	device, err := a.iot.GetDevice(r.Context(), principal.UserID, r.PathValue("id"))
	if err != nil {
		writeIoTError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (a *API) handleListDevices(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	devices, err := a.iot.ListDevices(r.Context(), principal.UserID)
	if err != nil {
		writeIoTError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

type deviceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (a *API) handleUpdateDeviceStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	var req deviceStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	device, err := a.iot.UpdateDeviceStatus(r.Context(), principal.UserID, r.PathValue("id"), req.Status)
	if err != nil {
		writeIoTError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (a *API) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	id := r.PathValue("id")
	if err := a.iot.RemoveDevice(r.Context(), principal.UserID, id); err != nil {
		writeIoTError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "iot.device_removed", map[string]any{"device_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// Sensors ------------------------------------------------------------------

type sensorRequest struct {
	Type     string  `json:"type" validate:"required"`
	Unit     string  `json:"unit"`
	RangeMin float64 `json:"range_min"`
	RangeMax float64 `json:"range_max"`
	Model    string  `json:"model"`
}

func (a *API) handleAddSensor(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	var req sensorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	sensor, err := a.iot.AddSensor(r.Context(), principal.UserID, r.PathValue("id"), iot.SensorParams{
		Type:     req.Type,
		Unit:     req.Unit,
		RangeMin: req.RangeMin,
		RangeMax: req.RangeMax,
		Model:    req.Model,
	})
	if err != nil {
		writeIoTError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sensor)
}

func (a *API) handleListSensors(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	sensors, err := a.iot.ListSensors(r.Context(), principal.UserID, r.PathValue("id"))
	if err != nil {
		writeIoTError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensors": sensors})
}

// Readings -----------------------------------------------------------------

type readingRequest struct {
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (a *API) handleRecordReading(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	var req readingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	reading, err := a.iot.RecordReading(r.Context(), principal.UserID, r.PathValue("id"), req.Value, req.RecordedAt)
	if err != nil {
		writeIoTError(w, err)
		return
	}
	obs.ReadingIngested()
	writeJSON(w, http.StatusCreated, reading)
}

func (a *API) handleListReadings(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	q := r.URL.Query()
	var since time.Time
	if raw := q.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "since must be RFC 3339")
			return
		}
		since = parsed
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	readings, err := a.iot.ListReadings(r.Context(), principal.UserID, r.PathValue("id"), since, limit)
	if err != nil {
		writeIoTError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"readings": readings})
}

func (a *API) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	reading, err := a.iot.LatestReading(r.Context(), principal.UserID, r.PathValue("id"))
	if err != nil {
		writeIoTError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func writeIoTError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, iot.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, iot.ErrOutOfRange):
		writeError(w, http.StatusUnprocessableEntity, "out_of_range", "reading outside sensor range")
	case errors.Is(err, iot.ErrSensorInactive):
		writeError(w, http.StatusConflict, "sensor_inactive", "sensor is inactive")
	case errors.Is(err, iot.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", "invalid input")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
