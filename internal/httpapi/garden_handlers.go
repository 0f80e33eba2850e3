package httpapi

import (
	"errors"
	"net/http"
	"time"

	"plantita.org/internal/audit"
	"plantita.org/internal/garden"
)

type myPlantRequest struct {
	PlantID    string    `json:"plant_id"`
	CustomName string    `json:"custom_name"`
	AcquiredAt time.Time `json:"acquired_at"`
	Location   string    `json:"location"`
	Note       string    `json:"note"`
	PhotoURL   string    `json:"photo_url" validate:"omitempty,url"`
	Status     string    `json:"status"`
}

func (req myPlantRequest) params() garden.MyPlantParams {
	return garden.MyPlantParams{
		PlantID:    req.PlantID,
		CustomName: req.CustomName,
		AcquiredAt: req.AcquiredAt,
		Location:   req.Location,
		Note:       req.Note,
		PhotoURL:   req.PhotoURL,
		Status:     req.Status,
	}
}

func (a *API) handleAddMyPlant(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	var req myPlantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	plant, err := a.garden.AddMyPlant(r.Context(), principal.UserID, req.params())
	if err != nil {
		writeGardenError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "garden.plant_added", map[string]any{"my_plant_id": plant.ID})
	writeJSON(w, http.StatusCreated, plant)
}

func (a *API) handleGetMyPlant(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	plant, err := a.garden.GetMyPlant(r.Context(), principal.UserID, r.PathValue("id"))
	if err != nil {
		writeGardenError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (a *API) handleListMyPlants(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	plants, err := a.garden.ListMyPlants(r.Context(), principal.UserID)
	if err != nil {
		writeGardenError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"my_plants": plants})
}

func (a *API) handleUpdateMyPlant(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	var req myPlantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	plant, err := a.garden.UpdateMyPlant(r.Context(), principal.UserID, r.PathValue("id"), req.params())
	if err != nil {
		writeGardenError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (a *API) handleRemoveMyPlant(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	id := r.PathValue("id")
	if err := a.garden.RemoveMyPlant(r.Context(), principal.UserID, id); err != nil {
		writeGardenError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "garden.plant_removed", map[string]any{"my_plant_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// Care tasks ---------------------------------------------------------------

type scheduleTaskRequest struct {
	TaskType     string    `json:"task_type" validate:"required"`
	ScheduledFor time.Time `json:"scheduled_for" validate:"required"`
	Notes        string    `json:"notes"`
}

func (a *API) handleScheduleTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	var req scheduleTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	task, err := a.garden.ScheduleTask(r.Context(), principal.UserID, r.PathValue("id"),
		req.TaskType, req.ScheduledFor, req.Notes)
	if err != nil {
		writeGardenError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (a *API) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	task, err := a.garden.CompleteTask(r.Context(), principal.UserID, r.PathValue("id"))
	if err != nil {
		writeGardenError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleListTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	tasks, err := a.garden.ListTasks(r.Context(), principal.UserID, r.PathValue("id"))
	if err != nil {
		writeGardenError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// Health logs --------------------------------------------------------------

type healthLogRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

func (a *API) handleAppendHealthLog(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	var req healthLogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	log, err := a.garden.AppendHealthLog(r.Context(), principal.UserID, r.PathValue("id"), req.Status, req.Note)
	if err != nil {
		writeGardenError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, log)
}

func (a *API) handleListHealthLogs(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(r)
	if !ok {
		reject(w, reasonMissingCredential, "authentication required")
		return
	}
	logs, err := a.garden.ListHealthLogs(r.Context(), principal.UserID, r.PathValue("id"))
	if err != nil {
		writeGardenError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"health_logs": logs})
}

func writeGardenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, garden.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, garden.ErrTaskDone):
		writeError(w, http.StatusConflict, "task_done", "task already completed")
	case errors.Is(err, garden.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", "invalid input")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
