package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"plantita.org/internal/audit"
	"plantita.org/internal/catalog"
)

type plantRequest struct {
	ScientificName string `json:"scientific_name" validate:"required"`
	CommonName     string `json:"common_name"`
	Description    string `json:"description"`
	Watering       string `json:"watering"`
	Sunlight       string `json:"sunlight"`
	WikiURL        string `json:"wiki_url" validate:"omitempty,url"`
	ImageURL       string `json:"image_url" validate:"omitempty,url"`
}

func (req plantRequest) params() catalog.PlantParams {
	return catalog.PlantParams{
		ScientificName: req.ScientificName,
		CommonName:     req.CommonName,
		Description:    req.Description,
		Watering:       req.Watering,
		Sunlight:       req.Sunlight,
		WikiURL:        req.WikiURL,
		ImageURL:       req.ImageURL,
	}
}

func (a *API) handleCreatePlant(w http.ResponseWriter, r *http.Request) {
	var req plantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	plant, err := a.catalog.CreatePlant(r.Context(), req.params())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "catalog.plant_created", map[string]any{"plant_id": plant.ID})
	writeJSON(w, http.StatusCreated, plant)
}

func (a *API) handleGetPlant(w http.ResponseWriter, r *http.Request) {
	plant, err := a.catalog.GetPlant(r.Context(), r.PathValue("id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (a *API) handleListPlants(w http.ResponseWriter, r *http.Request) {
	plants, err := a.catalog.ListPlants(r.Context())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plants": plants})
}

func (a *API) handleSearchPlants(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query parameter q is required")
		return
	}
	plants, err := a.catalog.SearchPlants(r.Context(), query)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plants": plants})
}

func (a *API) handleUpdatePlant(w http.ResponseWriter, r *http.Request) {
	var req plantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	plant, err := a.catalog.UpdatePlant(r.Context(), r.PathValue("id"), req.params())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "catalog.plant_updated", map[string]any{"plant_id": plant.ID})
	writeJSON(w, http.StatusOK, plant)
}

func (a *API) handleDeletePlant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.catalog.DeletePlant(r.Context(), id); err != nil {
		writeCatalogError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "catalog.plant_deleted", map[string]any{"plant_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "plant not found")
	case errors.Is(err, catalog.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", "scientific name already registered")
	case errors.Is(err, catalog.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", "invalid plant data")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
