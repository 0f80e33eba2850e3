package catalog

import (
	"context"
	"errors"
	"time"
)

// Plant is a species entry in the shared catalog, referenced by every
// user-owned plant in the garden module.
type Plant struct {
	ID             string    `json:"id"`
	ScientificName string    `json:"scientific_name"`
	CommonName     string    `json:"common_name"`
	Description    string    `json:"description,omitempty"`
	Watering       string    `json:"watering,omitempty"`
	Sunlight       string    `json:"sunlight,omitempty"`
	WikiURL        string    `json:"wiki_url,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PlantParams carries the writable fields for create and update.
type PlantParams struct {
	ScientificName string
	CommonName     string
	Description    string
	Watering       string
	Sunlight       string
	WikiURL        string
	ImageURL       string
}

var (
	ErrNotFound      = errors.New("catalog: plant not found")
	ErrAlreadyExists = errors.New("catalog: scientific name already registered")
	ErrInvalidInput  = errors.New("catalog: invalid input")
)

// Service defines catalog operations. Species are shared, so mutations are
// restricted to admins at the HTTP layer.
type Service interface {
	CreatePlant(ctx context.Context, params PlantParams) (Plant, error)
	GetPlant(ctx context.Context, id string) (Plant, error)
	ListPlants(ctx context.Context) ([]Plant, error)
	SearchPlants(ctx context.Context, query string) ([]Plant, error)
	UpdatePlant(ctx context.Context, id string, params PlantParams) (Plant, error)
	DeletePlant(ctx context.Context, id string) error
}
