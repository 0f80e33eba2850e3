package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"plantita.org/internal/ids"
)

// InMemory implements Service with in-process concurrency safety. Used in
// tests and local development; production runs on the Postgres store.
type InMemory struct {
	mu     sync.RWMutex
	plants map[string]*Plant
}

var _ Service = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{plants: make(map[string]*Plant)}
}

func (s *InMemory) CreatePlant(ctx context.Context, params PlantParams) (Plant, error) {
	if strings.TrimSpace(params.ScientificName) == "" {
		return Plant{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plants {
		if strings.EqualFold(p.ScientificName, params.ScientificName) {
			return Plant{}, ErrAlreadyExists
		}
	}
	plant := &Plant{
		ID:             ids.New(),
		ScientificName: params.ScientificName,
		CommonName:     params.CommonName,
		Description:    params.Description,
		Watering:       params.Watering,
		Sunlight:       params.Sunlight,
		WikiURL:        params.WikiURL,
		ImageURL:       params.ImageURL,
		CreatedAt:      time.Now().UTC(),
	}
	s.plants[plant.ID] = plant
	return *plant, nil
}

func (s *InMemory) GetPlant(ctx context.Context, id string) (Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plants[id]
	if !ok {
		return Plant{}, ErrNotFound
	}
	return *p, nil
}

func (s *InMemory) ListPlants(ctx context.Context) ([]Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Plant, 0, len(s.plants))
	for _, p := range s.plants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) SearchPlants(ctx context.Context, query string) ([]Plant, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.ListPlants(ctx)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Plant
	for _, p := range s.plants {
		if strings.Contains(strings.ToLower(p.ScientificName), query) ||
			strings.Contains(strings.ToLower(p.CommonName), query) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) UpdatePlant(ctx context.Context, id string, params PlantParams) (Plant, error) {
	if strings.TrimSpace(params.ScientificName) == "" {
		return Plant{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plants[id]
	if !ok {
		return Plant{}, ErrNotFound
	}
	updated := *p
	updated.ScientificName = params.ScientificName
	updated.CommonName = params.CommonName
	updated.Description = params.Description
	updated.Watering = params.Watering
	updated.Sunlight = params.Sunlight
	updated.WikiURL = params.WikiURL
	updated.ImageURL = params.ImageURL
	s.plants[id] = &updated
	return updated, nil
}

func (s *InMemory) DeletePlant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plants[id]; !ok {
		return ErrNotFound
	}
	delete(s.plants, id)
	return nil
}
