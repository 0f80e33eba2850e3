package garden

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
	mu     sync.RWMutex
	plants map[string]*MyPlant
	tasks  map[string]*CareTask
	logs   map[string]*HealthLog
}

var _ Service = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		plants: make(map[string]*MyPlant),
		tasks:  make(map[string]*CareTask),
		logs:   make(map[string]*HealthLog),
	}
}

func (s *InMemory) AddMyPlant(ctx context.Context, userID string, params MyPlantParams) (MyPlant, error) {
	if userID == "" || strings.TrimSpace(params.PlantID) == "" {
		return MyPlant{}, ErrInvalidInput
	}
	acquired := params.AcquiredAt
	if acquired.IsZero() {
		acquired = time.Now().UTC()
	}
	plant := &MyPlant{
		ID:         ids.New(),
		UserID:     userID,
		PlantID:    params.PlantID,
		CustomName: params.CustomName,
		AcquiredAt: acquired,
		Location:   params.Location,
		Note:       params.Note,
		PhotoURL:   params.PhotoURL,
		Status:     params.Status,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plants[plant.ID] = plant
	return *plant, nil
}

// owned returns the plant only when it belongs to the user; foreign rows are
// indistinguishable from missing ones.
func (s *InMemory) owned(userID, id string) (*MyPlant, bool) {
	p, ok := s.plants[id]
	if !ok || p.UserID != userID {
		return nil, false
	}
	return p, true
}

func (s *InMemory) GetMyPlant(ctx context.Context, userID, id string) (MyPlant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.owned(userID, id)
	if !ok {
		return MyPlant{}, ErrNotFound
	}
	return *p, nil
}

func (s *InMemory) ListMyPlants(ctx context.Context, userID string) ([]MyPlant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []MyPlant
	for _, p := range s.plants {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) UpdateMyPlant(ctx context.Context, userID, id string, params MyPlantParams) (MyPlant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.owned(userID, id)
	if !ok {
		return MyPlant{}, ErrNotFound
	}
	updated := *p
	if params.CustomName != "" {
		updated.CustomName = params.CustomName
	}
	if params.Location != "" {
		updated.Location = params.Location
	}
	if params.Note != "" {
		updated.Note = params.Note
	}
	if params.PhotoURL != "" {
		updated.PhotoURL = params.PhotoURL
	}
	if params.Status != "" {
		updated.Status = params.Status
	}
	s.plants[id] = &updated
	return updated, nil
}

func (s *InMemory) RemoveMyPlant(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owned(userID, id); !ok {
		return ErrNotFound
	}
	delete(s.plants, id)
	for tid, task := range s.tasks {
		if task.MyPlantID == id {
			delete(s.tasks, tid)
		}
	}
	for lid, log := range s.logs {
		if log.MyPlantID == id {
			delete(s.logs, lid)
		}
	}
	return nil
}

func (s *InMemory) ScheduleTask(ctx context.Context, userID, myPlantID, taskType string, scheduledFor time.Time, notes string) (CareTask, error) {
	if strings.TrimSpace(taskType) == "" || scheduledFor.IsZero() {
		return CareTask{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owned(userID, myPlantID); !ok {
		return CareTask{}, ErrNotFound
	}
	task := &CareTask{
		ID:           ids.New(),
		MyPlantID:    myPlantID,
		TaskType:     taskType,
		ScheduledFor: scheduledFor.UTC(),
		Status:       TaskPending,
		Notes:        notes,
	}
	s.tasks[task.ID] = task
	return *task, nil
}

func (s *InMemory) CompleteTask(ctx context.Context, userID, taskID string) (CareTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return CareTask{}, ErrNotFound
	}
	if _, ok := s.owned(userID, task.MyPlantID); !ok {
		return CareTask{}, ErrNotFound
	}
	if task.Status == TaskDone {
		return CareTask{}, ErrTaskDone
	}
	now := time.Now().UTC()
	done := *task
	done.Status = TaskDone
	done.CompletedAt = &now
	s.tasks[taskID] = &done
	return done, nil
}

func (s *InMemory) ListTasks(ctx context.Context, userID, myPlantID string) ([]CareTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.owned(userID, myPlantID); !ok {
		return nil, ErrNotFound
	}
	var out []CareTask
	for _, task := range s.tasks {
		if task.MyPlantID == myPlantID {
			out = append(out, *task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (s *InMemory) AppendHealthLog(ctx context.Context, userID, myPlantID, status, note string) (HealthLog, error) {
	if strings.TrimSpace(status) == "" {
		return HealthLog{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owned(userID, myPlantID); !ok {
		return HealthLog{}, ErrNotFound
	}
	log := &HealthLog{
		ID:         ids.New(),
		MyPlantID:  myPlantID,
		Status:     status,
		Note:       note,
		ObservedAt: time.Now().UTC(),
	}
	s.logs[log.ID] = log
	return *log, nil
}

func (s *InMemory) ListHealthLogs(ctx context.Context, userID, myPlantID string) ([]HealthLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.owned(userID, myPlantID); !ok {
		return nil, ErrNotFound
	}
	var out []HealthLog
	for _, log := range s.logs {
		if log.MyPlantID == myPlantID {
			out = append(out, *log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}
