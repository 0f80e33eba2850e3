package garden

import (
	"context"
	"errors"
	"time"
)

// Care task statuses.
const (
	TaskPending = "pending"
	TaskDone    = "done"
)

// MyPlant is a catalog species adopted into a user's collection.
type MyPlant struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	PlantID    string    `json:"plant_id"`
	CustomName string    `json:"custom_name"`
	AcquiredAt time.Time `json:"acquired_at"`
	Location   string    `json:"location,omitempty"`
	Note       string    `json:"note,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	Status     string    `json:"status,omitempty"`
}

// MyPlantParams carries the writable fields for create and update.
type MyPlantParams struct {
	PlantID    string
	CustomName string
	AcquiredAt time.Time
	Location   string
	Note       string
	PhotoURL   string
	Status     string
}

// CareTask is a scheduled chore for one of the user's plants.
type CareTask struct {
	ID           string     `json:"id"`
	MyPlantID    string     `json:"my_plant_id"`
	TaskType     string     `json:"task_type"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
}

// HealthLog is an observation appended to a plant's history.
type HealthLog struct {
	ID         string    `json:"id"`
	MyPlantID  string    `json:"my_plant_id"`
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

var (
	ErrNotFound     = errors.New("garden: not found")
	ErrInvalidInput = errors.New("garden: invalid input")
	ErrTaskDone     = errors.New("garden: task already completed")
)

// Service defines collection and care operations. All reads and writes are
// scoped to the owning user; handlers pass the authenticated user id and the
// store never returns another user's rows.
type Service interface {
	AddMyPlant(ctx context.Context, userID string, params MyPlantParams) (MyPlant, error)
	GetMyPlant(ctx context.Context, userID, id string) (MyPlant, error)
	ListMyPlants(ctx context.Context, userID string) ([]MyPlant, error)
	UpdateMyPlant(ctx context.Context, userID, id string, params MyPlantParams) (MyPlant, error)
	RemoveMyPlant(ctx context.Context, userID, id string) error

	ScheduleTask(ctx context.Context, userID, myPlantID, taskType string, scheduledFor time.Time, notes string) (CareTask, error)
	CompleteTask(ctx context.Context, userID, taskID string) (CareTask, error)
	ListTasks(ctx context.Context, userID, myPlantID string) ([]CareTask, error)

	AppendHealthLog(ctx context.Context, userID, myPlantID, status, note string) (HealthLog, error)
	ListHealthLogs(ctx context.Context, userID, myPlantID string) ([]HealthLog, error)
}
