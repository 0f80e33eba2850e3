package garden

import (
	"context"
	"testing"
	"time"
)

func addPlant(t *testing.T, svc *InMemory, userID string) MyPlant {
	t.Helper()
	plant, err := svc.AddMyPlant(context.Background(), userID, MyPlantParams{
		PlantID:    "species-1",
		CustomName: "Fernando",
	})
	if err != nil {
		t.Fatalf("AddMyPlant: %v", err)
	}
	return plant
}

func TestOwnerScoping(t *testing.T) {
	svc := NewInMemory()
	ctx := context.Background()
	plant := addPlant(t, svc, "alice")

	if _, err := svc.GetMyPlant(ctx, "bob", plant.ID); err != ErrNotFound {
		t.Fatalf("foreign read: got %v, want ErrNotFound", err)
	}
	if err := svc.RemoveMyPlant(ctx, "bob", plant.ID); err != ErrNotFound {
		t.Fatalf("foreign delete: got %v, want ErrNotFound", err)
	}
	if _, err := svc.GetMyPlant(ctx, "alice", plant.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	svc := NewInMemory()
	ctx := context.Background()
	plant := addPlant(t, svc, "alice")

	task, err := svc.ScheduleTask(ctx, "alice", plant.ID, "watering", time.Now().Add(24*time.Hour), "top up")
	if err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}
	if task.Status != TaskPending {
		t.Fatalf("status = %s, want %s", task.Status, TaskPending)
	}

	done, err := svc.CompleteTask(ctx, "alice", task.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if done.Status != TaskDone || done.CompletedAt == nil {
		t.Fatalf("unexpected completed task: %+v", done)
	}
	if _, err := svc.CompleteTask(ctx, "alice", task.ID); err != ErrTaskDone {
		t.Fatalf("double completion: got %v, want ErrTaskDone", err)
	}
	if _, err := svc.CompleteTask(ctx, "bob", task.ID); err != ErrNotFound {
		t.Fatalf("foreign completion: got %v, want ErrNotFound", err)
	}
}

func TestRemovePlantCascades(t *testing.T) {
	svc := NewInMemory()
	ctx := context.Background()
	plant := addPlant(t, svc, "alice")

	if _, err := svc.ScheduleTask(ctx, "alice", plant.ID, "misting", time.Now().Add(time.Hour), ""); err != nil {
		t.Fatalf("ScheduleTask: %v", err)
	}
	if _, err := svc.AppendHealthLog(ctx, "alice", plant.ID, "healthy", ""); err != nil {
		t.Fatalf("AppendHealthLog: %v", err)
	}
	if err := svc.RemoveMyPlant(ctx, "alice", plant.ID); err != nil {
		t.Fatalf("RemoveMyPlant: %v", err)
	}
	if len(svc.tasks) != 0 || len(svc.logs) != 0 {
		t.Fatalf("cascade left %d tasks, %d logs", len(svc.tasks), len(svc.logs))
	}
}
