package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"plantita.org/internal/garden"
	"plantita.org/internal/ids"
)

const myPlantColumns = `id, user_id, plant_id, custom_name, acquired_at, location, note, photo_url, status`

func (s *Store) AddMyPlant(ctx context.Context, userID string, params garden.MyPlantParams) (garden.MyPlant, error) {
	if userID == "" || strings.TrimSpace(params.PlantID) == "" {
		return garden.MyPlant{}, garden.ErrInvalidInput
	}
	acquired := params.AcquiredAt
	if acquired.IsZero() {
		acquired = time.Now().UTC()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into my_plants(id, user_id, plant_id, custom_name, acquired_at, location, note, photo_url, status)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9)
		returning `+myPlantColumns,
		ids.New(), userID, params.PlantID, params.CustomName, acquired,
		params.Location, params.Note, params.PhotoURL, params.Status,
	)
	return scanMyPlant(row)
}

func (s *Store) GetMyPlant(ctx context.Context, userID, id string) (garden.MyPlant, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+myPlantColumns+` from my_plants where id=$1 and user_id=$2`, id, userID)
	return scanMyPlant(row)
}

func (s *Store) ListMyPlants(ctx context.Context, userID string) ([]garden.MyPlant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+myPlantColumns+` from my_plants where user_id=$1 order by acquired_at asc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []garden.MyPlant
	for rows.Next() {
		var p garden.MyPlant
		if err := rows.Scan(&p.ID, &p.UserID, &p.PlantID, &p.CustomName, &p.AcquiredAt,
			&p.Location, &p.Note, &p.PhotoURL, &p.Status); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateMyPlant(ctx context.Context, userID, id string, params garden.MyPlantParams) (garden.MyPlant, error) {
	row := s.db.QueryRowContext(ctx, `
		update my_plants
		set custom_name = coalesce(nullif($3,''), custom_name),
		    location    = coalesce(nullif($4,''), location),
		    note        = coalesce(nullif($5,''), note),
		    photo_url   = coalesce(nullif($6,''), photo_url),
		    status      = coalesce(nullif($7,''), status)
		where id=$1 and user_id=$2
		returning `+myPlantColumns,
		id, userID, params.CustomName, params.Location, params.Note, params.PhotoURL, params.Status,
	)
	return scanMyPlant(row)
}

func (s *Store) RemoveMyPlant(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from my_plants where id=$1 and user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return garden.ErrNotFound
	}
	return nil
}

// Care tasks ---------------------------------------------------------------

const careTaskColumns = `id, my_plant_id, task_type, scheduled_for, completed_at, status, notes`

func (s *Store) ScheduleTask(ctx context.Context, userID, myPlantID, taskType string, scheduledFor time.Time, notes string) (garden.CareTask, error) {
	if strings.TrimSpace(taskType) == "" || scheduledFor.IsZero() {
		return garden.CareTask{}, garden.ErrInvalidInput
	}
	if _, err := s.GetMyPlant(ctx, userID, myPlantID); err != nil {
		return garden.CareTask{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into care_tasks(id, my_plant_id, task_type, scheduled_for, status, notes)
		values($1,$2,$3,$4,$5,$6)
		returning `+careTaskColumns,
		ids.New(), myPlantID, taskType, scheduledFor.UTC(), garden.TaskPending, notes,
	)
	return scanCareTask(row)
}

func (s *Store) CompleteTask(ctx context.Context, userID, taskID string) (garden.CareTask, error) {
	row := s.db.QueryRowContext(ctx, `
		update care_tasks t
		set status=$3, completed_at=now()
		from my_plants p
		where t.id=$1 and t.my_plant_id=p.id and p.user_id=$2 and t.status<>$3
		returning t.id, t.my_plant_id, t.task_type, t.scheduled_for, t.completed_at, t.status, t.notes`,
		taskID, userID, garden.TaskDone,
	)
	task, err := scanCareTask(row)
	if errors.Is(err, garden.ErrNotFound) {
		// Distinguish an already-completed task from a missing or foreign one.
		var done bool
		checkErr := s.db.QueryRowContext(ctx, `
			select t.status=$3 from care_tasks t
			join my_plants p on p.id=t.my_plant_id
			where t.id=$1 and p.user_id=$2`,
			taskID, userID, garden.TaskDone).Scan(&done)
		if checkErr == nil && done {
			return garden.CareTask{}, garden.ErrTaskDone
		}
		return garden.CareTask{}, garden.ErrNotFound
	}
	return task, err
}

func (s *Store) ListTasks(ctx context.Context, userID, myPlantID string) ([]garden.CareTask, error) {
	if _, err := s.GetMyPlant(ctx, userID, myPlantID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`select `+careTaskColumns+` from care_tasks where my_plant_id=$1 order by scheduled_for asc`, myPlantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []garden.CareTask
	for rows.Next() {
		var t garden.CareTask
		if err := rows.Scan(&t.ID, &t.MyPlantID, &t.TaskType, &t.ScheduledFor,
			&t.CompletedAt, &t.Status, &t.Notes); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Health logs --------------------------------------------------------------

func (s *Store) AppendHealthLog(ctx context.Context, userID, myPlantID, status, note string) (garden.HealthLog, error) {
	if strings.TrimSpace(status) == "" {
		return garden.HealthLog{}, garden.ErrInvalidInput
	}
	if _, err := s.GetMyPlant(ctx, userID, myPlantID); err != nil {
		return garden.HealthLog{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into plant_health_logs(id, my_plant_id, status, note)
		values($1,$2,$3,$4)
		returning id, my_plant_id, status, note, observed_at`,
		ids.New(), myPlantID, status, note,
	)
	var log garden.HealthLog
	err := row.Scan(&log.ID, &log.MyPlantID, &log.Status, &log.Note, &log.ObservedAt)
	if err != nil {
		return garden.HealthLog{}, err
	}
	return log, nil
}

func (s *Store) ListHealthLogs(ctx context.Context, userID, myPlantID string) ([]garden.HealthLog, error) {
	if _, err := s.GetMyPlant(ctx, userID, myPlantID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`select id, my_plant_id, status, note, observed_at
		 from plant_health_logs where my_plant_id=$1 order by observed_at asc`, myPlantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []garden.HealthLog
	for rows.Next() {
		var log garden.HealthLog
		if err := rows.Scan(&log.ID, &log.MyPlantID, &log.Status, &log.Note, &log.ObservedAt); err != nil {
			return nil, err
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

func scanMyPlant(row *sql.Row) (garden.MyPlant, error) {
	var p garden.MyPlant
	err := row.Scan(&p.ID, &p.UserID, &p.PlantID, &p.CustomName, &p.AcquiredAt,
		&p.Location, &p.Note, &p.PhotoURL, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return garden.MyPlant{}, garden.ErrNotFound
	}
	if err != nil {
		return garden.MyPlant{}, err
	}
	return p, nil
}

func scanCareTask(row *sql.Row) (garden.CareTask, error) {
	var t garden.CareTask
	err := row.Scan(&t.ID, &t.MyPlantID, &t.TaskType, &t.ScheduledFor,
		&t.CompletedAt, &t.Status, &t.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return garden.CareTask{}, garden.ErrNotFound
	}
	if err != nil {
		return garden.CareTask{}, err
	}
	return t, nil
}
