package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"plantita.org/internal/ids"
	"plantita.org/internal/iot"
)

const deviceColumns = `id, user_id, my_plant_id, name, connection_type, location, activated_at, status, firmware_version`

func (s *Store) RegisterDevice(ctx context.Context, userID string, params iot.DeviceParams) (iot.Device, error) {
	if userID == "" || strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.MyPlantID) == "" {
		return iot.Device{}, iot.ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		insert into iot_devices(id, user_id, my_plant_id, name, connection_type, location, status, firmware_version)
		values($1,$2,$3,$4,$5,$6,$7,$8)
		returning `+deviceColumns,
		ids.New(), userID, params.MyPlantID, params.Name, params.ConnectionType,
		params.Location, iot.DeviceActive, params.FirmwareVersion,
	)
	return scanDevice(row)
}

func (s *Store) GetDevice(ctx context.Context, userID, id string) (iot.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+deviceColumns+` from iot_devices where id=$1 and user_id=$2`, id, userID)
	return scanDevice(row)
}

func (s *Store) ListDevices(ctx context.Context, userID string) ([]iot.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+deviceColumns+` from iot_devices where user_id=$1 order by activated_at asc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []iot.Device
	for rows.Next() {
		var d iot.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.MyPlantID, &d.Name, &d.ConnectionType,
			&d.Location, &d.ActivatedAt, &d.Status, &d.FirmwareVersion); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDeviceStatus(ctx context.Context, userID, id, status string) (iot.Device, error) {
	switch status {
	case iot.DeviceActive, iot.DeviceInactive, iot.DeviceFaulty:
	default:
		return iot.Device{}, iot.ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		update iot_devices set status=$3 where id=$1 and user_id=$2
		returning `+deviceColumns,
		id, userID, status,
	)
	return scanDevice(row)
}

func (s *Store) RemoveDevice(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from iot_devices where id=$1 and user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return iot.ErrNotFound
	}
	return nil
}

// Sensors ------------------------------------------------------------------

const sensorColumns = `id, device_id, type, unit, range_min, range_max, model, installed_at, active`

func (s *Store) AddSensor(ctx context.Context, userID, deviceID string, params iot.SensorParams) (iot.Sensor, error) {
	if strings.TrimSpace(params.Type) == "" || params.RangeMax <= params.RangeMin {
		return iot.Sensor{}, iot.ErrInvalidInput
	}
	if _, err := s.GetDevice(ctx, userID, deviceID); err != nil {
		return iot.Sensor{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into sensors(id, device_id, type, unit, range_min, range_max, model, active)
		values($1,$2,$3,$4,$5,$6,$7,true)
		returning `+sensorColumns,
		ids.New(), deviceID, params.Type, params.Unit, params.RangeMin, params.RangeMax, params.Model,
	)
	return scanSensor(row)
}

func (s *Store) ListSensors(ctx context.Context, userID, deviceID string) ([]iot.Sensor, error) {
	if _, err := s.GetDevice(ctx, userID, deviceID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`select `+sensorColumns+` from sensors where device_id=$1 order by installed_at asc`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []iot.Sensor
	for rows.Next() {
		var sn iot.Sensor
		if err := rows.Scan(&sn.ID, &sn.DeviceID, &sn.Type, &sn.Unit, &sn.RangeMin,
			&sn.RangeMax, &sn.Model, &sn.InstalledAt, &sn.Active); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// ownedSensor resolves a sensor through its device to enforce user scoping.
func (s *Store) ownedSensor(ctx context.Context, userID, sensorID string) (iot.Sensor, error) {
	row := s.db.QueryRowContext(ctx, `
		select s.id, s.device_id, s.type, s.unit, s.range_min, s.range_max, s.model, s.installed_at, s.active
		from sensors s
		join iot_devices d on d.id=s.device_id
		where s.id=$1 and d.user_id=$2`,
		sensorID, userID)
	return scanSensor(row)
}

// Readings -----------------------------------------------------------------

func (s *Store) RecordReading(ctx context.Context, userID, sensorID string, value float64, recordedAt time.Time) (iot.Reading, error) {
	sensor, err := s.ownedSensor(ctx, userID, sensorID)
	if err != nil {
		return iot.Reading{}, err
	}
	if !sensor.Active {
		return iot.Reading{}, iot.ErrSensorInactive
	}
	if value < sensor.RangeMin || value > sensor.RangeMax {
		return iot.Reading{}, iot.ErrOutOfRange
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into sensor_readings(id, sensor_id, value, recorded_at)
		values($1,$2,$3,$4)
		returning id, sensor_id, value, recorded_at`,
		ids.New(), sensorID, value, recordedAt.UTC(),
	)
	var r iot.Reading
	if err := row.Scan(&r.ID, &r.SensorID, &r.Value, &r.RecordedAt); err != nil {
		return iot.Reading{}, err
	}
	return r, nil
}

func (s *Store) ListReadings(ctx context.Context, userID, sensorID string, since time.Time, limit int) ([]iot.Reading, error) {
	if _, err := s.ownedSensor(ctx, userID, sensorID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, sensor_id, value, recorded_at
		from sensor_readings
		where sensor_id=$1 and ($2::timestamptz is null or recorded_at >= $2)
		order by recorded_at asc
		limit $3`,
		sensorID, nullableTime(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []iot.Reading
	for rows.Next() {
		var r iot.Reading
		if err := rows.Scan(&r.ID, &r.SensorID, &r.Value, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) LatestReading(ctx context.Context, userID, sensorID string) (iot.Reading, error) {
	if _, err := s.ownedSensor(ctx, userID, sensorID); err != nil {
		return iot.Reading{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		select id, sensor_id, value, recorded_at
		from sensor_readings
		where sensor_id=$1
		order by recorded_at desc
		limit 1`, sensorID)
	var r iot.Reading
	err := row.Scan(&r.ID, &r.SensorID, &r.Value, &r.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return iot.Reading{}, iot.ErrNotFound
	}
	if err != nil {
		return iot.Reading{}, err
	}
	return r, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func scanDevice(row *sql.Row) (iot.Device, error) {
	var d iot.Device
	err := row.Scan(&d.ID, &d.UserID, &d.MyPlantID, &d.Name, &d.ConnectionType,
		&d.Location, &d.ActivatedAt, &d.Status, &d.FirmwareVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return iot.Device{}, iot.ErrNotFound
	}
	if err != nil {
		return iot.Device{}, err
	}
	return d, nil
}

func scanSensor(row *sql.Row) (iot.Sensor, error) {
	var sn iot.Sensor
	err := row.Scan(&sn.ID, &sn.DeviceID, &sn.Type, &sn.Unit, &sn.RangeMin,
		&sn.RangeMax, &sn.Model, &sn.InstalledAt, &sn.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return iot.Sensor{}, iot.ErrNotFound
	}
	if err != nil {
		return iot.Sensor{}, err
	}
	return sn, nil
}
