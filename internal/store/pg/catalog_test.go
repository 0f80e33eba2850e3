package pg

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"plantita.org/internal/catalog"
	"plantita.org/internal/iot"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewWithDB(db), mock, func() { db.Close() }
}

func plantRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "scientific_name", "common_name", "description",
		"watering", "sunlight", "wiki_url", "image_url", "created_at",
	}).AddRow("plant-1", "Monstera deliciosa", "Swiss cheese plant", "", "Average", "Partial shade", "", "", now)
}

func TestCreatePlant(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("insert into plants").
		WithArgs(sqlmock.AnyArg(), "Monstera deliciosa", "Swiss cheese plant", "", "Average", "Partial shade", "", "").
		WillReturnRows(plantRows(time.Now().UTC()))

	plant, err := store.CreatePlant(context.Background(), catalog.PlantParams{
		ScientificName: "Monstera deliciosa",
		CommonName:     "Swiss cheese plant",
		Watering:       "Average",
		Sunlight:       "Partial shade",
	})
	if err != nil {
		t.Fatalf("CreatePlant: %v", err)
	}
	if plant.ID != "plant-1" {
		t.Fatalf("unexpected plant: %+v", plant)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreatePlantDuplicate(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	// on conflict do nothing returns zero rows for a duplicate species.
	mock.ExpectQuery("insert into plants").
		WithArgs(sqlmock.AnyArg(), "Monstera deliciosa", "", "", "", "", "", "").
		WillReturnError(sql.ErrNoRows)

	_, err := store.CreatePlant(context.Background(), catalog.PlantParams{ScientificName: "Monstera deliciosa"})
	if err != catalog.ErrAlreadyExists {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}

func TestGetPlantNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery("select id, scientific_name").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.GetPlant(context.Background(), "ghost"); err != catalog.ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDeletePlantNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec("delete from plants").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeletePlant(context.Background(), "ghost"); err != catalog.ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateDeviceStatusRejectsUnknownValue(t *testing.T) {
	store, _, done := newMockStore(t)
	defer done()

	if _, err := store.UpdateDeviceStatus(context.Background(), "alice", "dev-1", "exploded"); err != iot.ErrInvalidInput {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}
