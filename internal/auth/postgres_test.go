package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRefreshTokenStoreUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	exp := time.Now().UTC().Add(7 * 24 * time.Hour)
	mock.ExpectExec("insert into refresh_tokens").
		WithArgs(sqlmock.AnyArg(), "user-1", "tok-value", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db).RefreshTokens(context.Background())
	if err := store.UpsertForUser(context.Background(), "user-1", "tok-value", exp); err != nil {
		t.Fatalf("UpsertForUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshTokenStoreGetByToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "revoked", "created_at"}).
		AddRow("rt-1", "user-1", "tok-value", now.Add(time.Hour), false, now)
	mock.ExpectQuery("select id, user_id, token, expires_at, revoked, created_at").
		WithArgs("tok-value").
		WillReturnRows(rows)

	store := NewPGStore(db).RefreshTokens(context.Background())
	rec, err := store.GetByToken(context.Background(), "tok-value")
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if rec.UserID != "user-1" || rec.Revoked {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRefreshTokenStoreGetByUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, user_id, token, expires_at, revoked, created_at").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	store := NewPGStore(db).RefreshTokens(context.Background())
	if _, err := store.GetByUser(context.Background(), "ghost"); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRefreshTokenStoreMarkRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update refresh_tokens set revoked=true").
		WithArgs("rt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPGStore(db).RefreshTokens(context.Background())
	if err := store.MarkRevoked(context.Background(), "rt-1"); err != nil {
		t.Fatalf("MarkRevoked: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserStoreExistsByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select exists").
		WithArgs("fern@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	users := NewPGStore(db).Users(context.Background())
	exists, err := users.ExistsByEmail(context.Background(), "fern@example.com")
	if err != nil {
		t.Fatalf("ExistsByEmail: %v", err)
	}
	if !exists {
		t.Fatal("expected email to exist")
	}
}
