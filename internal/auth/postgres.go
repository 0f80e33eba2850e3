package auth

import (
	"context"
	"database/sql"
	"time"

	"plantita.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(ctx context.Context) UserStore {
	return &userStore{db: s.db}
}

func (s *PGStore) RefreshTokens(ctx context.Context) RefreshTokenStore {
	return &refreshTokenStore{db: s.db}
}

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, name, last_name, time_zone, preferred_language, role, registered_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.LastName, u.TimeZone, u.PreferredLanguage, u.Role, u.RegisteredAt,
	)
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, name, last_name, time_zone, preferred_language, role, registered_at
		 from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, name, last_name, time_zone, preferred_language, role, registered_at
		 from users where email=$1`, email)
	return scanUser(row)
}

func (s *userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where email=$1)`, email).Scan(&exists)
	return exists, err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.LastName,
		&u.TimeZone, &u.PreferredLanguage, &u.Role, &u.RegisteredAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Refresh token store ------------------------------------------------------
type refreshTokenStore struct{ db *sql.DB }

func (s *refreshTokenStore) GetByToken(ctx context.Context, token string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token, expires_at, revoked, created_at
		 from refresh_tokens where token=$1`, token)
	return scanRefreshToken(row)
}

func (s *refreshTokenStore) GetByUser(ctx context.Context, userID string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token, expires_at, revoked, created_at
		 from refresh_tokens where user_id=$1`, userID)
	return scanRefreshToken(row)
}

// UpsertForUser relies on the unique constraint on user_id: rotation is a
// single atomic statement, so concurrent rotations for the same user resolve
// last-writer-wins without application locking.
func (s *refreshTokenStore) UpsertForUser(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token, expires_at, revoked)
		 values($1,$2,$3,$4,false)
		 on conflict (user_id) do update
		 set token=excluded.token, expires_at=excluded.expires_at, revoked=false`,
		ids.New(), userID, token, expiresAt,
	)
	return err
}

func (s *refreshTokenStore) MarkRevoked(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked=true where id=$1`, id)
	return err
}

func scanRefreshToken(row *sql.Row) (*RefreshToken, error) {
	var rec RefreshToken
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.ExpiresAt, &rec.Revoked, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
