package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	RefreshTokens(ctx context.Context) RefreshTokenStore
}

// UserStore manages user accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenStore manages the refresh token lifecycle. The store holds at
// most one row per user; UpsertForUser must be atomic (unique constraint on
// user_id plus on-conflict update), since the service never does
// read-then-write around rotation.
type RefreshTokenStore interface {
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	GetByUser(ctx context.Context, userID string) (*RefreshToken, error)
	UpsertForUser(ctx context.Context, userID, token string, expiresAt time.Time) error
	MarkRevoked(ctx context.Context, id string) error
}
