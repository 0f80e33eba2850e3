package auth

import "time"

// Built-in roles carried in the access token role claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the authenticated identity tokens refer to.
type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Name              string
	LastName          string
	TimeZone          string
	PreferredLanguage string
	Role              string
	RegisteredAt      time.Time
}

// RefreshToken is the single persisted refresh record a user may hold.
// The token column is the bearer secret itself; rotation overwrites it in
// place, which is what makes a superseded token unusable.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// TokenPair carries freshly minted credentials and their absolute expiries,
// which the endpoint layer copies verbatim into the cookie lifetimes.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AccessClaims is the verified subset of access token claims the gate needs.
type AccessClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}
