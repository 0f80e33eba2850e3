package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"plantita.org/internal/ids"
)

const (
	defaultIssuer     = "plantita"
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	refreshTokenBytes = 64
)

// Service is the sole authority for minting, validating, rotating and
// revoking credentials. Access tokens are stateless HS256 JWTs so the hot
// path never touches the store; refresh tokens are stateful opaque secrets
// with at most one live row per user.
type Service struct {
	store  Store
	secret []byte

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type accessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the token service. An empty signing secret is a
// startup fault, not a per-call error.
func NewService(store Store, secret string, opts ...ServiceOption) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	svc := &Service{
		store:      store,
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GenerateAccessToken signs a short-lived JWT embedding the user's identity
// and role. Any party holding the shared secret can verify it independently.
func (s *Service) GenerateAccessToken(user *User) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.accessTTL)
	claims := accessTokenClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// ValidateAccessToken verifies the signature and expiry of an access token.
// A well-formed, correctly signed token past its expiry yields
// ErrExpiredCredential; every other defect yields ErrInvalidCredential. The
// distinction matters to clients: expired means attempt a refresh, invalid
// means hard reject.
func (s *Service) ValidateAccessToken(token string) (AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AccessClaims{}, ErrInvalidCredential
	}
	parsed, err := jwt.ParseWithClaims(token, &accessTokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidCredential
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, ErrExpiredCredential
		}
		return AccessClaims{}, ErrInvalidCredential
	}
	claims, ok := parsed.Claims.(*accessTokenClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, ErrInvalidCredential
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ExpiresAt == nil {
		return AccessClaims{}, ErrInvalidCredential
	}
	if claims.Issuer != s.issuer {
		return AccessClaims{}, ErrInvalidCredential
	}
	return AccessClaims{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// newRefreshToken produces the opaque bearer secret: high-entropy random
// bytes, base64-encoded, with no embedded structure.
func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// IssueOrRotateRefreshToken generates a fresh refresh token for the user and
// upserts the single row, overwriting any previous value. This is the only
// write path for refresh tokens; the prior token string becomes immediately
// unusable.
func (s *Service) IssueOrRotateRefreshToken(ctx context.Context, userID string) (string, time.Time, error) {
	token, err := newRefreshToken()
	if err != nil {
		return "", time.Time{}, err
	}
	exp := s.now().UTC().Add(s.refreshTTL)
	if err := s.store.RefreshTokens(ctx).UpsertForUser(ctx, userID, token, exp); err != nil {
		return "", time.Time{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return token, exp, nil
}

// ValidateRefreshToken checks the presented token against the single stored
// row for the user. Only an exact match on a live row succeeds.
func (s *Service) ValidateRefreshToken(ctx context.Context, userID, presented string) error {
	rec, err := s.store.RefreshTokens(ctx).GetByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return ErrRefreshNotFound
	}
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(presented)) != 1 {
		return ErrRefreshMismatch
	}
	if rec.Revoked {
		return ErrRefreshRevoked
	}
	if !s.now().UTC().Before(rec.ExpiresAt) {
		return ErrExpiredCredential
	}
	return nil
}

// RevokeRefreshToken marks the row holding the presented token as revoked.
// Logging out with an already-invalid token is not an error.
func (s *Service) RevokeRefreshToken(ctx context.Context, presented string) error {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil
	}
	rec, err := s.store.RefreshTokens(ctx).GetByToken(ctx, presented)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}
	if err := s.store.RefreshTokens(ctx).MarkRevoked(ctx, rec.ID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// Principal loads the user an access token subject refers to. A valid token
// for a deleted account yields ErrPrincipalNotFound.
func (s *Service) Principal(ctx context.Context, userID string) (*User, error) {
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}
	return user, nil
}

// SignUpParams carries the fields needed to register an account.
type SignUpParams struct {
	Email             string
	Password          string
	Name              string
	LastName          string
	TimeZone          string
	PreferredLanguage string
}

// SignUp registers a new account with the default user role.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" || params.Password == "" {
		return nil, ErrUnauthorized
	}
	users := s.store.Users(ctx)
	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrAlreadyExists
	}
	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:                ids.New(),
		Email:             email,
		PasswordHash:      hash,
		Name:              params.Name,
		LastName:          params.LastName,
		TimeZone:          params.TimeZone,
		PreferredLanguage: params.PreferredLanguage,
		Role:              RoleUser,
		RegisteredAt:      s.now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// SignIn authenticates credentials and issues a fresh token pair.
func (s *Service) SignIn(ctx context.Context, email, password string) (TokenPair, *User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, nil, ErrUnauthorized
	}
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, nil, ErrUnauthorized
	}
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("find user: %w", err)
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, nil, ErrUnauthorized
	}
	pair, err := s.mintPair(ctx, user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// Refresh exchanges a live refresh token for a rotated pair. The user is
// resolved through the stored row, then the presented value is validated
// against it before anything is reissued.
func (s *Service) Refresh(ctx context.Context, presented string) (TokenPair, *User, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return TokenPair{}, nil, ErrMissingCredential
	}
	rec, err := s.store.RefreshTokens(ctx).GetByToken(ctx, presented)
	if errors.Is(err, ErrNotFound) {
		return TokenPair{}, nil, ErrRefreshNotFound
	}
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("load refresh token: %w", err)
	}
	if err := s.ValidateRefreshToken(ctx, rec.UserID, presented); err != nil {
		return TokenPair{}, nil, err
	}
	user, err := s.Principal(ctx, rec.UserID)
	if err != nil {
		return TokenPair{}, nil, err
	}
	pair, err := s.mintPair(ctx, user)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// SignOut revokes the presented refresh token. The paired access token is
// left to expire on its own; it is never persisted server-side.
func (s *Service) SignOut(ctx context.Context, presented string) error {
	return s.RevokeRefreshToken(ctx, presented)
}

func (s *Service) mintPair(ctx context.Context, user *User) (TokenPair, error) {
	access, accessExp, err := s.GenerateAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.IssueOrRotateRefreshToken(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
