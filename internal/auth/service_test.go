package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store used to exercise the token lifecycle
// without a database.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*User
	emails map[string]string
	tokens map[string]*RefreshToken // keyed by user id
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]*User),
		emails: make(map[string]string),
		tokens: make(map[string]*RefreshToken),
	}
}

func (m *memStore) Users(ctx context.Context) UserStore                 { return m }
func (m *memStore) RefreshTokens(ctx context.Context) RefreshTokenStore { return m }

func (m *memStore) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return nil
}

func (m *memStore) Find(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	id, ok := m.emails[email]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Find(ctx, id)
}

func (m *memStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.emails[email]
	return ok, nil
}

func (m *memStore) GetByToken(ctx context.Context, token string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.tokens {
		if rec.Token == token {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) GetByUser(ctx context.Context, userID string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tokens[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) UpsertForUser(ctx context.Context, userID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.tokens[userID]; ok {
		rec.Token = token
		rec.ExpiresAt = expiresAt
		rec.Revoked = false
		return nil
	}
	m.tokens[userID] = &RefreshToken{
		ID:        "rt-" + userID,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (m *memStore) MarkRevoked(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.tokens {
		if rec.ID == id {
			rec.Revoked = true
			return nil
		}
	}
	return nil
}

func (m *memStore) rowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// fakeClock is a mutable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T) (*Service, *memStore, *fakeClock) {
	t.Helper()
	store := newMemStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(store, "test-secret", WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store, clock
}

func seedUser(t *testing.T, store *memStore) *User {
	t.Helper()
	hash, err := HashPassword("hunter2-not-really")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &User{
		ID:           "user-1",
		Email:        "fern@example.com",
		PasswordHash: hash,
		Role:         RoleUser,
	}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(newMemStore(), "   "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, store, clock := newTestService(t)
	user := seedUser(t, store)

	token, exp, err := svc.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if want := clock.Now().Add(30 * time.Minute); !exp.Equal(want) {
		t.Fatalf("expiry = %v, want %v", exp, want)
	}

	claims, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Subject != user.ID || claims.Role != user.Role {
		t.Fatalf("claims = %+v, want subject %s role %s", claims, user.ID, user.Role)
	}

	clock.Advance(30*time.Minute + time.Second)
	if _, err := svc.ValidateAccessToken(token); err != ErrExpiredCredential {
		t.Fatalf("after expiry: got %v, want ErrExpiredCredential", err)
	}
}

func TestAccessTokenTamperedSignature(t *testing.T) {
	svc, store, _ := newTestService(t)
	user := seedUser(t, store)

	token, _, err := svc.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three segments, got %d", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := svc.ValidateAccessToken(tampered); err != ErrInvalidCredential {
		t.Fatalf("got %v, want ErrInvalidCredential", err)
	}
}

func TestAccessTokenForeignSecret(t *testing.T) {
	svc, store, clock := newTestService(t)
	user := seedUser(t, store)

	other, err := NewService(newMemStore(), "another-secret", WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	token, _, err := other.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := svc.ValidateAccessToken(token); err != ErrInvalidCredential {
		t.Fatalf("got %v, want ErrInvalidCredential", err)
	}
}

func TestValidateAccessTokenMalformed(t *testing.T) {
	svc, _, _ := newTestService(t)
	for _, token := range []string{"", "   ", "not-a-jwt", "a.b", "a.b.c.d"} {
		if _, err := svc.ValidateAccessToken(token); err != ErrInvalidCredential {
			t.Fatalf("token %q: got %v, want ErrInvalidCredential", token, err)
		}
	}
}

func TestIssueOrRotateKeepsSingleRow(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	var last string
	for i := 0; i < 5; i++ {
		token, _, err := svc.IssueOrRotateRefreshToken(ctx, "user-1")
		if err != nil {
			t.Fatalf("rotation %d: %v", i, err)
		}
		last = token
	}
	if n := store.rowCount(); n != 1 {
		t.Fatalf("store holds %d rows, want 1", n)
	}
	rec, err := store.GetByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if rec.Token != last {
		t.Fatal("stored token does not equal the last issued value")
	}
}

func TestRotationInvalidatesPredecessor(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	t1, _, err := svc.IssueOrRotateRefreshToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	t2, _, err := svc.IssueOrRotateRefreshToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if t1 == t2 {
		t.Fatal("rotation produced an identical token")
	}
	if err := svc.ValidateRefreshToken(ctx, "user-1", t1); err != ErrRefreshMismatch {
		t.Fatalf("stale token: got %v, want ErrRefreshMismatch", err)
	}
	if err := svc.ValidateRefreshToken(ctx, "user-1", t2); err != nil {
		t.Fatalf("current token: %v", err)
	}
}

func TestRefreshExpiryBoundary(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.IssueOrRotateRefreshToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	store.mu.Lock()
	store.tokens["user-1"].ExpiresAt = clock.Now().Add(time.Second)
	store.mu.Unlock()
	if err := svc.ValidateRefreshToken(ctx, "user-1", token); err != nil {
		t.Fatalf("one second before expiry: %v", err)
	}

	store.mu.Lock()
	store.tokens["user-1"].ExpiresAt = clock.Now().Add(-time.Second)
	store.mu.Unlock()
	if err := svc.ValidateRefreshToken(ctx, "user-1", token); err != ErrExpiredCredential {
		t.Fatalf("one second past expiry: got %v, want ErrExpiredCredential", err)
	}
}

func TestValidateRefreshTokenNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.ValidateRefreshToken(context.Background(), "ghost", "whatever"); err != ErrRefreshNotFound {
		t.Fatalf("got %v, want ErrRefreshNotFound", err)
	}
}

func TestRevocationFinality(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.IssueOrRotateRefreshToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.RevokeRefreshToken(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := svc.ValidateRefreshToken(ctx, "user-1", token); err != ErrRefreshRevoked {
		t.Fatalf("got %v, want ErrRefreshRevoked", err)
	}
}

func TestRevokeUnknownTokenIsNoop(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.RevokeRefreshToken(context.Background(), "never-issued"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestSignInAndRefreshFlow(t *testing.T) {
	svc, store, _ := newTestService(t)
	user := seedUser(t, store)
	ctx := context.Background()

	pair, got, err := svc.SignIn(ctx, user.Email, "hunter2-not-really")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("signed in as %s, want %s", got.ID, user.ID)
	}

	rotated, _, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh did not rotate the token")
	}

	// The superseded value must be unusable immediately. Rotation overwrote
	// the stored row, so the stale string no longer resolves at all.
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); err != ErrRefreshNotFound {
		t.Fatalf("stale refresh: got %v, want ErrRefreshNotFound", err)
	}
	if err := svc.ValidateRefreshToken(ctx, user.ID, pair.RefreshToken); err != ErrRefreshMismatch {
		t.Fatalf("stale refresh per user: got %v, want ErrRefreshMismatch", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc, store, _ := newTestService(t)
	user := seedUser(t, store)
	if _, _, err := svc.SignIn(context.Background(), user.Email, "wrong"); err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, _, err := svc.SignIn(context.Background(), "nobody@example.com", "pw"); err != ErrUnauthorized {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestRefreshForDeletedPrincipal(t *testing.T) {
	svc, store, _ := newTestService(t)
	user := seedUser(t, store)
	ctx := context.Background()

	pair, _, err := svc.SignIn(ctx, user.Email, "hunter2-not-really")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	store.mu.Lock()
	delete(store.users, user.ID)
	store.mu.Unlock()

	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); err != ErrPrincipalNotFound {
		t.Fatalf("got %v, want ErrPrincipalNotFound", err)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	params := SignUpParams{Email: "Moss@Example.com", Password: "pw12345678"}
	user, err := svc.SignUp(ctx, params)
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if user.Email != "moss@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if user.Role != RoleUser {
		t.Fatalf("role = %s, want %s", user.Role, RoleUser)
	}
	if _, err := svc.SignUp(ctx, params); err != ErrAlreadyExists {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}
