package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"plantita.org/internal/auth"
	"plantita.org/internal/catalog"
	"plantita.org/internal/garden"
	"plantita.org/internal/ids"
	"plantita.org/internal/iot"
)

// stubStore is an in-memory auth.Store that counts every sub-store call, so
// tests can assert the gate short-circuits before touching persistence.
type stubStore struct {
	mu      sync.Mutex
	users   map[string]*auth.User
	byEmail map[string]*auth.User
	tokens  map[string]*auth.RefreshToken // keyed by user id
	calls   int
}

func newStubStore() *stubStore {
	return &stubStore{
		users:   make(map[string]*auth.User),
		byEmail: make(map[string]*auth.User),
		tokens:  make(map[string]*auth.RefreshToken),
	}
}

func (s *stubStore) bump() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *stubStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubStore) Users(ctx context.Context) auth.UserStore { return s }
func (s *stubStore) RefreshTokens(ctx context.Context) auth.RefreshTokenStore { return s }

func (s *stubStore) Create(ctx context.Context, u *auth.User) error {
	s.bump()
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[u.Email] = &cp
	return nil
}

func (s *stubStore) Find(ctx context.Context, id string) (*auth.User, error) {
	s.bump()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.bump()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	s.bump()
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *stubStore) GetByToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	s.bump()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tokens {
		if rec.Token == token {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *stubStore) GetByUser(ctx context.Context, userID string) (*auth.RefreshToken, error) {
	s.bump()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[userID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *stubStore) UpsertForUser(ctx context.Context, userID, token string, expiresAt time.Time) error {
	s.bump()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[userID]
	if !ok {
		rec = &auth.RefreshToken{ID: ids.New(), UserID: userID, CreatedAt: time.Now()}
		s.tokens[userID] = rec
	}
	rec.Token = token
	rec.ExpiresAt = expiresAt
	rec.Revoked = false
	return nil
}

func (s *stubStore) MarkRevoked(ctx context.Context, id string) error {
	s.bump()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.tokens {
		if rec.ID == id {
			rec.Revoked = true
			return nil
		}
	}
	return auth.ErrNotFound
}

func (s *stubStore) deleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		delete(s.byEmail, u.Email)
		delete(s.users, id)
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type env struct {
	store *stubStore
	clock *fakeClock
	svc   *auth.Service
	api   *API
	h     http.Handler
}

func newTestEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	store := newStubStore()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := auth.NewService(store, "test-secret", auth.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	api := New(svc, catalog.NewInMemory(), garden.NewInMemory(), iot.NewInMemory(), opts...)
	return &env{store: store, clock: clock, svc: svc, api: api, h: api.Handler()}
}

func (e *env) seedUser(t *testing.T, email, password, role string) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &auth.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Test",
		Role:         role,
		RegisteredAt: e.clock.Now(),
	}
	if err := e.store.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// accessTokenFor mints a token through the service under the fixed clock.
func (e *env) accessTokenFor(t *testing.T, user *auth.User) string {
	t.Helper()
	token, _, err := e.svc.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *strings.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return strings.NewReader(string(data))
}

func decodeErrorReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Reason
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
