package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"plantita.org/internal/auth"
)

func TestGateRejectsMissingCredential(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/v1/my-plants", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if reason := decodeErrorReason(t, rec); reason != reasonMissingCredential {
		t.Fatalf("reason = %q, want %q", reason, reasonMissingCredential)
	}
}

func TestGateRejectsTamperedToken(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "ana@example.com", "sunflower42", auth.RoleUser)
	token := e.accessTokenFor(t, user)

	// Flip the last signature byte.
	tampered := token[:len(token)-1] + string(token[len(token)-1]^1)

	req := httptest.NewRequest(http.MethodGet, "/v1/my-plants", nil)
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: tampered})
	rec := e.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if reason := decodeErrorReason(t, rec); reason != reasonInvalidCredential {
		t.Fatalf("reason = %q, want %q", reason, reasonInvalidCredential)
	}
}

func TestGateRejectsExpiredToken(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "ana@example.com", "sunflower42", auth.RoleUser)
	token := e.accessTokenFor(t, user)

	e.clock.Advance(30*time.Minute + time.Second)

	req := httptest.NewRequest(http.MethodGet, "/v1/my-plants", nil)
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	rec := e.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if reason := decodeErrorReason(t, rec); reason != reasonExpiredCredential {
		t.Fatalf("reason = %q, want %q", reason, reasonExpiredCredential)
	}
}

func TestGateRejectsDeletedPrincipal(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "ana@example.com", "sunflower42", auth.RoleUser)
	token := e.accessTokenFor(t, user)
	e.store.deleteUser(user.ID)

	req := httptest.NewRequest(http.MethodGet, "/v1/my-plants", nil)
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	rec := e.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if reason := decodeErrorReason(t, rec); reason != reasonPrincipalNotFound {
		t.Fatalf("reason = %q, want %q", reason, reasonPrincipalNotFound)
	}
}

func TestGateBypassesPublicPathsWithoutStoreCalls(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		rec := e.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, rec.Code)
		}
	}
	if n := e.store.callCount(); n != 0 {
		t.Fatalf("store touched %d times on public paths, want 0", n)
	}
}

func TestGateAcceptsBearerHeader(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "ana@example.com", "sunflower42", auth.RoleUser)
	token := e.accessTokenFor(t, user)

	req := httptest.NewRequest(http.MethodGet, "/v1/my-plants", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := e.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestGatePrefersCookieOverHeader(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "ana@example.com", "sunflower42", auth.RoleUser)
	token := e.accessTokenFor(t, user)

	req := httptest.NewRequest(http.MethodGet, "/v1/my-plants", nil)
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := e.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestRequireRoleForbidsNonAdmin(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "ana@example.com", "sunflower42", auth.RoleUser)
	token := e.accessTokenFor(t, user)

	req := httptest.NewRequest(http.MethodPost, "/v1/plants",
		jsonBody(t, map[string]string{"scientific_name": "Monstera deliciosa"}))
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	rec := e.do(req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if reason := decodeErrorReason(t, rec); reason != reasonInsufficientRole {
		t.Fatalf("reason = %q, want %q", reason, reasonInsufficientRole)
	}
}

func TestRequireRoleAllowsAdmin(t *testing.T) {
	e := newTestEnv(t)
	admin := e.seedUser(t, "root@example.com", "sunflower42", auth.RoleAdmin)
	token := e.accessTokenFor(t, admin)

	req := httptest.NewRequest(http.MethodPost, "/v1/plants",
		jsonBody(t, map[string]string{"scientific_name": "Monstera deliciosa"}))
	req.AddCookie(&http.Cookie{Name: accessCookieName, Value: token})
	rec := e.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}
