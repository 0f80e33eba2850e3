package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"plantita.org/internal/auth"
	"plantita.org/internal/obs"
)

const (
	accessCookieName  = "auth_token"
	refreshCookieName = "refresh_token"
)

// Gate rejection reasons, surfaced in the error body and the rejection metric.
const (
	reasonMissingCredential = "missing_credential"
	reasonInvalidCredential = "invalid_credential"
	reasonExpiredCredential = "expired_credential"
	reasonPrincipalNotFound = "principal_not_found"
	reasonInsufficientRole  = "insufficient_role"
)

// publicPaths lists the endpoints reachable without a credential. Everything
// else fails closed: no token, no service.
var publicPaths = map[string]struct{}{
	"/healthz":         {},
	"/readyz":          {},
	"/metrics":         {},
	"/v1/info":         {},
	"/v1/auth/sign-up": {},
	"/v1/auth/sign-in": {},
	"/v1/auth/refresh": {},
}

// withAuth is the authorization gate. It extracts the access token from the
// auth cookie (or a bearer header for non-browser clients), validates it,
// resolves the principal against the user store and attaches it to the
// request context. Every failure is a 401 with a distinct reason.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		token := accessTokenFrom(r)
		if token == "" {
			reject(w, reasonMissingCredential, "authentication required")
			return
		}

		claims, err := a.auth.ValidateAccessToken(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredCredential):
				reject(w, reasonExpiredCredential, "access token expired")
			default:
				reject(w, reasonInvalidCredential, "access token invalid")
			}
			return
		}

		user, err := a.auth.Principal(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, auth.ErrPrincipalNotFound) {
				reject(w, reasonPrincipalNotFound, "account no longer exists")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{
			UserID: user.ID,
			Role:   user.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole guards a handler behind a role. The gate has already
// authenticated the principal; this is a 403, not a 401.
func (a *API) requireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			reject(w, reasonMissingCredential, "authentication required")
			return
		}
		if principal.Role != role {
			obs.AuthRejected(reasonInsufficientRole)
			writeError(w, http.StatusForbidden, reasonInsufficientRole, "insufficient role")
			return
		}
		next(w, r)
	}
}

func reject(w http.ResponseWriter, reason, msg string) {
	obs.AuthRejected(reason)
	writeError(w, http.StatusUnauthorized, reason, msg)
}

// accessTokenFrom prefers the auth cookie and falls back to a bearer header.
func accessTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(accessCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func refreshTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

func currentPrincipal(r *http.Request) (auth.Principal, bool) {
	return auth.PrincipalFromContext(r.Context())
}
