package httpapi

import (
	"errors"
	"net/http"
	"time"

	"plantita.org/internal/audit"
	"plantita.org/internal/auth"
)

type signUpRequest struct {
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required,min=8"`
	Name              string `json:"name" validate:"required"`
	LastName          string `json:"last_name"`
	TimeZone          string `json:"time_zone"`
	PreferredLanguage string `json:"preferred_language"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	LastName          string    `json:"last_name,omitempty"`
	TimeZone          string    `json:"time_zone,omitempty"`
	PreferredLanguage string    `json:"preferred_language,omitempty"`
	Role              string    `json:"role"`
	RegisteredAt      time.Time `json:"registered_at"`
}

type sessionResponse struct {
	User      userResponse `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		LastName:          u.LastName,
		TimeZone:          u.TimeZone,
		PreferredLanguage: u.PreferredLanguage,
		Role:              u.Role,
		RegisteredAt:      u.RegisteredAt,
	}
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	user, err := a.auth.SignUp(r.Context(), auth.SignUpParams{
		Email:             req.Email,
		Password:          req.Password,
		Name:              req.Name,
		LastName:          req.LastName,
		TimeZone:          req.TimeZone,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "email_taken", "email already registered")
		case errors.Is(err, auth.ErrUnauthorized):
			writeError(w, http.StatusBadRequest, "bad_request", "email and password are required")
		default:
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.sign_up", map[string]any{"user_id": user.ID})
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	pair, user, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	setSessionCookies(w, pair)
	_ = audit.LogEvent(r.Context(), "auth.sign_in", map[string]any{"user_id": user.ID})
	writeJSON(w, http.StatusOK, sessionResponse{User: toUserResponse(user), ExpiresAt: pair.AccessExpiresAt})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	presented := refreshTokenFrom(r)
	pair, user, err := a.auth.Refresh(r.Context(), presented)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredential):
			reject(w, reasonMissingCredential, "refresh token required")
		case errors.Is(err, auth.ErrExpiredCredential):
			clearSessionCookies(w)
			reject(w, reasonExpiredCredential, "refresh token expired")
		case errors.Is(err, auth.ErrPrincipalNotFound):
			clearSessionCookies(w)
			reject(w, reasonPrincipalNotFound, "account no longer exists")
		case errors.Is(err, auth.ErrRefreshNotFound),
			errors.Is(err, auth.ErrRefreshMismatch),
			errors.Is(err, auth.ErrRefreshRevoked):
			clearSessionCookies(w)
			reject(w, reasonInvalidCredential, "refresh token invalid")
		default:
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
		}
		return
	}
	setSessionCookies(w, pair)
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{"user_id": user.ID})
	writeJSON(w, http.StatusOK, sessionResponse{User: toUserResponse(user), ExpiresAt: pair.AccessExpiresAt})
}

func (a *API) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.SignOut(r.Context(), refreshTokenFrom(r)); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	clearSessionCookies(w)
	_ = audit.LogEvent(r.Context(), "auth.sign_out", nil)
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookies installs both token carriers. SameSite=None with Secure
// lets the browser client on another origin send them; HttpOnly keeps them
// out of reach of scripts.
func setSessionCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}
}
