package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Cookie names delivered to clients. access_token_expiration is readable
// by scripts so the client can schedule its own refresh without decoding
// the opaque token.
const (
	accessTokenCookie      = "access_token"
	accessExpirationCookie = "access_token_expiration"
	refreshTokenCookie     = "refresh_token"
)

type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	CaptchaToken string `json:"captcha_token"`
}

type LoginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler exposes the auth flow over HTTP
type Handler struct {
	service *Service
	captcha CaptchaVerifier
}

// NewHandler creates the auth HTTP handler
func NewHandler(service *Service, captcha CaptchaVerifier) *Handler {
	return &Handler{service: service, captcha: captcha}
}

// Routes registers the auth endpoints on a chi router
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login/password", h.PasswordLogin)
	r.Post("/register", h.Register)
	r.Get("/confirm-email/{token}", h.ConfirmEmail)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)
}

// PasswordLogin handles POST /auth/login/password. Every precondition
// failure, captcha included, produces the same generic 401.
func (h *Handler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	ok, err := h.captcha.Verify(r.Context(), req.CaptchaToken, remoteIP(r))
	if err != nil {
		log.Printf("[AUTH] Captcha verification error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	creds, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Printf("[AUTH] Login failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setSessionCookies(w, creds)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged in successfully"})
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if !ValidateEmail(req.Email) || !ValidatePassword(req.Password) {
		writeError(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	ok, err := h.captcha.Verify(r.Context(), req.CaptchaToken, remoteIP(r))
	if err != nil {
		log.Printf("[AUTH] Captcha verification error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "Captcha verification failed")
		return
	}

	err = h.service.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	switch {
	case errors.Is(err, ErrSignupDisabled):
		writeError(w, http.StatusBadRequest, "Signup is disabled")
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "Email already in use")
	case err != nil:
		log.Printf("[AUTH] Registration failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Verification email sent"})
	}
}

// ConfirmEmail handles GET /auth/confirm-email/{token}. On success the
// session cookies are set and the caller is redirected to the login
// landing page.
func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	rawToken := chi.URLParam(r, "token")

	_, creds, err := h.service.ConfirmEmail(r.Context(), rawToken)
	if err != nil {
		if errors.Is(err, ErrInvalidEmailToken) {
			writeError(w, http.StatusBadRequest, "Invalid email token")
			return
		}
		log.Printf("[AUTH] Email confirmation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setSessionCookies(w, creds)
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

// Refresh handles POST /auth/refresh using the refresh cookie
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	access, err := h.service.Refresh(r.Context(), cookie.Value)
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, ErrRefreshTokenRevoked):
		writeError(w, http.StatusUnauthorized, "Refresh token has been revoked")
	case err != nil:
		log.Printf("[AUTH] Refresh failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		h.setAccessCookies(w, access)
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Token refreshed"})
	}
}

// Logout handles POST /auth/logout. Both cookies are optional; whatever
// decodes is denylisted, the cookies are always cleared, and the response
// is always 200.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var rawAccess, rawRefresh string
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		rawAccess = c.Value
	}
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		rawRefresh = c.Value
	}

	h.service.Logout(r.Context(), rawAccess, rawRefresh)

	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// setSessionCookies delivers a full credential pair: the access token on a
// lax cookie, its expiry on a readable cookie, and the refresh token on a
// strict cookie.
func (h *Handler) setSessionCookies(w http.ResponseWriter, creds *Credentials) {
	h.setAccessCookies(w, creds.AccessToken)

	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    creds.RefreshToken.Value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.service.Tokens().Duration(TokenTypeRefresh).Seconds()),
	})
}

func (h *Handler) setAccessCookies(w http.ResponseWriter, access *Token) {
	maxAge := int(h.service.Tokens().Duration(TokenTypeAccess).Seconds())

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    access.Value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     accessExpirationCookie,
		Value:    strconv.FormatInt(access.ExpiresAt.Unix(), 10),
		Path:     "/",
		HttpOnly: false,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, accessExpirationCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: name != accessExpirationCookie,
			Secure:   true,
		})
	}
}

func remoteIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from X-Forwarded-For
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
