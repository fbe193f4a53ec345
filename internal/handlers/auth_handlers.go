package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/middleware"
	"github.com/BasmalaAyman4/storefront-gateway/internal/models"
	"github.com/BasmalaAyman4/storefront-gateway/internal/service"
)

type AuthHandlers struct {
	auth         *service.AuthService
	sessions     *service.SessionService
	cookieName   string
	cookieExpiry time.Duration
	logger       *logrus.Logger
}

func NewAuthHandlers(
	auth *service.AuthService,
	sessions *service.SessionService,
	cookieName string,
	cookieExpiry time.Duration,
	logger *logrus.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		auth:         auth,
		sessions:     sessions,
		cookieName:   cookieName,
		cookieExpiry: cookieExpiry,
		logger:       logger,
	}
}

type SessionResponse struct {
	Session *models.ClientSession `json:"session"`
}

type SignupStepResponse struct {
	Flow    models.AuthFlowState  `json:"flow"`
	Session *models.ClientSession `json:"session,omitempty"`
}

type LogoutResponse struct {
	Message     string   `json:"message"`
	ClearedKeys []string `json:"cleared_keys"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.auth.Login(r.Context(), req, middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.setSessionCookie(w, result.Cookie)
	respondWithJSON(w, http.StatusOK, SessionResponse{Session: result.Session})
}

// SignupStart handles POST /api/v1/auth/signup.
func (h *AuthHandlers) SignupStart(w http.ResponseWriter, r *http.Request) {
	var req models.SignupStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.auth.SignupStart(r.Context(), req, middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SignupStepResponse{Flow: result.Flow})
}

// VerifyCode handles POST /api/v1/auth/verify-otp.
func (h *AuthHandlers) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.auth.VerifyCode(r.Context(), req, middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SignupStepResponse{Flow: result.Flow})
}

// SetCredential handles POST /api/v1/auth/set-password. On success the
// signup flow has a session, so the response carries the cookie.
func (h *AuthHandlers) SetCredential(w http.ResponseWriter, r *http.Request) {
	var req models.SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.auth.SetCredential(r.Context(), req, middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.setSessionCookie(w, result.Cookie)
	respondWithJSON(w, http.StatusOK, SignupStepResponse{Flow: result.Flow, Session: result.Session})
}

// SetProfile handles POST /api/v1/auth/personal-info. It requires the
// session cookie minted by the credential step.
func (h *AuthHandlers) SetProfile(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "NO_SESSION", "Missing session cookie")
		return
	}

	var req models.PersonalInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.auth.SetProfile(r.Context(), cookie.Value, req, middleware.LocaleFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SignupStepResponse{Flow: result.Flow, Session: result.Session})
}

// Logout handles POST /api/v1/auth/logout. The cookie is cleared and the
// client state keys are returned even when no session could be resolved,
// so the frontend always ends up signed out.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	cleared := models.ClientStateKeys
	if cookie, err := r.Cookie(h.cookieName); err == nil {
		cleared = h.sessions.Invalidate(r.Context(), cookie.Value)
	}

	h.clearSessionCookie(w)
	respondWithJSON(w, http.StatusOK, LogoutResponse{
		Message:     "Logged out",
		ClearedKeys: cleared,
	})
}

// Me handles GET /api/v1/me behind the session middleware.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "NO_SESSION", "No active session")
		return
	}

	view := session.ClientView()
	respondWithJSON(w, http.StatusOK, SessionResponse{Session: &view})
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.cookieExpiry.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
