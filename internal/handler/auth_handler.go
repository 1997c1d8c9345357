package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"otp-auth-service/internal/config"
	"otp-auth-service/internal/secret"
	"otp-auth-service/internal/service"
	"otp-auth-service/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const sessionCookieName = "auth_token"

// AuthHandler exposes the OTP authentication endpoints.
type AuthHandler struct {
	issuer   *service.Issuer
	verifier *service.Verifier
	sessions *service.SessionTokenService
	logger   *zap.Logger
}

func NewAuthHandler(issuer *service.Issuer, verifier *service.Verifier, sessions *service.SessionTokenService) *AuthHandler {
	return &AuthHandler{
		issuer:   issuer,
		verifier: verifier,
		sessions: sessions,
		logger:   util.Get(),
	}
}

// RegisterRoutes registers auth routes on the given router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/otp/request", h.RequestOTP)
		r.Post("/otp/verify", h.VerifyOTP)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(SessionGuard(h.sessions))
			r.Get("/session", h.Session)
		})
	})
}

type otpRequestBody struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type otpVerifyBody struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// RequestOTP handles POST /auth/otp/request.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var body otpRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.issuer.RequestCode(r.Context(), body.Email, body.Phone); err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VerifyOTP handles POST /auth/otp/verify.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body otpVerifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.verifier.VerifyCode(r.Context(), body.Email, body.Phone, body.Code)
	if err != nil {
		h.respondWithServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(config.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Session handles GET /auth/session. SessionGuard has already resolved
// the subject by the time this runs.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"sub": sub})
}

// Logout handles POST /auth/logout by expiring the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) respondWithServiceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("auth request failed", util.ErrorField(err))
		respondWithError(w, status, "internal server error")
		return
	}
	respondWithError(w, status, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrTooManyRequests), errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrDeliveryFailed):
		return http.StatusBadGateway
	case errors.Is(err, secret.ErrSecretUnavailable):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}
