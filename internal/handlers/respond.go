package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/ratelimit"
	"github.com/BasmalaAyman4/storefront-gateway/internal/service"
	"github.com/BasmalaAyman4/storefront-gateway/internal/upstream"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func respondWithServiceError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	status, code, message := mapServiceError(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).Error("Request failed")
	}
	respondWithError(w, status, code, message)
}

// mapServiceError translates service and transport errors into the HTTP
// status, machine code, and user-facing message of the error envelope.
// Rate-limit rejections keep the limiter's own message so the client can
// show the retry window as stated.
func mapServiceError(err error) (int, string, string) {
	var limitErr *ratelimit.LimitError
	if errors.As(err, &limitErr) {
		return http.StatusTooManyRequests, "RATE_LIMITED", limitErr.Error()
	}

	var authErr *service.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return http.StatusUnauthorized, "AUTH_FAILED", authErr.Message
	}

	switch {
	case errors.Is(err, ratelimit.ErrCapacity):
		return http.StatusServiceUnavailable, "LIMITER_BUSY", "Too many concurrent clients, try again shortly"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_REQUEST", "Invalid request"
	case errors.Is(err, service.ErrAlreadyInProgress):
		return http.StatusConflict, "ALREADY_IN_PROGRESS", "The same action is already running"
	case errors.Is(err, service.ErrCancelled):
		return http.StatusBadRequest, "REQUEST_CANCELLED", "Request was cancelled"
	case errors.Is(err, service.ErrAuthFailed):
		return http.StatusUnauthorized, "AUTH_FAILED", "Invalid credentials"
	case errors.Is(err, service.ErrNoSession):
		return http.StatusUnauthorized, "NO_SESSION", "No active session"
	case errors.Is(err, upstream.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "The requested item does not exist"
	case errors.Is(err, upstream.ErrTimeout):
		return http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "The upstream service took too long to respond"
	case errors.Is(err, upstream.ErrNetwork):
		return http.StatusBadGateway, "UPSTREAM_UNREACHABLE", "Could not reach the upstream service"
	case errors.Is(err, upstream.ErrInvalidResponse):
		return http.StatusBadGateway, "BAD_UPSTREAM_RESPONSE", "The upstream service returned an unusable response"
	case errors.Is(err, upstream.ErrServer):
		return http.StatusBadGateway, "UPSTREAM_ERROR", "The upstream service failed"
	default:
		return http.StatusInternalServerError, "INTERNAL", "Something went wrong"
	}
}
