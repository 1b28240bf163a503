package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
)

// envelope is the body of every response.
type envelope struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: status < http.StatusBadRequest,
		Status:  status,
		Message: message,
		Data:    data,
	})
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, message, data)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, message, nil)
}

// Token failure messages.
const (
	msgTokenMissing      = "Access token is missing. Please provide a valid authorization header"
	msgTokenFormat       = "Invalid token format. Token must be in format 'Bearer <token>'"
	msgTokenExpired      = "Token has expired. Please login again to get a new token"
	msgTokenInvalid      = "Invalid token. Please provide a valid authentication token"
	msgTokenNotYetValid  = "Token is not active yet. Please try again later"
	msgTokenRevoked      = "Token has been revoked"
	msgTokenFailed       = "Token verification failed. Please login again"
	msgInternal          = "Internal server error"
	msgDatabaseUnhealthy = "Database temporarily unavailable"
)

// statusFor maps a service error onto an HTTP status and client message.
// Unknown errors become 500 with a generic message.
func statusFor(err error) (int, string) {
	var (
		verr *common.ValidationError
		cerr *common.ConflictError
		merr *common.OTPMismatchError
	)

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.As(err, &cerr):
		return http.StatusConflict, cerr.Error()
	case errors.As(err, &merr):
		return http.StatusBadRequest, merr.Error()

	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid credentials"
	case errors.Is(err, common.ErrAccountInactive):
		return http.StatusForbidden, "Account is inactive"
	case errors.Is(err, common.ErrAccountNotVerified):
		return http.StatusForbidden, "Account not verified"
	case errors.Is(err, common.ErrPasswordChanged):
		return http.StatusConflict, "Password was changed by another request. Please try again"
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests. Please try again later"

	case errors.Is(err, common.ErrOTPNotFound):
		return http.StatusBadRequest, "No OTP found for this email. Please request a new OTP"
	case errors.Is(err, common.ErrOTPExpired):
		return http.StatusBadRequest, "OTP has expired. Please request a new OTP"
	case errors.Is(err, common.ErrOTPAttemptsExceeded):
		return http.StatusBadRequest, "Maximum verification attempts exceeded. Please request a new OTP"

	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, msgTokenExpired
	case errors.Is(err, common.ErrTokenNotYetValid):
		return http.StatusUnauthorized, msgTokenNotYetValid
	case errors.Is(err, common.ErrTokenRevoked):
		return http.StatusUnauthorized, msgTokenRevoked
	case errors.Is(err, common.ErrTokenMalformed), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, msgTokenInvalid
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, msgTokenFailed

	case errors.Is(err, common.ErrRestaurantNotFound):
		return http.StatusNotFound, "Restaurant not found"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "User not found"
	}

	return http.StatusInternalServerError, msgInternal
}

// writeError answers with the envelope for err. Rate limit errors also set
// Retry-After in whole seconds.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)

	var rl *common.RateLimitError
	if errors.As(err, &rl) {
		secs := int(rl.RetryAfter.Seconds())
		if rl.RetryAfter > 0 && secs == 0 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		message = rl.Error()
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	writeFailure(w, status, message)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return common.NewValidationError("body", "invalid JSON body")
	}
	return nil
}
