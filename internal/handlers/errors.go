package handlers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"mathwizard/internal/logging"
	"mathwizard/internal/service"
	"mathwizard/internal/validation"
)

// envelope is the JSON body of every API response
type envelope map[string]any

func respondJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondSuccess writes {"success": true, ...payload}
func respondSuccess(w http.ResponseWriter, status int, payload envelope) {
	body := envelope{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	respondJSON(w, status, body)
}

// respondWithStatus writes {"success": false, "error": msg}
func respondWithStatus(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, envelope{"success": false, "error": msg})
}

// respondWithError maps a service error to its status code. Errors outside the
// service taxonomy are logged and reported as a generic 500.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		respondWithStatus(w, status, ErrInternalServerError)
		return
	}
	respondWithStatus(w, status, err.Error())
}

func statusForError(err error) int {
	var reqErr *validation.RequestValidationError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrQuotaExceeded),
		errors.Is(err, service.ErrLimitExceeded):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUnverified), errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a size-limited JSON body into dst and validates its tags.
// It writes the 400 response itself and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithStatus(w, http.StatusBadRequest, ErrInvalidRequestBody)
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondWithStatus(w, http.StatusBadRequest, verr.Error())
		return false
	}
	return true
}
