package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// statusFor maps an error to its HTTP status and response body.
//
// Timeouts are checked before generation failures since a failed generation can wrap a timeout.
func statusFor(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, shared.ErrNoCredentials):
		return http.StatusUnauthorized, ErrorResponse{
			Error:            shared.ErrNoCredentials.Error(),
			ErrorDescription: "log in with Spotify to continue",
		}
	case errors.Is(err, shared.ErrNoTracksFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error()}
	case errors.Is(err, shared.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, ErrorResponse{Error: shared.ErrUpstreamTimeout.Error()}
	case errors.Is(err, shared.ErrGenerateFailed):
		return http.StatusInternalServerError, ErrorResponse{
			Error:            shared.ErrGenerateFailed.Error(),
			ErrorDescription: services.ErrorDescription(err),
		}
	case errors.Is(err, shared.ErrUpstreamAuth):
		return http.StatusInternalServerError, ErrorResponse{
			Error:            shared.ErrUpstreamAuth.Error(),
			ErrorDescription: services.ErrorDescription(err),
		}
	case errors.Is(err, shared.ErrUpstreamAPI):
		return http.StatusInternalServerError, ErrorResponse{
			Error:            shared.ErrUpstreamAPI.Error(),
			ErrorDescription: services.ErrorDescription(err),
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
	}
}

// writeJSON writes v as the JSON response body with the given status.
func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "err", err)
	}
}

// writeError maps err with [statusFor] and writes it as an [ErrorResponse].
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		a.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	a.writeJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into v. Malformed bodies wrap [shared.ErrValidation].
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", shared.ErrValidation, err)
	}
	return nil
}
