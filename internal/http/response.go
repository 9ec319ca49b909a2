package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fingestor/internal/core"
	"fingestor/internal/flow"
	applog "fingestor/internal/log"
)

// Response is the JSON envelope of every API response.
type Response struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
	Field string `json:"field,omitempty"`
	Count int    `json:"count,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{Data: data})
}

func write(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// errorStatus maps the domain error kinds onto HTTP statuses.
func errorStatus(err error) (int, string) {
	var (
		verr *core.ValidationError
		rerr *core.ReferentialIntegrityError
		merr *core.MalformedImportError
		aerr *core.AtomicityError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, applog.ErrorTypeValidation
	case errors.As(err, &merr):
		return http.StatusBadRequest, applog.ErrorTypeMalformed
	case errors.As(err, &rerr):
		return http.StatusConflict, applog.ErrorTypeConflict
	case errors.Is(err, flow.ErrInvalidTransition):
		return http.StatusConflict, applog.ErrorTypeConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, applog.ErrorTypeNotFound
	case errors.As(err, &aerr):
		return http.StatusInternalServerError, applog.ErrorTypeDatabase
	default:
		return http.StatusInternalServerError, applog.ErrorTypeInternal
	}
}

// writeError reports err in the envelope. Server errors are logged with
// their detail and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, errorType := errorStatus(err)
	body := Response{Error: err.Error()}

	var verr *core.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	var rerr *core.ReferentialIntegrityError
	if errors.As(err, &rerr) {
		body.Count = rerr.Count
	}

	if status >= http.StatusInternalServerError {
		fields := applog.NewFields().
			WithError(err).
			WithErrorType(errorType).
			WithRequest(r, routePattern(r))
		applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
		body.Error = http.StatusText(status)
	}
	write(w, status, body)
}
