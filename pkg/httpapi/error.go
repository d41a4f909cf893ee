package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/storekit/platform/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteServiceError maps a coded service error onto its HTTP status. Unknown
// errors become opaque 500s so internals never leak to clients.
func WriteServiceError(w http.ResponseWriter, err error, statusByCode map[string]int) error {
	var coded *serrors.Error
	if errors.As(err, &coded) {
		status, ok := statusByCode[coded.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		return WriteError(w, status, coded.Code, coded.Message, coded.Meta)
	}
	return WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", nil)
}
