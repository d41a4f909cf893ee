package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/storekit/platform/pkg/httpapi"
)

var validate = validator.New()

// statusByCode maps service error codes onto HTTP statuses for every handler
// in this package.
var statusByCode = map[string]int{
	"ORG_NOT_FOUND":         http.StatusNotFound,
	"VALIDATION_ERROR":      http.StatusBadRequest,
	"ACCESS_DENIED":         http.StatusForbidden,
	"PROVISIONING_CONFLICT": http.StatusConflict,
	"PROVISIONING_FAILED":   http.StatusInternalServerError,
	"CONFIGURATION_ERROR":   http.StatusInternalServerError,
	"CERTIFICATE_NOT_READY": http.StatusBadRequest,
	"NO_CERTIFICATE":        http.StatusBadRequest,
}

// decodeJSON parses and validates a request body, writing the 400 itself on
// failure. Returns false when the handler should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	_ = httpapi.WriteServiceError(w, err, statusByCode)
}
