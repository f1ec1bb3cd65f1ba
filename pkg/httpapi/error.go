package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iota-uz/timekeeper/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses on the ops endpoints.
// Code carries the workflow error taxonomy (WORKFLOW_*, FIELD_REQUIRED)
// when the failure originated in a service, Meta its template data.
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

// WriteServiceError renders a service failure. A serrors.BaseError in the
// chain keeps its machine-checkable code and template data; anything else
// degrades to fallbackCode.
func WriteServiceError(w http.ResponseWriter, status int, fallbackCode string, err error) error {
	var base *serrors.BaseError
	if errors.As(err, &base) {
		return WriteError(w, status, base.Code, base.Message, base.TemplateData)
	}
	return WriteError(w, status, fallbackCode, err.Error(), nil)
}
