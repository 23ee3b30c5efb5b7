package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/iota-uz/payroll-config/pkg/serrors"
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

// WriteServiceError renders err using the status and code of its serrors
// classification. Unclassified errors become a 500.
func WriteServiceError(w http.ResponseWriter, err error) error {
	se, ok := serrors.AsError(err)
	if !ok {
		return WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", nil)
	}
	meta := map[string]string{"kind": string(se.Kind)}
	if se.Entity != "" {
		meta["entity"] = se.Entity
	}
	if se.Field != "" {
		meta["field"] = se.Field
	}
	return WriteError(w, se.HTTPStatus(), se.Code, se.Error(), meta)
}
