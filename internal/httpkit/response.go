// Package httpkit holds small HTTP helpers shared by the API surface.
package httpkit

import (
	"encoding/json"
	"net/http"

	"clipforge/internal/pkg/errors"
)

// ErrorEnvelope is the structured error payload: 400s for client faults,
// 500s for pipeline faults. JobID is set once a job token exists.
type ErrorEnvelope struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	JobID   string         `json:"jobId,omitempty"`
}

func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteErr writes an explicit error envelope.
func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	WriteJSON(w, status, ErrorEnvelope{
		Error:   code,
		Message: msg,
		Details: details,
	})
}

// WriteError maps a pipeline error onto the envelope, pulling the job id out
// of the error's context fields when present.
func WriteError(w http.ResponseWriter, err error) {
	env := ErrorEnvelope{
		Error:   string(errors.GetCode(err)),
		Message: err.Error(),
	}

	if fields := errors.GetFields(err); len(fields) > 0 {
		details := make(map[string]any, len(fields))
		for k, v := range fields {
			if k == "job_id" {
				if id, ok := v.(string); ok {
					env.JobID = id
				}
				continue
			}
			details[k] = v
		}
		if len(details) > 0 {
			env.Details = details
		}
	}

	WriteJSON(w, errors.GetHTTPStatus(err), env)
}
