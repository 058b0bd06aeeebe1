package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipforge/internal/pkg/errors"
)

func TestWriteErrorMapsCodeAndJobID(t *testing.T) {
	err := errors.New(errors.CodeRender, "frame encoding failed").
		WithField("job_id", "job-42").
		WithField("stage", "render")

	rec := httptest.NewRecorder()
	WriteError(rec, err)

	if rec.Code != 500 {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var env ErrorEnvelope
	if jsonErr := json.Unmarshal(rec.Body.Bytes(), &env); jsonErr != nil {
		t.Fatalf("invalid envelope: %v", jsonErr)
	}
	if env.Error != "RENDER_ERROR" {
		t.Errorf("error = %q", env.Error)
	}
	if env.JobID != "job-42" {
		t.Errorf("jobId = %q", env.JobID)
	}
	if env.Details["stage"] != "render" {
		t.Errorf("details = %v", env.Details)
	}
	if _, ok := env.Details["job_id"]; ok {
		t.Error("job_id must be promoted out of details")
	}
}

func TestWriteErrorClientFault(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.Validation("source text is required"))

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var env ErrorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Error != "VALIDATION_ERROR" {
		t.Errorf("error = %q", env.Error)
	}
	if env.JobID != "" {
		t.Errorf("validation failures have no job token, got %q", env.JobID)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var v struct {
		Source string `json:"source"`
	}
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(`{"source":"x","bogus":1}`))
	if err := DecodeJSON(req, &v); err == nil {
		t.Error("unknown fields must be rejected")
	}
}

func TestWriteJSONSetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 200, map[string]string{"status": "ok"})

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
