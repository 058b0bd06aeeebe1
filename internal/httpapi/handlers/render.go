package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"clipforge/internal/httpkit"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/render"
)

// SubmitRenderRequest is the inbound payload: the component source text and
// an optional output file name.
type SubmitRenderRequest struct {
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
}

// PostRender runs one render job inline and streams the finished video back
// with attachment disposition. The connection dropping mid-job does not stop
// the pipeline; stages and cleanup run to completion regardless.
func (h *Handler) PostRender(w http.ResponseWriter, r *http.Request) {
	// The request context would abort engine calls on client disconnect; the
	// job is fire-and-forget with respect to the caller, so detach from its
	// cancellation while keeping its values.
	ctx := context.WithoutCancel(r.Context())
	log := h.log.FromContext(ctx)

	var req SubmitRenderRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, string(errors.CodeValidation), "invalid json body", nil)
		return
	}

	res, err := h.orchestrator.Render(ctx, render.SubmitRequest{
		Source:     req.Source,
		OutputName: req.Filename,
	})
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}

	f, err := os.Open(res.OutputPath)
	if err != nil {
		log.Error("output file unreadable after render", "path", res.OutputPath, "error", err.Error())
		httpkit.WriteErr(w, 500, string(errors.CodeRender), "rendered output could not be read", nil)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	if st, statErr := f.Stat(); statErr == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(st.Size(), 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		log.Warn("response write interrupted", "job_id", res.JobID, "error", err.Error())
	}
}
