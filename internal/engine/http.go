// Package engine provides the HTTP adapter to the external render engine
// sidecar that hosts the bundler, composition selection, and frame rendering.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clipforge/internal/pkg/errors"
	"clipforge/internal/ports"
)

// HTTPEngine talks to the engine sidecar over HTTP. Renders can take minutes,
// so the client timeout is generous; the orchestrator adds none of its own.
type HTTPEngine struct {
	baseURL   string
	verbosity string
	client    *http.Client
}

func NewHTTPEngine(baseURL, verbosity string) *HTTPEngine {
	return &HTTPEngine{
		baseURL:   baseURL,
		verbosity: verbosity,
		client:    &http.Client{Timeout: 15 * time.Minute},
	}
}

func (e *HTTPEngine) EnsureRuntime(ctx context.Context) error {
	body := map[string]any{"logLevel": e.verbosity}
	if err := e.post(ctx, "/runtime/ensure", body, nil); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable,
			"engine.runtime", "engine runtime not ready")
	}
	return nil
}

func (e *HTTPEngine) Bundle(ctx context.Context, entryPoint string, resolveRoots []string) (string, error) {
	body := map[string]any{
		"entryPoint":   entryPoint,
		"resolveRoots": resolveRoots,
	}
	var out struct {
		BundleRef string `json:"bundleRef"`
	}
	if err := e.post(ctx, "/bundle", body, &out); err != nil {
		return "", errors.WrapWithCode(err, errors.CodeBundle,
			"engine.bundle", "bundling failed")
	}
	return out.BundleRef, nil
}

func (e *HTTPEngine) SelectComposition(ctx context.Context, bundleRef, compositionID string) (ports.CompositionMeta, error) {
	body := map[string]any{
		"bundleRef":     bundleRef,
		"compositionId": compositionID,
	}
	var out ports.CompositionMeta
	if err := e.post(ctx, "/compositions/select", body, &out); err != nil {
		return ports.CompositionMeta{}, errors.WrapWithCode(err, errors.CodeBundle,
			"engine.select", fmt.Sprintf("composition %q not selectable", compositionID))
	}
	return out, nil
}

func (e *HTTPEngine) Render(ctx context.Context, bundleRef string, in ports.RenderInput) error {
	body := map[string]any{
		"bundleRef":   bundleRef,
		"composition": in.Composition,
		"overrides": map[string]any{
			"durationInFrames": in.DurationInFrames,
			"fps":              in.FPS,
			"width":            in.Width,
			"height":           in.Height,
		},
		"props":      in.Props,
		"outputPath": in.OutputPath,
	}
	if err := e.post(ctx, "/render", body, nil); err != nil {
		return errors.WrapWithCode(err, errors.CodeRender,
			"engine.render", "render failed")
	}
	return nil
}

func (e *HTTPEngine) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("engine http %d: %s", res.StatusCode, string(msg))
	}

	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}
