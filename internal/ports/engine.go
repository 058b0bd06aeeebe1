// Package ports declares the interfaces clipforge expects from its external
// collaborators: the render engine pipeline and object storage.
package ports

import "context"

// CompositionMeta is what the engine reports back for a selected composition.
type CompositionMeta struct {
	ID                string         `json:"id"`
	DurationInFrames  int            `json:"durationInFrames,omitempty"`
	FPS               int            `json:"fps,omitempty"`
	Width             int            `json:"width,omitempty"`
	Height            int            `json:"height,omitempty"`
	DefaultProps      map[string]any `json:"defaultProps,omitempty"`
}

// RenderInput carries the selected composition plus the per-job overrides the
// engine must honor over whatever the bundle declares.
type RenderInput struct {
	Composition      CompositionMeta
	DurationInFrames int
	FPS              int
	Width            int
	Height           int
	Props            map[string]any
	OutputPath       string
}

// RenderEngine is the external bundler/renderer pipeline, invoked as an
// opaque service. Bundle refs are opaque tokens owned by the engine.
type RenderEngine interface {
	// EnsureRuntime readies the engine's shared runtime dependency (e.g. a
	// headless browser). Idempotent; never torn down per job.
	EnsureRuntime(ctx context.Context) error

	// Bundle builds a servable bundle from the project entry point. The
	// resolve roots let generated code reach the host's shared libraries.
	Bundle(ctx context.Context, entryPoint string, resolveRoots []string) (string, error)

	// SelectComposition resolves a composition by id against a bundle.
	SelectComposition(ctx context.Context, bundleRef, compositionID string) (CompositionMeta, error)

	// Render produces the video file at in.OutputPath or fails.
	Render(ctx context.Context, bundleRef string, in RenderInput) error
}
