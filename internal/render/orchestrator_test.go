package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/pkg/errors"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/ports"
)

// fakeEngine records calls and simulates the external pipeline. Render writes
// placeholder bytes to the output path unless a stage is overridden to fail.
type fakeEngine struct {
	ensureCalls int
	ensureErr   error
	bundleErr   error
	selectErr   error
	renderErr   error

	projectRoot string
	rootContent string
}

func (f *fakeEngine) EnsureRuntime(ctx context.Context) error {
	f.ensureCalls++
	return f.ensureErr
}

func (f *fakeEngine) Bundle(ctx context.Context, entryPoint string, resolveRoots []string) (string, error) {
	if f.bundleErr != nil {
		return "", f.bundleErr
	}
	f.projectRoot = filepath.Dir(filepath.Dir(entryPoint))
	if b, err := os.ReadFile(filepath.Join(filepath.Dir(entryPoint), "Root.tsx")); err == nil {
		f.rootContent = string(b)
	}
	return "bundle-ref-1", nil
}

func (f *fakeEngine) SelectComposition(ctx context.Context, bundleRef, compositionID string) (ports.CompositionMeta, error) {
	if f.selectErr != nil {
		return ports.CompositionMeta{}, f.selectErr
	}
	return ports.CompositionMeta{ID: compositionID}, nil
}

func (f *fakeEngine) Render(ctx context.Context, bundleRef string, in ports.RenderInput) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	return os.WriteFile(in.OutputPath, []byte("fake-mp4"), 0o644)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func newTestOrchestrator(t *testing.T, eng ports.RenderEngine) (*Orchestrator, string, string) {
	t.Helper()
	tempDir := t.TempDir()
	outputDir := t.TempDir()
	o := New(Deps{
		Engine:    eng,
		TempDir:   tempDir,
		OutputDir: outputDir,
		Log:       testLogger(),
	})
	return o, tempDir, outputDir
}

const validSource = `
export const compositionConfig = { id: 'demo', fps: 24, width: 640, height: 480, durationInSeconds: 2 };
export default function Demo() { return null; }
`

func TestRenderSuccess(t *testing.T) {
	eng := &fakeEngine{}
	o, tempDir, _ := newTestOrchestrator(t, eng)

	res, err := o.Render(context.Background(), SubmitRequest{Source: validSource})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.ContentType != "video/mp4" {
		t.Errorf("expected video/mp4, got %s", res.ContentType)
	}
	if !strings.HasSuffix(res.Filename, ".mp4") {
		t.Errorf("expected .mp4 filename, got %s", res.Filename)
	}

	// Output stays on disk for the reaper; it is the response payload source.
	if _, err := os.Stat(res.OutputPath); err != nil {
		t.Errorf("output file must remain after success: %v", err)
	}

	// Job-scoped source is gone before delivery.
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("temp source must be removed on success, found %d entries", len(entries))
	}

	// Temp project dir is gone on every exit path.
	if eng.projectRoot == "" {
		t.Fatal("bundle was never invoked")
	}
	if _, err := os.Stat(eng.projectRoot); !os.IsNotExist(err) {
		t.Errorf("temp project dir must not survive the job: %v", err)
	}

	// The synthesized root reflects the extracted config.
	for _, want := range []string{`id="demo"`, "durationInFrames={48}", "fps={24}", "width={640}", "height={480}"} {
		if !strings.Contains(eng.rootContent, want) {
			t.Errorf("synthesized root missing %q", want)
		}
	}
}

func TestRenderFailureCleansUp(t *testing.T) {
	eng := &fakeEngine{renderErr: fmt.Errorf("browser crashed")}
	o, tempDir, outputDir := newTestOrchestrator(t, eng)

	_, err := o.Render(context.Background(), SubmitRequest{Source: validSource})
	if err == nil {
		t.Fatal("expected render failure")
	}

	for _, dir := range []string{tempDir, outputDir} {
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("expected %s empty after failed job, found %d entries", dir, len(entries))
		}
	}
	if _, statErr := os.Stat(eng.projectRoot); !os.IsNotExist(statErr) {
		t.Errorf("temp project dir must not survive a failed job")
	}
}

func TestRenderBundleFailure(t *testing.T) {
	eng := &fakeEngine{bundleErr: errors.New(errors.CodeBundle, "entry point unresolvable")}
	o, tempDir, outputDir := newTestOrchestrator(t, eng)

	_, err := o.Render(context.Background(), SubmitRequest{Source: validSource})
	if !errors.IsCode(err, errors.CodeBundle) {
		t.Errorf("expected BUNDLE_ERROR, got %s", errors.GetCode(err))
	}

	for _, dir := range []string{tempDir, outputDir} {
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("expected %s empty after failed job", dir)
		}
	}
}

func TestRenderConfigExtractionFailure(t *testing.T) {
	eng := &fakeEngine{}
	o, tempDir, _ := newTestOrchestrator(t, eng)

	_, err := o.Render(context.Background(), SubmitRequest{Source: "export default () => null;"})
	if !errors.IsCode(err, errors.CodeConfigExtraction) {
		t.Errorf("expected CONFIG_EXTRACTION_ERROR, got %s", errors.GetCode(err))
	}

	fields := errors.GetFields(err)
	if id, _ := fields["job_id"].(string); id == "" {
		t.Error("failure must carry the job id")
	}

	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Error("temp source must be removed after config failure")
	}
	if eng.projectRoot != "" {
		t.Error("bundler must not run after config failure")
	}
}

func TestRenderValidation(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &fakeEngine{})

	tests := []struct {
		name   string
		source string
	}{
		{"empty source", ""},
		{"whitespace source", "   \n\t"},
		{"oversized source", strings.Repeat("x", DefaultMaxSourceBytes+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Render(context.Background(), SubmitRequest{Source: tt.source})
			if !errors.IsCode(err, errors.CodeValidation) {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestEnsureRuntimeRetriesAfterFailure(t *testing.T) {
	eng := &fakeEngine{ensureErr: fmt.Errorf("browser download failed")}
	o, _, _ := newTestOrchestrator(t, eng)

	if _, err := o.Render(context.Background(), SubmitRequest{Source: validSource}); err == nil {
		t.Fatal("expected failure while runtime is unavailable")
	}
	if eng.ensureCalls != 1 {
		t.Fatalf("expected one ensure attempt, got %d", eng.ensureCalls)
	}

	// Runtime recovers; the next job retries initialization.
	eng.ensureErr = nil
	if _, err := o.Render(context.Background(), SubmitRequest{Source: validSource}); err != nil {
		t.Fatalf("unexpected error after runtime recovery: %v", err)
	}
	if eng.ensureCalls != 2 {
		t.Fatalf("expected a second ensure attempt, got %d", eng.ensureCalls)
	}

	// Once ready, later jobs skip initialization.
	if _, err := o.Render(context.Background(), SubmitRequest{Source: validSource}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eng.ensureCalls != 2 {
		t.Errorf("runtime must initialize once, got %d calls", eng.ensureCalls)
	}
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		jobID     string
		requested string
		want      string
	}{
		{"job-1", "", "job-1.mp4"},
		{"job-1", "final", "final.mp4"},
		{"job-1", "final.mp4", "final.mp4"},
		{"job-1", "../escape", "_escape.mp4"},
		{"job-1", "my clip", "my_clip.mp4"},
	}

	for _, tt := range tests {
		if got := outputFilename(tt.jobID, tt.requested); got != tt.want {
			t.Errorf("outputFilename(%q, %q) = %q, want %q", tt.jobID, tt.requested, got, tt.want)
		}
	}
}
