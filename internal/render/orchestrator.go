package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"clipforge/internal/archive"
	"clipforge/internal/ledger"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/ports"
	"clipforge/internal/rendercache"
)

// DefaultMaxSourceBytes bounds submitted source text (2 MiB). Enforced before
// any filesystem write.
const DefaultMaxSourceBytes = 2 << 20

// Deps wires the orchestrator. Ledger, Cache, and Archiver are optional;
// their nil methods are no-ops.
type Deps struct {
	Engine         ports.RenderEngine
	TempDir        string
	OutputDir      string
	ResolveRoots   []string
	MaxSourceBytes int
	Ledger         *ledger.Ledger
	Cache          *rendercache.Cache
	Archiver       *archive.Archiver
	Log            *logger.Logger
}

// Orchestrator runs one job through the full pipeline: validate, persist
// source, extract config, synthesize project, bundle, select, render,
// deliver. It owns every temporary resource a job creates and releases them
// on every exit path.
type Orchestrator struct {
	engine         ports.RenderEngine
	tempDir        string
	outputDir      string
	resolveRoots   []string
	maxSourceBytes int
	ledger         *ledger.Ledger
	cache          *rendercache.Cache
	archiver       *archive.Archiver
	log            *logger.Logger

	runtimeMu    sync.Mutex
	runtimeReady bool
}

func New(d Deps) *Orchestrator {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	maxBytes := d.MaxSourceBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSourceBytes
	}

	return &Orchestrator{
		engine:         d.Engine,
		tempDir:        d.TempDir,
		outputDir:      d.OutputDir,
		resolveRoots:   d.ResolveRoots,
		maxSourceBytes: maxBytes,
		ledger:         d.Ledger,
		cache:          d.Cache,
		archiver:       d.Archiver,
		log:            log.WithComponent("orchestrator"),
	}
}

// SubmitRequest is one render submission.
type SubmitRequest struct {
	Source     string
	OutputName string
}

// Result points at the finished artifact. The output file stays on disk for
// the reaper to sweep later; it is the response payload source.
type Result struct {
	JobID       string
	OutputPath  string
	Filename    string
	ContentType string
}

// Render runs a single job to completion or failure. There are no retries and
// no orchestrator-imposed timeouts; stage latency is bounded only by the
// engine's own limits.
func (o *Orchestrator) Render(ctx context.Context, req SubmitRequest) (*Result, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	log := o.log.FromContext(ctx).WithJobID(jobID)

	filename := outputFilename(jobID, req.OutputName)
	outputPath := filepath.Join(o.outputDir, filename)
	sourcePath := filepath.Join(o.tempDir, jobID+".tsx")

	cacheKey := rendercache.Key(req.Source, filename)
	if path, ok := o.cache.Lookup(ctx, cacheKey); ok {
		if _, err := os.Stat(path); err == nil {
			log.Info("render cache hit", "output", path)
			return &Result{
				JobID:       jobID,
				OutputPath:  path,
				Filename:    filepath.Base(path),
				ContentType: "video/mp4",
			}, nil
		}
	}

	o.ledger.JobReceived(ctx, jobID, filename, len(req.Source))

	res, err := o.run(ctx, jobID, sourcePath, outputPath, filename, req, log)
	if err != nil {
		o.ledger.JobFailed(ctx, jobID, err)
		return nil, withJobID(err, jobID)
	}

	o.ledger.JobDone(ctx, jobID, res.OutputPath)
	o.cache.Store(ctx, cacheKey, res.OutputPath)
	o.archiver.Archive(ctx, jobID, res.OutputPath)

	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, jobID, sourcePath, outputPath, filename string, req SubmitRequest, log *logger.Logger) (*Result, error) {
	if err := os.WriteFile(sourcePath, []byte(req.Source), 0o600); err != nil {
		return nil, errors.Wrap(err, "orchestrator.persist", "failed to persist source text")
	}

	// Failure-path cleanup: job-scoped source and output are best-effort
	// deleted; the temp project dir has its own unconditional defer below.
	delivered := false
	defer func() {
		if !delivered {
			o.removeQuiet(sourcePath, log)
			o.removeQuiet(outputPath, log)
		}
	}()

	cfg, err := ExtractConfig(req.Source, sourcePath)
	if err != nil {
		return nil, err
	}
	log.Debug("config extracted",
		"composition_id", cfg.ID,
		"duration_s", cfg.DurationInSeconds,
		"fps", cfg.FPS,
		"width", cfg.Width,
		"height", cfg.Height,
	)

	if err := o.ensureRuntime(ctx); err != nil {
		return nil, err
	}

	style := DetectExportStyle(req.Source, sourcePath)
	proj, err := SynthesizeProject(sourcePath, cfg, style)
	if proj != nil {
		defer func() {
			if rmErr := os.RemoveAll(proj.Root); rmErr != nil {
				log.Warn("temp project cleanup failed", "dir", proj.Root, "error", rmErr.Error())
			}
		}()
	}
	if err != nil {
		return nil, err
	}
	log.Debug("project synthesized", "root", proj.Root, "export", string(style.Kind))

	bundleRef, err := o.engine.Bundle(ctx, proj.EntryFile, o.resolveRoots)
	if err != nil {
		return nil, err
	}
	log.Debug("bundle produced", "bundle_ref", bundleRef)

	meta, err := o.engine.SelectComposition(ctx, bundleRef, cfg.ID)
	if err != nil {
		return nil, err
	}

	err = o.engine.Render(ctx, bundleRef, ports.RenderInput{
		Composition:      meta,
		DurationInFrames: cfg.DurationInFrames(),
		FPS:              cfg.FPS,
		Width:            cfg.Width,
		Height:           cfg.Height,
		Props:            cfg.DefaultProps,
		OutputPath:       outputPath,
	})
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(outputPath)
	if err != nil || st.Size() == 0 {
		return nil, errors.New(errors.CodeRender,
			"engine reported success but produced no output")
	}

	// Success: the job-scoped source goes away before the response is sent;
	// the output file stays for the reaper.
	delivered = true
	o.removeQuiet(sourcePath, log)
	log.Info("render delivered", "output", outputPath, "size", st.Size())

	return &Result{
		JobID:       jobID,
		OutputPath:  outputPath,
		Filename:    filename,
		ContentType: "video/mp4",
	}, nil
}

func (o *Orchestrator) validate(req SubmitRequest) error {
	if strings.TrimSpace(req.Source) == "" {
		return errors.Validation("source text is required")
	}
	if len(req.Source) > o.maxSourceBytes {
		return errors.Validationf("source text exceeds the %d byte limit", o.maxSourceBytes)
	}
	return nil
}

// ensureRuntime readies the engine's shared runtime dependency once per
// process. A failed attempt is retried by the next job; a successful one is
// never repeated and never torn down.
func (o *Orchestrator) ensureRuntime(ctx context.Context) error {
	o.runtimeMu.Lock()
	defer o.runtimeMu.Unlock()

	if o.runtimeReady {
		return nil
	}
	if err := o.engine.EnsureRuntime(ctx); err != nil {
		return err
	}
	o.runtimeReady = true
	return nil
}

// removeQuiet deletes a job-scoped file. Deletion failures are logged and
// never escalated.
func (o *Orchestrator) removeQuiet(path string, log *logger.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("cleanup failed", "path", path, "error", err.Error())
	}
}

func withJobID(err error, jobID string) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.WithField("job_id", jobID)
	}
	return errors.Wrap(err, "orchestrator", "render job failed").WithField("job_id", jobID)
}

// outputFilename picks the job's output name: the sanitized requested name
// (forced to .mp4) or the job id.
func outputFilename(jobID, requested string) string {
	name := sanitizeFilename(requested)
	if name == "" {
		name = jobID
	}
	if !strings.HasSuffix(strings.ToLower(name), ".mp4") {
		name += ".mp4"
	}
	return name
}

func sanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
