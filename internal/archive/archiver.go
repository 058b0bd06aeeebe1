// Package archive copies finished renders to a configured storage provider.
// Archival is strictly best-effort: the response payload is already on local
// disk, so upload failures are logged and never surfaced.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clipforge/internal/pkg/logger"
	"clipforge/internal/ports"
)

type Archiver struct {
	sp  ports.StorageProvider
	log *logger.Logger
}

// New creates an archiver. A nil provider yields a no-op archiver.
func New(sp ports.StorageProvider, log *logger.Logger) *Archiver {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Archiver{sp: sp, log: log.WithComponent("archive")}
}

// Archive uploads the job's output file under a date-scoped key.
func (a *Archiver) Archive(ctx context.Context, jobID, outputPath string) {
	if a == nil || a.sp == nil {
		return
	}
	log := a.log.WithJobID(jobID)

	f, err := os.Open(outputPath)
	if err != nil {
		log.Warn("archive skipped, output unreadable", "path", outputPath, "error", err.Error())
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		log.Warn("archive skipped, stat failed", "path", outputPath, "error", err.Error())
		return
	}

	key := fmt.Sprintf("archive/%s/%s", time.Now().UTC().Format("2006-01-02"), filepath.Base(outputPath))
	out, err := a.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: "video/mp4",
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		log.Warn("archive upload failed", "provider", a.sp.Provider(), "error", err.Error())
		return
	}

	log.Info("render archived", "provider", a.sp.Provider(), "object_key", out.ObjectKey, "size", out.Size)
}
