package installer

import (
	"context"
	"errors"
	"io/fs"

	"github.com/oshokin/nvim-installer/internal/logger"
)

// cleanup removes the archive. A missing archive is fine.
func (r *runner) cleanup(ctx context.Context) error {
	err := r.work.Remove(r.report.ArchivePath)

	switch {
	case err == nil:
		logger.DebugKV(ctx, "Removed release archive", "path", r.report.ArchivePath)
	case errors.Is(err, fs.ErrNotExist):
		logger.DebugKV(ctx, "Release archive already gone", "path", r.report.ArchivePath)
	default:
		return filesystemFailure(StepCleanup, err)
	}

	return nil
}
