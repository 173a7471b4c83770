package installer

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/spf13/afero"

	"github.com/oshokin/nvim-installer/internal/config"
	"github.com/oshokin/nvim-installer/internal/filesystem"
	"github.com/oshokin/nvim-installer/internal/logger"
)

// publish links every direct entry of the configured subdirectories of the
// install directory into the matching link directory. Hidden entries are
// skipped, as a shell glob would.
func (r *runner) publish(ctx context.Context) error {
	for _, sub := range r.layout.LinkDirs {
		if err := r.publishDir(ctx, sub); err != nil {
			return err
		}
	}

	return nil
}

func (r *runner) publishDir(ctx context.Context, sub string) error {
	source := r.layout.SourceDir(r.release, sub)

	entries, err := afero.ReadDir(r.system, source)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WarnKV(ctx, "Release has no such directory, nothing to link", "path", source)

		return nil
	}

	if err != nil {
		return filesystemFailure(StepPublish, err)
	}

	linkDir := r.layout.LinkDir(sub)
	if err = r.system.MkdirAll(linkDir, filesystem.DirMode); err != nil {
		return filesystemFailure(StepPublish, err)
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path, target := r.layout.LinkPath(r.release, sub, entry.Name())

		created, err := r.link(ctx, target, path)
		if err != nil {
			return err
		}

		if created {
			r.report.Links = append(r.report.Links, Link{Path: path, Target: target})
		}
	}

	return nil
}

// link creates path pointing at target, honouring the conflict policy.
// It reports whether a link was created.
func (r *runner) link(ctx context.Context, target, path string) (bool, error) {
	info, err := filesystem.Lstat(r.system, path)

	switch {
	case err == nil:
		switch r.cfg.OnConflict {
		case config.ConflictSkip:
			logger.WarnKV(ctx, "Link destination exists, keeping it", "path", path)

			r.report.Skipped++

			return false, nil
		case config.ConflictReplace:
			if !filesystem.IsSymlink(info) {
				return false, conflictFailure(StepPublish, path)
			}

			if err = r.system.Remove(path); err != nil {
				return false, filesystemFailure(StepPublish, err)
			}
		default:
			return false, conflictFailure(StepPublish, path)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, filesystemFailure(StepPublish, err)
	}

	if err = filesystem.Symlink(r.system, target, path); err != nil {
		return false, filesystemFailure(StepPublish, err)
	}

	logger.DebugKV(ctx, "Linked", "path", path, "target", target)

	return true, nil
}
