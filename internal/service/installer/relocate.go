package installer

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oshokin/nvim-installer/internal/config"
	"github.com/oshokin/nvim-installer/internal/filesystem"
	"github.com/oshokin/nvim-installer/internal/logger"
)

// relocate moves the extracted tree into the install prefix.
func (r *runner) relocate(ctx context.Context) error {
	var (
		source      = r.layout.ExtractedDir(r.release)
		destination = r.report.InstallDir
	)

	logger.InfoKV(ctx, "Moving release into the install prefix",
		"from", source, "to", destination)

	if err := r.system.MkdirAll(r.layout.InstallParent(), filesystem.DirMode); err != nil {
		return filesystemFailure(StepRelocate, err)
	}

	exists, err := filesystem.Exists(r.system, destination)
	if err != nil {
		return filesystemFailure(StepRelocate, err)
	}

	if exists {
		proceed, conflictErr := r.resolveInstallConflict(ctx, source, destination)
		if conflictErr != nil || !proceed {
			return conflictErr
		}
	}

	if err = filesystem.Move(r.system, source, destination); err != nil {
		return filesystemFailure(StepRelocate, err)
	}

	return nil
}

// resolveInstallConflict applies the conflict policy to an existing install
// directory. It reports whether the move should still happen.
func (r *runner) resolveInstallConflict(ctx context.Context, source, destination string) (bool, error) {
	switch r.cfg.OnConflict {
	case config.ConflictSkip:
		logger.WarnKV(ctx, "Install directory exists, keeping it", "path", destination)

		r.report.Skipped++

		if err := r.work.RemoveAll(source); err != nil {
			return false, filesystemFailure(StepRelocate, err)
		}

		return false, nil
	case config.ConflictReplace:
		logger.WarnKV(ctx, "Install directory exists, replacing it", "path", destination)

		r.warnRunningExecutables(ctx, source)

		if err := r.system.RemoveAll(destination); err != nil {
			return false, filesystemFailure(StepRelocate, err)
		}

		return true, nil
	default:
		return false, conflictFailure(StepRelocate, destination)
	}
}

// warnRunningExecutables logs processes started from executables the new
// release ships. They keep the replaced files open until they exit.
func (r *runner) warnRunningExecutables(ctx context.Context, source string) {
	entries, err := afero.ReadDir(r.work, filepath.Join(source, "bin"))
	if err != nil {
		return
	}

	names := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		names[entry.Name()] = struct{}{}
	}

	processes, err := r.processes()
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)

		return
	}

	for _, process := range processes {
		if _, found := names[process.Executable()]; found {
			logger.WarnKV(ctx, "Executable of the replaced release is still running",
				"executable", process.Executable(), "pid", process.Pid())
		}
	}
}
