package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/nvim-installer/internal/logger"
)

// ArchiveFileMode is the mode of the downloaded archive.
const ArchiveFileMode os.FileMode = 0o644

// fetch downloads the archive and commits it under its remote file name.
// The body is received completely before anything is written, so an
// interrupted transfer never leaves a truncated archive behind.
func (r *runner) fetch(ctx context.Context) error {
	logger.InfoKV(ctx, "Downloading release archive", "url", r.report.URL)

	data, err := r.client.Download(ctx, r.report.URL)
	if err != nil {
		return networkFailure(StepFetch, err)
	}

	logger.DebugKV(ctx, "Download finished", "bytes", len(data))

	if err = r.commitArchive(data); err != nil {
		return filesystemFailure(StepFetch, err)
	}

	logger.InfoKV(ctx, "Saved release archive", "path", r.report.ArchivePath)

	return nil
}

// commitArchive atomically replaces the archive file with data.
// go-update swaps files by renaming, so the target has to exist first; a
// placeholder created for that is removed again when the swap fails.
func (r *runner) commitArchive(data []byte) error {
	path := r.report.ArchivePath

	created := false

	if _, err := r.work.Stat(path); errors.Is(err, fs.ErrNotExist) {
		placeholder, createErr := r.work.Create(path)
		if createErr != nil {
			return createErr
		}

		created = true

		if createErr = placeholder.Close(); createErr != nil {
			return errors.Join(createErr, r.work.Remove(path))
		}
	} else if err != nil {
		return err
	}

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: ArchiveFileMode,
	}

	err := goupdate.Apply(bytes.NewReader(data), options)
	if err != nil && created {
		if removeErr := r.work.Remove(path); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			return errors.Join(err, fmt.Errorf("remove placeholder: %w", removeErr))
		}
	}

	return err
}
