package installer

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/nvim-installer/internal/filesystem"
	"github.com/oshokin/nvim-installer/internal/logger"
)

var (
	errUnsafePath       = errors.New("entry escapes the work directory")
	errUnsupportedEntry = errors.New("unsupported archive entry type")
	errMissingTopDir    = errors.New("archive does not contain the release directory")
)

// extract unpacks the gzip-compressed tar archive into the work directory,
// keeping the archive's own directory structure, modes and modification times.
func (r *runner) extract(ctx context.Context) error {
	logger.InfoKV(ctx, "Unpacking release archive", "path", r.report.ArchivePath)

	archive, err := r.work.Open(r.report.ArchivePath)
	if err != nil {
		return filesystemFailure(StepExtract, err)
	}

	defer func() {
		_ = archive.Close()
	}()

	u := &unpacker{runner: r, base: r.layout.WorkDir}
	if err = u.unpack(ctx, archive); err != nil {
		return err
	}

	extracted := r.layout.ExtractedDir(r.release)

	info, err := r.work.Stat(extracted)
	if err != nil || !info.IsDir() {
		return archiveFailure(StepExtract, fmt.Errorf("%s: %w", r.release.DirName(), errMissingTopDir))
	}

	logger.InfoKV(ctx, "Unpacked release archive", "path", extracted, "entries", u.entries)

	return nil
}

// unpacker writes tar entries below base.
type unpacker struct {
	*runner

	// base is the directory entries are resolved against.
	base string
	// entries counts the processed headers.
	entries int
	// dirs collects directory modes applied once their content is written.
	dirs []dirMode
}

type dirMode struct {
	path string
	mode os.FileMode
}

// sourceReader remembers read errors so a truncated archive is told apart
// from a failing destination write.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}

	return n, err
}

func (u *unpacker) unpack(ctx context.Context, archive io.Reader) error {
	gz, err := gzip.NewReader(archive)
	if err != nil {
		return archiveFailure(StepExtract, fmt.Errorf("open gzip stream: %w", err))
	}

	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		if err = ctx.Err(); err != nil {
			return fmt.Errorf("interrupted while unpacking: %w", err)
		}

		var header *tar.Header

		header, err = tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return archiveFailure(StepExtract, fmt.Errorf("read tar header: %w", err))
		}

		u.entries++

		logger.DebugKV(ctx, "Unpacking entry", "name", header.Name)

		if err = u.unpackEntry(header, tr); err != nil {
			return err
		}
	}

	// Drain the gzip trailer so a corrupt checksum is noticed.
	if _, err = io.Copy(io.Discard, gz); err != nil {
		return archiveFailure(StepExtract, fmt.Errorf("read gzip trailer: %w", err))
	}

	for i := len(u.dirs) - 1; i >= 0; i-- {
		if err = u.work.Chmod(u.dirs[i].path, u.dirs[i].mode); err != nil {
			return filesystemFailure(StepExtract, err)
		}
	}

	return nil
}

func (u *unpacker) unpackEntry(header *tar.Header, tr *tar.Reader) error {
	target, err := u.resolve(header.Name)
	if err != nil {
		return archiveFailure(StepExtract, err)
	}

	// Directories and regular files are opened in place, so an existing
	// symlink at the target itself is refused too.
	leaf := header.Typeflag == tar.TypeDir || header.Typeflag == tar.TypeReg
	if err = u.refuseSymlinks(target, leaf); err != nil {
		return err
	}

	mode := header.FileInfo().Mode().Perm()

	switch header.Typeflag {
	case tar.TypeDir:
		if target == u.base {
			return nil
		}

		u.dirs = append(u.dirs, dirMode{path: target, mode: mode})

		// Keep the directory writable until its content is in place.
		if err = u.work.MkdirAll(target, mode|0o700); err != nil {
			return filesystemFailure(StepExtract, err)
		}

		return nil
	case tar.TypeReg:
		return u.writeFile(header, tr, target, mode)
	case tar.TypeSymlink:
		return u.writeSymlink(header, target)
	case tar.TypeLink:
		return u.writeHardlink(header, target, mode)
	case tar.TypeXGlobalHeader:
		return nil
	default:
		return archiveFailure(StepExtract,
			fmt.Errorf("%s: %w: %q", header.Name, errUnsupportedEntry, header.Typeflag))
	}
}

func (u *unpacker) writeFile(header *tar.Header, tr *tar.Reader, target string, mode os.FileMode) error {
	if err := u.prepareParent(target); err != nil {
		return err
	}

	file, err := u.work.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return filesystemFailure(StepExtract, err)
	}

	source := &sourceReader{r: tr}

	_, err = io.Copy(file, source)
	closeErr := file.Close()

	switch {
	case source.err != nil:
		return archiveFailure(StepExtract, fmt.Errorf("%s: %w", header.Name, source.err))
	case err != nil:
		return filesystemFailure(StepExtract, err)
	case closeErr != nil:
		return filesystemFailure(StepExtract, closeErr)
	}

	// OpenFile is subject to the umask and keeps the mode of an existing file.
	if err = u.work.Chmod(target, mode); err != nil {
		return filesystemFailure(StepExtract, err)
	}

	if err = u.work.Chtimes(target, header.ModTime, header.ModTime); err != nil {
		return filesystemFailure(StepExtract, err)
	}

	return nil
}

// writeSymlink recreates a symlink. Absolute targets and targets leaving the
// work directory are refused; later entries are never written through the
// link anyway, see refuseSymlinks.
func (u *unpacker) writeSymlink(header *tar.Header, target string) error {
	if filepath.IsAbs(header.Linkname) {
		return archiveFailure(StepExtract, fmt.Errorf("%s -> %s: %w", header.Name, header.Linkname, errUnsafePath))
	}

	if _, err := u.resolve(filepath.Join(filepath.Dir(header.Name), header.Linkname)); err != nil {
		return archiveFailure(StepExtract, fmt.Errorf("%s -> %s: %w", header.Name, header.Linkname, errUnsafePath))
	}

	if err := u.prepareParent(target); err != nil {
		return err
	}

	if err := u.removeExisting(target); err != nil {
		return err
	}

	if err := filesystem.Symlink(u.work, header.Linkname, target); err != nil {
		return filesystemFailure(StepExtract, err)
	}

	return nil
}

// writeHardlink materialises a hard link as a copy of an already unpacked file.
func (u *unpacker) writeHardlink(header *tar.Header, target string, mode os.FileMode) error {
	source, err := u.resolve(header.Linkname)
	if err != nil {
		return archiveFailure(StepExtract, err)
	}

	if err = u.refuseSymlinks(source, false); err != nil {
		return err
	}

	info, err := filesystem.Lstat(u.work, source)
	if err != nil || !info.Mode().IsRegular() {
		return archiveFailure(StepExtract,
			fmt.Errorf("%s: hard link to missing or irregular %s", header.Name, header.Linkname))
	}

	if mode == 0 {
		mode = info.Mode().Perm()
	}

	if err = u.prepareParent(target); err != nil {
		return err
	}

	if err = u.removeExisting(target); err != nil {
		return err
	}

	if err = filesystem.CopyFile(u.work, source, target, mode); err != nil {
		return filesystemFailure(StepExtract, err)
	}

	return nil
}

func (u *unpacker) prepareParent(target string) error {
	if err := u.work.MkdirAll(filepath.Dir(target), filesystem.DirMode); err != nil {
		return filesystemFailure(StepExtract, err)
	}

	return nil
}

func (u *unpacker) removeExisting(target string) error {
	if err := u.work.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return filesystemFailure(StepExtract, err)
	}

	return nil
}

// refuseSymlinks fails when a directory between base and target is a
// symlink already on disk, or when target itself is one and leaf is set.
// Textually safe link chains such as "l -> .." and "m -> l/.." would
// otherwise let a later entry land outside the work directory.
func (u *unpacker) refuseSymlinks(target string, leaf bool) error {
	rel, err := filepath.Rel(u.base, target)
	if err != nil || rel == "." {
		return nil
	}

	parts := strings.Split(rel, string(filepath.Separator))
	if !leaf {
		parts = parts[:len(parts)-1]
	}

	current := u.base

	for _, part := range parts {
		current = filepath.Join(current, part)

		info, statErr := filesystem.Lstat(u.work, current)
		if errors.Is(statErr, fs.ErrNotExist) {
			return nil
		}

		if statErr != nil {
			return filesystemFailure(StepExtract, statErr)
		}

		if filesystem.IsSymlink(info) {
			return archiveFailure(StepExtract,
				fmt.Errorf("%s: passes through symlink %s: %w", target, current, errUnsafePath))
		}
	}

	return nil
}

// resolve joins an archive path to base and rejects anything escaping it.
func (u *unpacker) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%s: %w", name, errUnsafePath)
	}

	target := filepath.Join(u.base, name)

	rel, err := filepath.Rel(u.base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", name, errUnsafePath)
	}

	return target, nil
}
