package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// DirMode is used for directories the installer has to create itself.
const DirMode fs.FileMode = 0o755

// ErrNoSymlink is returned when the filesystem cannot create or read symlinks.
var ErrNoSymlink = errors.New("filesystem does not support symlinks")

// NewOS returns the real operating system filesystem.
//
//nolint:ireturn // afero.Fs is the abstraction callers work with.
func NewOS() afero.Fs {
	return afero.NewOsFs()
}

// Symlink creates newname as a symbolic link to oldname.
func Symlink(fsys afero.Fs, oldname, newname string) error {
	linker, ok := fsys.(afero.Linker)
	if !ok {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: ErrNoSymlink}
	}

	return linker.SymlinkIfPossible(oldname, newname)
}

// Readlink returns the destination of the named symbolic link.
func Readlink(fsys afero.Fs, name string) (string, error) {
	reader, ok := fsys.(afero.LinkReader)
	if !ok {
		return "", &os.PathError{Op: "readlink", Path: name, Err: ErrNoSymlink}
	}

	return reader.ReadlinkIfPossible(name)
}

// Lstat returns file info without following a final symlink when the filesystem allows it.
func Lstat(fsys afero.Fs, name string) (os.FileInfo, error) {
	if lstater, ok := fsys.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(name)

		return info, err
	}

	return fsys.Stat(name)
}

// Exists reports whether name exists, without following a final symlink.
func Exists(fsys afero.Fs, name string) (bool, error) {
	_, err := Lstat(fsys, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// IsSymlink reports whether info describes a symbolic link.
func IsSymlink(info os.FileInfo) bool {
	return info.Mode()&os.ModeSymlink != 0
}

// Move renames src to dst. When both live on different filesystems the tree
// is copied and the source removed; a failed copy removes whatever reached
// dst so the destination is either complete or absent.
func Move(fsys afero.Fs, src, dst string) error {
	err := fsys.Rename(src, dst)
	if err == nil {
		return nil
	}

	if !errors.Is(err, unix.EXDEV) {
		return err
	}

	if err = CopyTree(fsys, src, dst); err != nil {
		if removeErr := fsys.RemoveAll(dst); removeErr != nil {
			return errors.Join(err, fmt.Errorf("remove partial copy: %w", removeErr))
		}

		return err
	}

	if err = fsys.RemoveAll(src); err != nil {
		return fmt.Errorf("remove moved source: %w", err)
	}

	return nil
}

// CopyTree copies the tree rooted at src to dst, which must not exist.
// Directory and file modes and file modification times are preserved.
// Symlinks are recreated as-is.
func CopyTree(fsys afero.Fs, src, dst string) error {
	type dirMode struct {
		path string
		perm fs.FileMode
	}

	// Directories stay owner-writable until their content is in place.
	var dirs []dirMode

	err := afero.Walk(fsys, src, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			dirs = append(dirs, dirMode{path: target, perm: info.Mode().Perm()})

			return fsys.Mkdir(target, info.Mode().Perm()|0o700)
		case IsSymlink(info):
			var link string

			if link, err = Readlink(fsys, path); err != nil {
				return err
			}

			return Symlink(fsys, link, target)
		case info.Mode().IsRegular():
			if err = CopyFile(fsys, path, target, info.Mode().Perm()); err != nil {
				return err
			}

			return fsys.Chtimes(target, info.ModTime(), info.ModTime())
		default:
			return fmt.Errorf("copy %s: unsupported file type %s", path, info.Mode().Type())
		}
	})
	if err != nil {
		return err
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		if err = fsys.Chmod(dirs[i].path, dirs[i].perm); err != nil {
			return err
		}
	}

	return nil
}

// CopyFile copies a regular file, creating dst with perm.
func CopyFile(fsys afero.Fs, src, dst string, perm fs.FileMode) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	if err = out.Close(); err != nil {
		return err
	}

	// OpenFile is subject to the umask.
	return fsys.Chmod(dst, perm)
}
