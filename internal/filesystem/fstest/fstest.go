// Package fstest provides afero.Fs wrappers that inject the failures the
// installer must classify: permission denials and cross-device renames.
package fstest

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"github.com/oshokin/nvim-installer/internal/filesystem"
)

// passthrough forwards the optional afero interfaces of the wrapped filesystem.
type passthrough struct {
	afero.Fs
}

func (p passthrough) SymlinkIfPossible(oldname, newname string) error {
	return filesystem.Symlink(p.Fs, oldname, newname)
}

func (p passthrough) ReadlinkIfPossible(name string) (string, error) {
	return filesystem.Readlink(p.Fs, name)
}

func (p passthrough) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	info, err := filesystem.Lstat(p.Fs, name)

	return info, true, err
}

// Denying rejects every mutation below its prefixes with EACCES, the way an
// unprivileged user is treated under /opt or /usr/local.
type Denying struct {
	passthrough

	prefixes []string
}

// Deny wraps base so that writes below any of prefixes fail.
func Deny(base afero.Fs, prefixes ...string) *Denying {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		cleaned = append(cleaned, filepath.Clean(p))
	}

	return &Denying{passthrough: passthrough{Fs: base}, prefixes: cleaned}
}

func (d *Denying) denied(name string) bool {
	name = filepath.Clean(name)
	for _, p := range d.prefixes {
		if name == p || strings.HasPrefix(name, p+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

func (d *Denying) deny(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: syscall.EACCES}
}

// Create implements afero.Fs.
func (d *Denying) Create(name string) (afero.File, error) {
	if d.denied(name) {
		return nil, d.deny("open", name)
	}

	return d.Fs.Create(name)
}

// Mkdir implements afero.Fs.
func (d *Denying) Mkdir(name string, perm os.FileMode) error {
	if d.denied(name) {
		return d.deny("mkdir", name)
	}

	return d.Fs.Mkdir(name, perm)
}

// MkdirAll implements afero.Fs. Already existing directories are not an error.
func (d *Denying) MkdirAll(path string, perm os.FileMode) error {
	if info, err := d.Fs.Stat(path); err == nil && info.IsDir() {
		return nil
	}

	if d.denied(path) {
		return d.deny("mkdir", path)
	}

	return d.Fs.MkdirAll(path, perm)
}

// OpenFile implements afero.Fs.
func (d *Denying) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 && d.denied(name) {
		return nil, d.deny("open", name)
	}

	return d.Fs.OpenFile(name, flag, perm)
}

// Remove implements afero.Fs.
func (d *Denying) Remove(name string) error {
	if d.denied(name) {
		return d.deny("remove", name)
	}

	return d.Fs.Remove(name)
}

// RemoveAll implements afero.Fs.
func (d *Denying) RemoveAll(path string) error {
	if d.denied(path) {
		return d.deny("unlinkat", path)
	}

	return d.Fs.RemoveAll(path)
}

// Rename implements afero.Fs.
func (d *Denying) Rename(oldname, newname string) error {
	if d.denied(oldname) || d.denied(newname) {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: syscall.EACCES}
	}

	return d.Fs.Rename(oldname, newname)
}

// Chmod implements afero.Fs.
func (d *Denying) Chmod(name string, mode os.FileMode) error {
	if d.denied(name) {
		return d.deny("chmod", name)
	}

	return d.Fs.Chmod(name, mode)
}

// SymlinkIfPossible implements afero.Linker.
func (d *Denying) SymlinkIfPossible(oldname, newname string) error {
	if d.denied(newname) {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: syscall.EACCES}
	}

	return d.passthrough.SymlinkIfPossible(oldname, newname)
}

// CrossDevice fails every rename with EXDEV, as if source and destination
// were on different mounts.
type CrossDevice struct {
	passthrough
}

// NewCrossDevice wraps base.
func NewCrossDevice(base afero.Fs) *CrossDevice {
	return &CrossDevice{passthrough: passthrough{Fs: base}}
}

// Rename implements afero.Fs.
func (c *CrossDevice) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: unix.EXDEV}
}
