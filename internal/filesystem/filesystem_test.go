package filesystem_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/nvim-installer/internal/filesystem"
	"github.com/oshokin/nvim-installer/internal/filesystem/fstest"
)

// makeTree creates src with a nested executable, a group-only directory and a relative symlink.
func makeTree(t *testing.T, src string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "bin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "share", "doc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bin", "nvim"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "share", "doc", "README"), []byte("readme"), 0o644))
	require.NoError(t, os.Symlink("doc/README", filepath.Join(src, "share", "README")))
	require.NoError(t, os.Chmod(filepath.Join(src, "share", "doc"), 0o750))
}

func requireSameTree(t *testing.T, dst string) {
	t.Helper()

	info, err := os.Stat(filepath.Join(dst, "bin", "nvim"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	info, err = os.Stat(filepath.Join(dst, "share", "doc"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o750), info.Mode().Perm())

	contents, err := os.ReadFile(filepath.Join(dst, "share", "doc", "README"))
	require.NoError(t, err)
	require.Equal(t, "readme", string(contents))

	link, err := os.Readlink(filepath.Join(dst, "share", "README"))
	require.NoError(t, err)
	require.Equal(t, "doc/README", link)
}

// TestMoveRenames verifies the plain same-device move.
func TestMoveRenames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "nvim-linux-x86_64")
	dst := filepath.Join(dir, "opt", "nvim-linux-x86_64")

	makeTree(t, src)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	require.NoError(t, filesystem.Move(filesystem.NewOS(), src, dst))

	requireSameTree(t, dst)

	_, err := os.Stat(src)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

// TestMoveFallsBackToCopyAcrossDevices ensures EXDEV triggers copy-then-remove with modes and links intact.
func TestMoveFallsBackToCopyAcrossDevices(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "work", "nvim-linux-x86_64")
	dst := filepath.Join(dir, "opt", "nvim-linux-x86_64")

	makeTree(t, src)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	require.NoError(t, filesystem.Move(fstest.NewCrossDevice(afero.NewOsFs()), src, dst))

	requireSameTree(t, dst)

	_, err := os.Stat(src)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

// TestMoveRemovesPartialCopy checks that a failing cross-device copy leaves no destination behind.
func TestMoveRemovesPartialCopy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "work", "nvim-linux-x86_64")
	dst := filepath.Join(dir, "opt", "nvim-linux-x86_64")

	makeTree(t, src)
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	// Everything but the top directory is denied, so the copy fails half way.
	fsys := fstest.Deny(fstest.NewCrossDevice(afero.NewOsFs()), filepath.Join(dst, "bin"))

	err := filesystem.Move(fsys, src, dst)
	require.ErrorIs(t, err, fs.ErrPermission)

	_, err = os.Stat(dst)
	require.ErrorIs(t, err, fs.ErrNotExist)

	// The source is untouched.
	requireSameTree(t, src)
}

// TestSymlinkHelpers covers Symlink, Readlink, Lstat and Exists on the OS filesystem.
func TestSymlinkHelpers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fsys := filesystem.NewOS()
	link := filepath.Join(dir, "nvim")

	exists, err := filesystem.Exists(fsys, link)
	require.NoError(t, err)
	require.False(t, exists)

	// Dangling links are still links.
	require.NoError(t, filesystem.Symlink(fsys, "/opt/nvim-linux-x86_64/bin/nvim", link))

	exists, err = filesystem.Exists(fsys, link)
	require.NoError(t, err)
	require.True(t, exists)

	info, err := filesystem.Lstat(fsys, link)
	require.NoError(t, err)
	require.True(t, filesystem.IsSymlink(info))

	target, err := filesystem.Readlink(fsys, link)
	require.NoError(t, err)
	require.Equal(t, "/opt/nvim-linux-x86_64/bin/nvim", target)

	err = filesystem.Symlink(fsys, "/elsewhere", link)
	require.ErrorIs(t, err, fs.ErrExist)
}

// TestSymlinkUnsupported ensures filesystems without link support report ErrNoSymlink.
func TestSymlinkUnsupported(t *testing.T) {
	t.Parallel()

	err := filesystem.Symlink(afero.NewMemMapFs(), "a", "b")
	require.ErrorIs(t, err, filesystem.ErrNoSymlink)
}
