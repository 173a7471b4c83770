// Package filesystem holds the filesystem operations the installer needs on
// top of an afero.Fs: symlinks, lstat, readlink, a cross-device aware move
// and a tree copy that preserves modes and symlinks.
//
// Production code passes afero.NewOsFs(); tests wrap it to inject failures.
package filesystem
