// Package version exposes build metadata of nvim-installer.
//
// Version, Commit and BuildTime are injected via -ldflags; when they are not,
// the module version and VCS revision recorded in the binary are used.
package version
