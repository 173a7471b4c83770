// Package installer downloads a Neovim release archive, unpacks it, moves the
// tree into the install prefix and links its bin, lib and share entries into
// the link prefix.
//
// The steps run strictly in order and the first failure ends the run. Nothing
// that already happened is undone. Every failure is a *StepError whose kind
// (ErrNetwork, ErrArchive, ErrFilesystem, ErrPermission) is matched with
// errors.Is and mapped to a process exit code by ExitCode.
package installer
