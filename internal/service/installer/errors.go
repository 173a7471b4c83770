package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// Step names a stage of the install pipeline.
type Step string

const (
	// StepFetch downloads the archive.
	StepFetch Step = "fetch"
	// StepExtract unpacks the archive into the work directory.
	StepExtract Step = "extract"
	// StepCleanup removes the archive.
	StepCleanup Step = "cleanup"
	// StepRelocate moves the extracted tree into the install prefix.
	StepRelocate Step = "relocate"
	// StepPublish links installed entries into the link prefix.
	StepPublish Step = "publish"
)

var (
	// ErrNetwork marks a transfer that could not be completed.
	ErrNetwork = errors.New("network error")
	// ErrArchive marks a corrupt, truncated or unexpected archive.
	ErrArchive = errors.New("archive error")
	// ErrFilesystem marks an I/O failure unrelated to permissions.
	ErrFilesystem = errors.New("filesystem error")
	// ErrPermission marks a write the invoking identity is not allowed to do.
	ErrPermission = errors.New("permission error")

	// ErrDestinationExists is the cause of a conflict under the fail policy.
	ErrDestinationExists = errors.New("destination already exists")
)

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitNetwork     = 2
	ExitArchive     = 3
	ExitFilesystem  = 4
	ExitPermission  = 5
	ExitInterrupted = 130
)

// StepError is the failure of a single pipeline step.
type StepError struct {
	// Step is the stage that failed.
	Step Step
	// Kind is one of ErrNetwork, ErrArchive, ErrFilesystem or ErrPermission.
	Kind error
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ExitCode maps an error returned by Run to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, ErrNetwork):
		return ExitNetwork
	case errors.Is(err, ErrArchive):
		return ExitArchive
	case errors.Is(err, ErrPermission):
		return ExitPermission
	case errors.Is(err, ErrFilesystem):
		return ExitFilesystem
	default:
		return ExitUsage
	}
}

func networkFailure(step Step, err error) *StepError {
	return &StepError{Step: step, Kind: ErrNetwork, Err: err}
}

func archiveFailure(step Step, err error) *StepError {
	return &StepError{Step: step, Kind: ErrArchive, Err: err}
}

// filesystemFailure classifies err as ErrPermission when the OS denied
// access and as ErrFilesystem otherwise.
func filesystemFailure(step Step, err error) *StepError {
	kind := ErrFilesystem
	if errors.Is(err, fs.ErrPermission) {
		kind = ErrPermission
	}

	return &StepError{Step: step, Kind: kind, Err: err}
}

func conflictFailure(step Step, path string) *StepError {
	return &StepError{
		Step: step,
		Kind: ErrFilesystem,
		Err:  fmt.Errorf("%s: %w", path, ErrDestinationExists),
	}
}
