package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStepErrorMatchesKindAndCause verifies errors.Is sees both the kind and the underlying cause.
func TestStepErrorMatchesKindAndCause(t *testing.T) {
	t.Parallel()

	cause := &os.PathError{Op: "rename", Path: "/opt/x", Err: syscall.EACCES}
	err := fmt.Errorf("wrapped: %w", filesystemFailure(StepRelocate, cause))

	require.ErrorIs(t, err, ErrPermission)
	require.ErrorIs(t, err, fs.ErrPermission)
	require.NotErrorIs(t, err, ErrFilesystem)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepRelocate, stepErr.Step)
	require.Contains(t, err.Error(), "relocate: permission error")
}

// TestFilesystemFailureClassification separates permission denials from other I/O errors.
func TestFilesystemFailureClassification(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, filesystemFailure(StepPublish, syscall.EPERM), ErrPermission)
	require.ErrorIs(t, filesystemFailure(StepPublish, syscall.ENOSPC), ErrFilesystem)
	require.ErrorIs(t, conflictFailure(StepPublish, "/usr/local/bin/nvim"), ErrDestinationExists)
	require.ErrorIs(t, conflictFailure(StepPublish, "/usr/local/bin/nvim"), ErrFilesystem)
}

// TestExitCode checks the mapping from error kinds to process exit codes.
func TestExitCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{networkFailure(StepFetch, errors.New("dial")), ExitNetwork},
		{archiveFailure(StepExtract, errors.New("gzip")), ExitArchive},
		{filesystemFailure(StepCleanup, syscall.EIO), ExitFilesystem},
		{filesystemFailure(StepRelocate, syscall.EACCES), ExitPermission},
		{networkFailure(StepFetch, context.Canceled), ExitInterrupted},
		{errors.New("bad flag"), ExitUsage},
	}

	for _, c := range cases {
		require.Equal(t, c.want, ExitCode(c.err), "%v", c.err)
	}
}
