package installer

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/nvim-installer/internal/config"
	"github.com/oshokin/nvim-installer/internal/filesystem/fstest"
	"github.com/oshokin/nvim-installer/internal/testutil"
)

func serveRelease(t *testing.T, body []byte) (*config.Config, *http.Client) {
	t.Helper()

	ts, host := testutil.Server(t, config.DefaultProject, config.DefaultChannel, id, body)

	return sandboxConfig(t, host), ts.Client()
}

// TestRunEndToEnd installs a served release and checks the resulting tree and links.
func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	cfg, client := serveRelease(t, testutil.Archive(t, testutil.Release(id)...))

	report, err := Run(context.Background(), &Options{Config: cfg, HTTPClient: client})
	require.NoError(t, err)
	require.Equal(t, ExitOK, ExitCode(err))

	for _, rel := range []string{"bin/editor", "lib/libfoo.so", "share/doc.txt"} {
		installed := rooted(cfg, "opt", id, rel)

		info, statErr := os.Lstat(installed)
		require.NoError(t, statErr)
		require.True(t, info.Mode().IsRegular(), installed)

		link := rooted(cfg, "usr", "local", rel)

		target, linkErr := os.Readlink(link)
		require.NoError(t, linkErr)
		require.Equal(t, installed, target)
	}

	require.Len(t, report.Links, 3)
	require.Equal(t, rooted(cfg, "opt", id), report.InstallDir)

	// The archive and the transient tree are gone from the work directory.
	require.NoFileExists(t, filepath.Join(cfg.WorkDir, id+".tar.gz"))
	require.NoDirExists(t, filepath.Join(cfg.WorkDir, id))
}

// TestRunFetchFailureStopsPipeline ensures an unreachable host aborts before anything is unpacked or moved.
func TestRunFetchFailureStopsPipeline(t *testing.T) {
	t.Parallel()

	ts, host := testutil.Server(t, config.DefaultProject, config.DefaultChannel, id, nil)
	ts.Close()

	cfg := sandboxConfig(t, host)

	report, err := Run(context.Background(), &Options{Config: cfg, HTTPClient: ts.Client()})
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, ExitNetwork, ExitCode(err))
	require.Empty(t, report.Links)

	entries, err := os.ReadDir(cfg.WorkDir)
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoDirExists(t, rooted(cfg, "opt"))
	require.NoDirExists(t, rooted(cfg, "usr"))
}

// TestRunMissingReleaseIsNetworkError maps a 404 from the release host to ErrNetwork.
func TestRunMissingReleaseIsNetworkError(t *testing.T) {
	t.Parallel()

	cfg, client := serveRelease(t, nil)
	cfg.Channel = "nightly"

	_, err := Run(context.Background(), &Options{Config: cfg, HTTPClient: client})
	require.ErrorIs(t, err, ErrNetwork)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepFetch, stepErr.Step)
}

// TestRunCorruptArchive stops at extraction and leaves the install prefix alone.
func TestRunCorruptArchive(t *testing.T) {
	t.Parallel()

	cfg, client := serveRelease(t, []byte("definitely not gzip"))

	_, err := Run(context.Background(), &Options{Config: cfg, HTTPClient: client})
	require.ErrorIs(t, err, ErrArchive)
	require.Equal(t, ExitArchive, ExitCode(err))

	// No cleanup happens after a failure.
	require.FileExists(t, filepath.Join(cfg.WorkDir, id+".tar.gz"))
	require.NoDirExists(t, rooted(cfg, "opt"))
}

// TestRunWithoutPrivilege denies writes to the system prefixes and expects a permission failure at relocate.
func TestRunWithoutPrivilege(t *testing.T) {
	t.Parallel()

	cfg, client := serveRelease(t, testutil.Archive(t, testutil.Release(id)...))
	system := fstest.Deny(afero.NewOsFs(), rooted(cfg, "opt"), rooted(cfg, "usr"))

	_, err := Run(context.Background(), &Options{Config: cfg, HTTPClient: client, System: system})
	require.ErrorIs(t, err, ErrPermission)
	require.Equal(t, ExitPermission, ExitCode(err))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepRelocate, stepErr.Step)

	require.NoDirExists(t, rooted(cfg, "opt", id))
	require.NoDirExists(t, rooted(cfg, "usr", "local"))

	// Steps before relocate completed and are not rolled back.
	require.DirExists(t, filepath.Join(cfg.WorkDir, id))
}

// TestRunTwice checks re-running under each conflict policy.
func TestRunTwice(t *testing.T) {
	t.Parallel()

	cfg, client := serveRelease(t, testutil.Archive(t, testutil.Release(id)...))

	_, err := Run(context.Background(), &Options{Config: cfg, HTTPClient: client})
	require.NoError(t, err)

	// Default policy refuses to touch the existing install.
	_, err = Run(context.Background(), &Options{Config: cfg, HTTPClient: client})
	require.ErrorIs(t, err, ErrDestinationExists)
	require.Equal(t, ExitFilesystem, ExitCode(err))

	cfg.OnConflict = config.ConflictReplace

	report, err := Run(context.Background(), &Options{Config: cfg, HTTPClient: client})
	require.NoError(t, err)
	require.Len(t, report.Links, 3)
	require.Zero(t, report.Skipped)

	cfg.OnConflict = config.ConflictSkip

	report, err = Run(context.Background(), &Options{Config: cfg, HTTPClient: client})
	require.NoError(t, err)
	require.Empty(t, report.Links)
	require.Equal(t, 4, report.Skipped)
	require.NoDirExists(t, filepath.Join(cfg.WorkDir, id))
}

// TestRunInterrupted ensures a cancelled context stops the run before the first step.
func TestRunInterrupted(t *testing.T) {
	t.Parallel()

	cfg, client := serveRelease(t, testutil.Archive(t, testutil.Release(id)...))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, &Options{Config: cfg, HTTPClient: client})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, ExitInterrupted, ExitCode(err))
	require.NoFileExists(t, filepath.Join(cfg.WorkDir, id+".tar.gz"))
}

// TestRunRequiresConfig rejects missing settings.
func TestRunRequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), &Options{})
	require.ErrorIs(t, err, errSettingsNotInitialised)
	require.Equal(t, ExitUsage, ExitCode(err))
}
