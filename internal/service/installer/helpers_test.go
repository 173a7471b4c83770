package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/nvim-installer/internal/config"
	"github.com/oshokin/nvim-installer/internal/testutil"
)

const id = config.DefaultRelease

// sandboxConfig returns defaults re-rooted into temporary directories.
func sandboxConfig(t *testing.T, host string) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Host = host
	cfg.Root = t.TempDir()
	cfg.WorkDir = t.TempDir()
	cfg.Timeout = config.Duration(10 * time.Second)

	return cfg
}

// runnerWithArchive builds a runner whose work directory already holds archive.
func runnerWithArchive(t *testing.T, archive []byte) *runner {
	t.Helper()

	r, err := newRunner(&Options{Config: sandboxConfig(t, "example.invalid")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(r.report.ArchivePath, archive, 0o644))

	return r
}

// installedRunner builds a runner for which the release is already unpacked in the work directory.
func installedRunner(t *testing.T, entries ...testutil.Entry) *runner {
	t.Helper()

	r := runnerWithArchive(t, testutil.Archive(t, entries...))
	require.NoError(t, r.extract(context.Background()))

	return r
}

func rooted(cfg *config.Config, parts ...string) string {
	return filepath.Join(append([]string{cfg.Root}, parts...)...)
}
