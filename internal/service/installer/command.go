package installer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mitchellh/go-ps"
	"github.com/spf13/afero"

	"github.com/oshokin/nvim-installer/internal/config"
	"github.com/oshokin/nvim-installer/internal/domain/release"
	"github.com/oshokin/nvim-installer/internal/filesystem"
	"github.com/oshokin/nvim-installer/internal/logger"
	"github.com/oshokin/nvim-installer/internal/service/common"
)

var errSettingsNotInitialised = errors.New("settings are not initialized")

// Options are inputs accepted by the installer entry point.
type Options struct {
	// Config holds the release, the paths and the conflict policy.
	Config *config.Config
	// System is used for the privileged relocate and publish steps, including
	// reading the extracted tree out of the work directory.
	// Nil means the OS filesystem.
	System afero.Fs
	// HTTPClient replaces the default HTTP transport.
	HTTPClient *http.Client
}

// Link is a symbolic link created by the publish step.
type Link struct {
	// Path is where the link lives, e.g. /usr/local/bin/nvim.
	Path string
	// Target is what it points at, e.g. /opt/nvim-linux-x86_64/bin/nvim.
	Target string
}

// Report describes what a run produced.
type Report struct {
	// URL is the downloaded location.
	URL string
	// ArchivePath is where the archive was stored before cleanup.
	ArchivePath string
	// InstallDir is the final location of the release tree.
	InstallDir string
	// Links are the links created, in creation order.
	Links []Link
	// Skipped counts destinations left untouched under the skip policy.
	Skipped int
}

// runner holds the state of a single install execution.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type runner struct {
	cfg     *config.Config
	release release.Release
	layout  release.Layout

	// work holds the archive and the extracted tree. It is always the OS
	// filesystem: go-update commits the archive with plain os calls.
	work   afero.Fs
	system afero.Fs
	client *common.Client
	report *Report

	// processes lists running processes before an install is replaced.
	processes func() ([]ps.Process, error)
}

// Run executes fetch, extract, cleanup, relocate and publish, stopping at the first failure.
// The returned report is filled up to the point of failure.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "nvim-installer")

	r, err := newRunner(opts)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "release", r.release.Identifier)

	r.logActor(ctx)

	if err = r.Run(ctx); err != nil {
		logInstallFailure(ctx, err)

		return r.report, err
	}

	logger.InfoKV(ctx, "Installation completed",
		"install_dir", r.report.InstallDir,
		"links", len(r.report.Links),
		"skipped", r.report.Skipped)

	return r.report, nil
}

// newRunner validates the configuration and fills in default collaborators.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil || opts.Config == nil {
		return nil, errSettingsNotInitialised
	}

	if err := config.Validate(opts.Config); err != nil {
		return nil, err
	}

	layout, err := opts.Config.Layout()
	if err != nil {
		return nil, err
	}

	r := &runner{
		cfg:     opts.Config,
		release: opts.Config.ReleaseInfo(),
		layout:  layout,
		work:    filesystem.NewOS(),
		system:  opts.System,
		client: common.NewClient(
			common.WithHTTPClient(opts.HTTPClient),
			common.WithTimeout(opts.Config.Timeout.Std()),
		),
		processes: ps.Processes,
	}

	if r.system == nil {
		r.system = filesystem.NewOS()
	}

	r.report = &Report{
		URL:         r.release.URL(),
		ArchivePath: layout.ArchivePath(r.release),
		InstallDir:  layout.InstallDir(r.release),
	}

	return r, nil
}

// Run executes the pipeline for this runner instance:
// 1) Fetch the archive.
// 2) Extract it into the work directory.
// 3) Remove the archive.
// 4) Move the extracted tree into the install prefix.
// 5) Link bin, lib and share entries into the link prefix.
func (r *runner) Run(ctx context.Context) error {
	steps := []struct {
		step Step
		run  func(context.Context) error
	}{
		{StepFetch, r.fetch},
		{StepExtract, r.extract},
		{StepCleanup, r.cleanup},
		{StepRelocate, r.relocate},
		{StepPublish, r.publish},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("interrupted before %s: %w", s.step, err)
		}

		if err := s.run(logger.WithKV(ctx, "step", string(s.step))); err != nil {
			return err
		}
	}

	return nil
}

// logActor records who runs the install and warns when system paths are
// about to be written without root.
func (r *runner) logActor(ctx context.Context) {
	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect the invoking user", "error", err)

		return
	}

	logger.InfoKV(ctx, "Starting installation",
		"user", actor.Username,
		"host", actor.Hostname,
		"url", r.report.URL)

	if !actor.Privileged() && r.layout.Root == config.DefaultRoot {
		logger.WarnKV(ctx, "Not running as root, relocate and publish need write access",
			"install_prefix", r.layout.InstallParent(),
			"link_prefix", r.cfg.LinkPrefix)
	}
}

func logInstallFailure(ctx context.Context, err error) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		logger.ErrorKV(ctx, "Installation failed",
			"step", string(stepErr.Step),
			"kind", stepErr.Kind.Error(),
			"error", stepErr.Err)

		return
	}

	logger.ErrorKV(ctx, "Installation failed", "error", err)
}
