package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oshokin/nvim-installer/internal/config"
	"github.com/oshokin/nvim-installer/internal/logger"
	"github.com/oshokin/nvim-installer/internal/service/installer"
	"github.com/oshokin/nvim-installer/internal/version"
)

var (
	// configPath to an optional YAML or TOML configuration file.
	configPath string
	// logLevel is the minimum level written to the log.
	logLevel string
	// onConflict overrides the configured conflict policy when set.
	onConflict string
	// httpClient replaces the default transport of the download; nil keeps it.
	httpClient *http.Client

	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd represents the base command that performs the installation.
	rootCmd = &cobra.Command{
		Use:   "nvim-installer",
		Short: "Install the stable Neovim release under /opt and link it into /usr/local.",
		Long: `Downloads nvim-linux-x86_64.tar.gz from the stable GitHub release of neovim/neovim,
unpacks it into the current directory, removes the archive, moves the tree to
/opt/nvim-linux-x86_64 and links every entry of its bin, lib and share
directories into /usr/local.

Moving into /opt and linking into /usr/local need root, e.g. "sudo nvim-installer".
The first failing step stops the run and completed steps are not undone.

Exit codes: 0 success, 1 usage or configuration error, 2 network error,
3 archive error, 4 filesystem error, 5 permission error, 130 interrupted.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			report, err := installer.Run(ctx, &installer.Options{Config: cfg, HTTPClient: httpClient})
			if err != nil {
				return err
			}

			_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
				"%s installed to %s, %d links created, %d skipped\n",
				cfg.Release, report.InstallDir, len(report.Links), report.Skipped)

			return nil
		},
	}
)

// Execute runs the CLI and exits with the status matching the failure kind.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, color.RedString("nvim-installer: %v", err))

		os.Exit(installer.ExitCode(err))
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"YAML or TOML configuration file (default: "+config.AppDirName+"/"+config.DefaultConfigFilename+
			" under the XDG config directories)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info",
		"log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&onConflict, "on-conflict", "",
		"existing install directory or link: fail, replace or skip (overrides the configuration)")

	rootCmd.AddCommand(planCmd, genconfigCmd)
}

func setupLogging(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%q: %w", logLevel, errUnknownLogLevel)
	}

	logger.SetLevel(level)

	return nil
}

// loadConfig resolves the configuration from --config, the XDG lookup or the
// built-in defaults, then applies --on-conflict.
func loadConfig(ctx context.Context) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.Discover()
	}

	var (
		cfg = config.Default()
		err error
	)

	if path != "" {
		logger.DebugKV(ctx, "Loading configuration", "path", path)

		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if onConflict != "" {
		if cfg.OnConflict, err = config.ParseConflictPolicy(onConflict); err != nil {
			return nil, err
		}
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
