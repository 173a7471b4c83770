package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/oshokin/nvim-installer/internal/config"
)

var (
	// force lets genconfig overwrite an existing file.
	force bool

	errConfigExists = errors.New("file already exists, use --force to overwrite")

	// genconfigCmd writes the default settings so they can be edited.
	genconfigCmd = &cobra.Command{
		Use:   "genconfig [path]",
		Short: "Write the default configuration as YAML or TOML, chosen by the file extension.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) > 0 {
				path = args[0]
			}

			path, err := homedir.Expand(path)
			if err != nil {
				return err
			}

			_, err = os.Stat(path)

			switch {
			case err == nil && !force:
				return fmt.Errorf("%s: %w", path, errConfigExists)
			case err != nil && !errors.Is(err, fs.ErrNotExist):
				return err
			}

			if err = config.Save(path, config.Default()); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	genconfigCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
}
