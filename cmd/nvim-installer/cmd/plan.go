package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// planCmd prints every location the installation would use without touching any of them.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the download URL and every path the installation would touch.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}

		layout, err := cfg.Layout()
		if err != nil {
			return err
		}

		r := cfg.ReleaseInfo()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

		_, _ = fmt.Fprintf(w, "url:\t%s\n", r.URL())
		_, _ = fmt.Fprintf(w, "archive:\t%s\n", layout.ArchivePath(r))
		_, _ = fmt.Fprintf(w, "extracted:\t%s\n", layout.ExtractedDir(r))
		_, _ = fmt.Fprintf(w, "install dir:\t%s\n", layout.InstallDir(r))

		for _, sub := range layout.LinkDirs {
			_, _ = fmt.Fprintf(w, "links:\t%s -> %s\n",
				filepath.Join(layout.LinkDir(sub), "*"),
				filepath.Join(layout.SourceDir(r, sub), "*"))
		}

		_, _ = fmt.Fprintf(w, "on conflict:\t%s\n", cfg.OnConflict)

		return w.Flush()
	},
}
