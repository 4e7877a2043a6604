package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sufield/trustboot/internal/buildinfo"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display detailed version and build information for trustboot.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validateOutput(); err != nil {
				return err
			}
			info := buildinfo.Get()
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), info)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Version: %s\n", info.Version)
			fmt.Fprintf(w, "Commit: %s\n", info.CommitHash)
			fmt.Fprintf(w, "Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(w, "Build User: %s\n", info.BuildUser)
			fmt.Fprintf(w, "Build Host: %s\n", info.BuildHost)
			fmt.Fprintf(w, "Go Version: %s\n", info.GoVersion)
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", info.OS, info.Arch)
			return nil
		},
	}
}
