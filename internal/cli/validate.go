package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check this host's certificate store against its role's trust policy",
		Long: `Check the certificate store without changing it and print a report listing
every check. Exits with status 5 when any check fails.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd, secretExisting)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer a.flush(ctx)

			b, err := a.bootstrapper()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			report, verr := b.Validate(ctx)
			if err := writeReport(cmd.OutOrStdout(), opts.output, report); err != nil {
				return err
			}
			return verr
		},
	}
}
