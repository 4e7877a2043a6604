package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBootstrapCmd(opts *rootOptions) *cobra.Command {
	var serve bool

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bring this host's certificate store to the state its role requires",
		Long: `Run every bootstrap step for the configured role and print the validation report.

Steps: ensure the store exists, obtain the CA material the role is entitled to,
obtain the host's own certificate, publish CA artifacts (authority only), and
validate the result. Steps that are already satisfied are skipped.

An inheritor waits for the CA bundle and a leaf waits for the CA certificate
and for its signed certificate; if they do not appear within the configured
timeouts the command exits with status 4.

Examples:
  trustboot bootstrap --role authority --exchange-dir /mnt/exchange
  trustboot bootstrap --config /etc/trustboot/leaf.yaml
  trustboot bootstrap --role authority --serve-requests`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd, secretCreate)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer a.flush(ctx)

			if serve && !a.cfg.Role.HoldsCAKey() {
				return fmt.Errorf("%w: --serve-requests needs a role holding the CA key, not %s", ErrUsage, a.cfg.Role)
			}

			b, err := a.bootstrapper()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			report, runErr := b.Run(ctx)
			if err := writeReport(cmd.OutOrStdout(), opts.output, report); err != nil {
				return err
			}
			if runErr != nil || !serve {
				return runErr
			}

			iss, err := a.issuer()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}
			return iss.Watch(ctx, a.cfg.Poll.Interval)
		},
	}

	cmd.Flags().BoolVar(&serve, "serve-requests", false, "After bootstrapping, answer leaf certificate requests until interrupted")
	return cmd
}
