package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newIssueCmd(opts *rootOptions) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Answer pending leaf certificate requests with the local CA key",
		Long: `Sign the certificate signing requests leaves have published to the exchange
directory. Only requests for the leaf's own workload ID in the configured trust
domain are signed. Requires the authority or inheritor role.

With --watch the command keeps sweeping until interrupted.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd, secretExisting)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			defer a.flush(ctx)

			if !a.cfg.Role.HoldsCAKey() {
				return fmt.Errorf("%w: role %s cannot issue certificates", ErrUsage, a.cfg.Role)
			}
			iss, err := a.issuer()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrConfig, err)
			}

			if watch {
				if interval <= 0 {
					interval = a.cfg.Poll.Interval
				}
				return iss.Watch(ctx, interval)
			}

			res, err := iss.Sweep(ctx)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]int{
					"issued":   res.Issued,
					"skipped":  res.Skipped,
					"rejected": res.Rejected,
				})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "issued %d, skipped %d, rejected %d\n", res.Issued, res.Skipped, res.Rejected)
			return err
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep answering requests until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Sweep interval with --watch (default: --poll-interval)")
	return cmd
}
