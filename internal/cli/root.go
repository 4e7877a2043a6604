// Package cli provides the trustboot command-line interface.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	output     string
}

// NewRootCommand builds the trustboot command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "trustboot",
		Short: "Bootstrap mutual-TLS trust between an authority, an inheritor and leaves",
		Long: `Bootstrap mutual-TLS trust between cooperating hosts.

The authority creates a certificate authority at first boot and publishes its
public certificate and a password-protected CA bundle to a shared exchange
directory. The inheritor imports the CA bundle so it can also sign. Leaves only
ever import the public CA certificate and obtain their own certificate by
publishing a signing request that the authority or inheritor answers.

Every step is idempotent: running bootstrap again converges on the same state.

Configuration is read from --config, TRUSTBOOT_* environment variables and the
flags below, later sources taking precedence.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "Path to YAML configuration file")
	pf.StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")
	pf.String("role", "", "Role to play: authority, inheritor or leaf")
	pf.String("hostname", "", "Host name placed in this host's certificate (default: system host name)")
	pf.String("username", "", "User name placed in a leaf certificate (default: $USER)")
	pf.String("organization", "", "Organization in certificate subjects (default: trustboot)")
	pf.String("trust-domain", "", "SPIFFE trust domain of workload IDs (default: trustboot.local)")
	pf.String("authority-host", "", "Extra DNS name for the authority's certificate")
	pf.String("inheritor-host", "", "Extra DNS name for the inheritor's certificate")
	pf.String("store-dir", "", "Certificate store directory (default: /var/lib/trustboot/store)")
	pf.String("secret-file", "", "Store access secret file (default: <store-dir>/.secret)")
	pf.String("exchange-dir", "", "Shared exchange directory (default: /var/lib/trustboot/exchange)")
	pf.Duration("poll-interval", 2*time.Second, "Interval between probes of the exchange directory")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file on exit")
	pf.String("log-level", "", "Log level: debug, info, warn or error (default: info)")
	pf.String("log-format", "", "Log format: text or json (default: text)")

	_ = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	_ = cmd.RegisterFlagCompletionFunc("role", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"authority\tCreates the certificate authority",
			"inheritor\tImports the CA bundle",
			"leaf\tHolds only the public CA certificate",
		}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions([]string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp))

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	cmd.AddCommand(
		newBootstrapCmd(opts),
		newValidateCmd(opts),
		newIssueCmd(opts),
		newStatusCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(opts),
		newManCmd(),
	)
	return cmd
}

// Execute runs the command tree with args, honoring cancellation of ctx.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func (o *rootOptions) validateOutput() error {
	switch o.output {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("%w: unsupported output format %q, use 'text' or 'json'", ErrUsage, o.output)
}
