package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sufield/trustboot/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the configuration after defaults, file, environment and flags are merged",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("%w: failed to encode configuration: %v", ErrInternal, err)
			}
			return enc.Close()
		},
	})
	return cmd
}

// loadConfig resolves the configuration for cmd without touching the store.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := o.validateOutput(); err != nil {
		return nil, err
	}
	loader := config.NewLoader()
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return loader.Load(o.configFile)
}
