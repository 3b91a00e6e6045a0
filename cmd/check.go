package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <dataset-path>",
		Short: "Report whether a dataset has a title, author and description",
		Long: `Checks that the metadata fields needed for migration or JSON-LD export are
present on a Discovery Environment dataset.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			src, err := newSource(ctx, cfg)
			if err != nil {
				return err
			}

			c, err := newEngine(cfg, src, nil).Check(ctx, args[0])
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(c)
		},
	}
}
