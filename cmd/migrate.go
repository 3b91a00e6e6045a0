package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyverse/ckan-migrator/internal/reconcile"
	"github.com/cyverse/ckan-migrator/internal/record"
)

func addOverrideFlags(cmd *cobra.Command, ov *record.Overrides) {
	cmd.Flags().StringVar(&ov.Title, "title", "", "Title to use instead of the dataset's own")
	cmd.Flags().StringVar(&ov.Description, "description", "", "Description to use instead of the dataset's own")
	cmd.Flags().StringVar(&ov.Author, "author", "", "Author to use instead of the dataset's own")
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var ov record.Overrides
	var convertCSV bool
	var curated bool

	cmd := &cobra.Command{
		Use:   "migrate <dataset-path>",
		Short: "Migrate a single dataset to the catalog",
		Long: `Creates a catalog record for one Discovery Environment dataset and a resource
for each of its files and folders. Title, description and author may be
overridden. With --convert-csv, CSV files are converted to Parquet and
uploaded instead of linked.

Datasets whose path contains "curated" are migrated as curated unless
--curated is given explicitly.`,
		Example: `  ckan-migrator migrate /iplant/home/shared/commons_repo/curated/Example_2021

  ckan-migrator migrate /iplant/home/shared/commons_repo/curated/Example_2021 \
    --title "Example dataset" --convert-csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := newSource(ctx, cfg)
			if err != nil {
				return err
			}
			cat, err := newCatalog(cfg)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("curated") {
				curated = reconcile.IsCuratedPath(path)
			}

			if _, err := newEngine(cfg, src, cat).MigrateOne(ctx, path, ov, curated, convertCSV); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Dataset migrated to CKAN successfully.")
			return nil
		},
	}

	addOverrideFlags(cmd, &ov)
	cmd.Flags().BoolVar(&convertCSV, "convert-csv", false, "Convert CSV files to Parquet and upload them")
	cmd.Flags().BoolVar(&curated, "curated", false, "Migrate as a curated dataset (default: path contains \"curated\")")

	return cmd
}
