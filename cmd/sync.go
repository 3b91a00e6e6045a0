package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cyverse/ckan-migrator/internal/reconcile"
	"github.com/cyverse/ckan-migrator/internal/runlog"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var rootPath string
	var curated bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile every dataset under a directory with the catalog",
		Long: `Lists every dataset folder under the configured root path and brings the
catalog in line with it:

  - datasets missing from the catalog are created with all their files,
  - datasets modified since they were migrated are deleted and recreated,
  - unchanged datasets get any files that are missing from the catalog.

A plain-text log is appended to sync.run_log and a YAML summary is written to
sync.report_dir.`,
		Example: `  # Reconcile the curated tree using ckan-migrator.yaml and the environment
  ckan-migrator sync

  # Reconcile a different tree as uncurated datasets
  ckan-migrator sync --root /iplant/home/shared/commons_repo/community --curated=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("root") {
				cfg.Discovery.RootPath = rootPath
			}
			if cmd.Flags().Changed("curated") {
				cfg.Sync.Curated = curated
			}
			if err := cfg.ValidateSync(); err != nil {
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

			rl, err := runlog.Open(cfg.Sync.RunLog)
			if err != nil {
				return err
			}
			defer rl.Close()

			engine := newEngine(cfg, src, cat, reconcile.WithRunLog(rl))
			report, runErr := engine.Run(ctx)

			summary := report.Summary(runlog.RunConfig{
				Source:       cfg.Discovery.RootPath,
				Catalog:      cfg.Catalog.BaseURL,
				Organization: cfg.Catalog.Organization,
				Curated:      cfg.Sync.Curated,
			})
			if _, err := runlog.SaveYAML(cfg.Sync.ReportDir, summary); err != nil {
				slog.Error("Unable to save run summary", "err", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created=%d replaced=%d current=%d skipped=%d failed=%d\n",
				report.Count(reconcile.ActionCreated),
				report.Count(reconcile.ActionReplaced),
				report.Count(reconcile.ActionCurrent),
				report.Count(reconcile.ActionSkipped),
				report.Count(reconcile.ActionFailed),
			)
			return runErr
		},
	}

	cmd.Flags().StringVar(&rootPath, "root", "", "Source directory whose sub-folders are datasets (overrides discovery.root_path)")
	cmd.Flags().BoolVar(&curated, "curated", true, "Treat datasets as curated (overrides sync.curated)")

	return cmd
}
