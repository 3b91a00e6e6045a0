package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyverse/ckan-migrator/internal/jsonld"
	"github.com/cyverse/ckan-migrator/internal/record"
)

const (
	dialectCroissant = "croissant"
	dialectDCAT      = "dcat"
)

// writeJSON writes v indented to path, or to w when path is empty or "-".
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	data = append(data, '\n')
	if path == "" || path == "-" {
		_, err = w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Describe a dataset as Croissant or DCAT JSON-LD",
	}
	for _, dialect := range []string{dialectCroissant, dialectDCAT} {
		cmd.AddCommand(newExportDialectCmd(opts, dialect))
	}
	return cmd
}

func newExportDialectCmd(opts *rootOptions, dialect string) *cobra.Command {
	var ov record.Overrides
	var output string

	cmd := &cobra.Command{
		Use:   dialect + " <dataset-path>",
		Short: fmt.Sprintf("Write a %s JSON-LD description of a dataset", dialect),
		Args:  cobra.ExactArgs(1),
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

			in, err := newEngine(cfg, src, nil).Describe(ctx, args[0], ov)
			if err != nil {
				return err
			}

			var doc any
			if dialect == dialectDCAT {
				doc = jsonld.NewDCAT(in)
			} else {
				doc = jsonld.NewCroissant(in)
			}
			return writeJSON(cmd.OutOrStdout(), output, doc)
		},
	}

	addOverrideFlags(cmd, &ov)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create a catalog dataset from a Croissant or DCAT JSON-LD file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "croissant <file>",
		Short: "Validate a Croissant file and create its dataset in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			v, err := jsonld.ValidateCroissant(raw)
			if err != nil {
				return err
			}
			if !v.OK() {
				return errors.New(v.ErrorMessage())
			}
			im, err := jsonld.ParseCroissant(raw)
			if err != nil {
				return err
			}
			if err := importDataset(cmd, opts, im); err != nil {
				return err
			}

			if len(v.Warnings) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), v.WarningMessage())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Croissant JSON uploaded to CKAN successfully")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dcat <file>",
		Short: "Validate a DCAT file and create its first dataset in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := jsonld.ValidateDCAT(raw); err != nil {
				return err
			}
			im, err := jsonld.ParseDCAT(raw)
			if err != nil {
				return err
			}
			if err := importDataset(cmd, opts, im); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "DCAT JSON uploaded to CKAN successfully.")
			return nil
		},
	})

	return cmd
}

func importDataset(cmd *cobra.Command, opts *rootOptions, im *jsonld.Imported) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	cat, err := newCatalog(cfg)
	if err != nil {
		return err
	}
	_, err = newEngine(cfg, nil, cat).Import(cmd.Context(), im)
	return err
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a Croissant or DCAT JSON-LD file without uploading it",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "croissant <file>",
		Short: "Validate a Croissant file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			v, err := jsonld.ValidateCroissant(raw)
			if err != nil {
				return err
			}
			for _, w := range v.Warnings {
				fmt.Fprintln(cmd.OutOrStdout(), "warning:", w)
			}
			if !v.OK() {
				return errors.New(v.ErrorMessage())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Croissant JSON is valid")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dcat <file>",
		Short: "Validate a DCAT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := jsonld.ValidateDCAT(raw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "DCAT JSON is valid")
			return nil
		},
	})

	return cmd
}
