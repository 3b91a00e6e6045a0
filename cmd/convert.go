package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyverse/ckan-migrator/internal/convert"
	"github.com/cyverse/ckan-migrator/internal/jsonld"
)

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert local files between formats",
	}

	var parquetOut string
	csvCmd := &cobra.Command{
		Use:   "csv <file.csv>",
		Short: "Convert a CSV file to Parquet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			if parquetOut == "" {
				parquetOut = convert.ParquetName(args[0])
			}
			out, err := os.Create(parquetOut)
			if err != nil {
				return err
			}

			rows, err := convert.CSVToParquet(in, out)
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(parquetOut)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", rows, parquetOut)
			return nil
		},
	}
	csvCmd.Flags().StringVarP(&parquetOut, "output", "o", "", "Output file (default input name with .parquet)")

	var croissantOut string
	dcatCmd := &cobra.Command{
		Use:   "dcat-to-croissant <dcat.json>",
		Short: "Convert a DCAT catalog to Croissant",
		Long: `Converts every dataset of a DCAT catalog into a Croissant document. A catalog
with a single dataset produces a single document; otherwise a JSON array.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := jsonld.ValidateDCAT(raw); err != nil {
				return err
			}
			cat, err := jsonld.ParseCatalog(raw)
			if err != nil {
				return err
			}

			docs := jsonld.DCATToCroissant(cat)
			if len(docs) == 1 {
				return writeJSON(cmd.OutOrStdout(), croissantOut, docs[0])
			}
			return writeJSON(cmd.OutOrStdout(), croissantOut, docs)
		},
	}
	dcatCmd.Flags().StringVarP(&croissantOut, "output", "o", "", "Output file (default stdout)")

	cmd.AddCommand(csvCmd, dcatCmd)
	return cmd
}
