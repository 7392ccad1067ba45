// =============================================================================
// UWV Sickness Notification XML Generator - Tag Datasets Command
// =============================================================================
//
// COMMAND USAGE:
//   uwvzw tag-datasets [--file in.yml] [--output out.yml] [--auto] [--defaults]
//
// Without --auto (or with --dry-run) the inferred types are printed and
// nothing is written.
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/uwv-zw-xml/internal/tagging"
)

var (
	catalogueFile   string
	catalogueOutput string
	tagAuto         bool
	tagDryRun       bool
	tagDefaults     bool
)

var tagDatasetsCmd = &cobra.Command{
	Use:   "tag-datasets",
	Short: "Mark catalogue datasets with the message types they fit",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := tagging.LoadCatalogue(catalogueFile)
		if err != nil {
			return err
		}

		changes := c.Tag(tagDefaults)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Datasets scanned: %d; updated: %d\n", len(c.Datasets), len(changes))

		if tagDryRun || !tagAuto {
			for _, ds := range c.Datasets {
				fmt.Fprintf(out, "- id=%s: label='%s' types=[%s]\n", ds.ID, ds.DisplayLabel(), strings.Join(ds.Types, ", "))
			}
			return nil
		}

		if err := c.Save(catalogueOutput); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", okMark, catalogueOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagDatasetsCmd)

	tagDatasetsCmd.Flags().StringVarP(&catalogueFile, "file", "f", "docs/excel_datasets.yml", "Dataset catalogue to read")
	tagDatasetsCmd.Flags().StringVarP(&catalogueOutput, "output", "o", "docs/excel_datasets_tagged.yml", "Where --auto writes the tagged catalogue")
	tagDatasetsCmd.Flags().BoolVar(&tagAuto, "auto", false, "Apply the inferred types and write the output")
	tagDatasetsCmd.Flags().BoolVar(&tagDryRun, "dry-run", false, "Show the inferred types without writing")
	tagDatasetsCmd.Flags().BoolVar(&tagDefaults, "defaults", false, "Give datasets without any signal all default types")
}
