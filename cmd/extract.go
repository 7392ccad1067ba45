package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/uwv-zw-xml/internal/xmlwriter"
)

var extractOutput string

// extractBodyCmd writes the first message body of an envelope as a
// standalone document.
var extractBodyCmd = &cobra.Command{
	Use:   "extract-body <envelope.xml>",
	Short: "Write the first message body of an envelope as its own document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		body, err := xmlwriter.ExtractFirstBody(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		if extractOutput == "" || extractOutput == "-" {
			_, err = cmd.OutOrStdout().Write(body)
			return err
		}
		if err := os.WriteFile(extractOutput, body, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okMark, extractOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractBodyCmd)
	extractBodyCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Output file (default: stdout)")
}
