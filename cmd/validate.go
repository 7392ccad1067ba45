// =============================================================================
// UWV Sickness Notification XML Generator - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   uwvzw validate                 - check the configuration and the XSD
//   uwvzw validate <file.xml>...   - validate every message body in the files
//
// Files may hold a SOAP envelope with one or more bodies, or a bare body.
// Each body is validated on its own and reported as file#n.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/uwv-zw-xml/internal/schema"
	"github.com/ginjaninja78/uwv-zw-xml/internal/xmlwriter"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file.xml]...",
	Short: "Validate the configuration, or message bodies against the XSD",
	Long: `Without arguments, validate checks the configuration and compiles the
configured XSD. With files, every message body found in them is validated
against the XSD independently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if mainConfig.SchemaPath == "" {
			return fmt.Errorf("no schema_path configured")
		}
		v := schema.New(mainConfig.SchemaPath, schema.WithLogger(logger))
		defer v.Close()

		if len(args) == 0 {
			return checkConfiguration(v)
		}
		return validateFiles(v, args)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func checkConfiguration(v *schema.Validator) error {
	fmt.Printf("%s configuration: %s\n", okMark, cfgFile)
	if err := v.Load(); err != nil {
		fmt.Printf("%s schema: %v\n", failMark, err)
		return err
	}
	fmt.Printf("%s schema: %s (%s)\n", okMark, mainConfig.SchemaPath, v.Mode())
	if d := v.Diagnostic(); d != "" {
		fmt.Printf("  %s %s\n", warn("!"), d)
	}
	return nil
}

func validateFiles(v *schema.Validator, files []string) error {
	if err := v.Load(); err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		name := filepath.Base(file)
		data, err := os.ReadFile(file)
		if err != nil {
			failed++
			fmt.Printf("%s %s: %v\n", failMark, name, err)
			continue
		}

		bodies, err := xmlwriter.ExtractBodies(data)
		if err != nil {
			failed++
			fmt.Printf("%s %s: %v\n", failMark, name, err)
			continue
		}

		for i, body := range bodies {
			label := fmt.Sprintf("%s#%d", name, i+1)
			raw, err := xmlwriter.BodyBytes(body)
			if err != nil {
				failed++
				fmt.Printf("%s %s: %v\n", failMark, label, err)
				continue
			}
			if ok, errs := v.Validate(raw); !ok {
				failed++
				fmt.Printf("%s %s\n", failMark, label)
				for _, e := range errs {
					fmt.Printf("    %s\n", e)
				}
				logger.Warn("body invalid", zap.String("body", label), zap.Strings("errors", errs))
				continue
			}
			fmt.Printf("%s %s\n", okMark, label)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d body/bodies failed validation", failed)
	}
	return nil
}
