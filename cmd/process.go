// =============================================================================
// UWV Sickness Notification XML Generator - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command for turning
// spreadsheet uploads into UwvML envelopes.
//
// COMMAND USAGE:
//   uwvzw process <upload|directory>... [flags]
//
// FLAGS:
//   --sender           : Upload selection: Digipoort, ZBM or VM
//   --validate         : Validate every message body against the XSD
//   --tester           : Tester name used in the message reference
//   --fixed-timestamp  : RFC 3339 timestamp for deterministic output
//   --sheet            : Workbook sheet to read (default: active sheet)
//   --data-only        : Keep cached formula results instead of sanitizing
//   --no-zip           : Do not build the download archive
//   --dry-run          : Run the pipeline without writing files
//
// PROCESSING PIPELINE:
//   1. Discover the uploads (.xlsx and .csv; directories are walked)
//   2. For each upload:
//      a. Read the sheet (XLSX or CSV reader)
//      b. Run the batch: normalize, transform, validate, build, save
//      c. Print the per-row errors
//   3. Clean expired archives and package the generated files
//   4. Print a summary with the event log success rate
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
	"github.com/ginjaninja78/uwv-zw-xml/internal/converter"
	"github.com/ginjaninja78/uwv-zw-xml/internal/csvparser"
	"github.com/ginjaninja78/uwv-zw-xml/internal/schema"
	"github.com/ginjaninja78/uwv-zw-xml/internal/types"
	"github.com/ginjaninja78/uwv-zw-xml/internal/xlsxparser"
	"github.com/ginjaninja78/uwv-zw-xml/internal/xmlwriter"
	"github.com/ginjaninja78/uwv-zw-xml/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	sender         string
	validateXSD    bool
	testerName     string
	fixedTimestamp string
	sheetName      string
	dataOnly       bool
	noZip          bool
	dryRun         bool
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	warn     = color.New(color.FgYellow).SprintFunc()
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process <upload|directory>...",
	Short: "Convert spreadsheet uploads into UwvML envelopes",
	Long: `The process command reads each upload (.xlsx or .csv), maps its columns
onto the canonical notification fields and writes one envelope per upload:
a bulk envelope when several rows succeed, a single-message envelope when
exactly one does.

A failing row never stops the batch. Every failure is reported as
"Regel N: ..." and the remaining rows are still generated.

On success:
  - The envelope is written to the output directory of its message type
  - Every save is recorded in the event log
  - The generated files are packaged in a download archive`,

	Args: cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&sender, "sender", "", "Upload selection: Digipoort, ZBM or VM (default: default_sender)")
	processCmd.Flags().BoolVar(&validateXSD, "validate", false, "Validate every message body against the XSD")
	processCmd.Flags().StringVar(&testerName, "tester", "", "Tester name used in the message reference")
	processCmd.Flags().StringVar(&fixedTimestamp, "fixed-timestamp", "", "RFC 3339 timestamp for deterministic output")
	processCmd.Flags().StringVar(&sheetName, "sheet", "", "Workbook sheet to read (default: the active sheet)")
	processCmd.Flags().BoolVar(&dataOnly, "data-only", false, "Keep cached formula results instead of sanitizing formula cells")
	processCmd.Flags().BoolVar(&noZip, "no-zip", false, "Do not build the download archive")
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the pipeline without writing output files")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()

	if sender != "" && xmlwriter.SenderType(sender) == "" {
		return fmt.Errorf("unknown sender '%s' (expected Digipoort, ZBM or VM)", sender)
	}

	params := converter.Params{Sender: sender, Validate: validateXSD, TesterName: testerName}
	if fixedTimestamp != "" {
		ts, err := time.Parse(time.RFC3339, fixedTimestamp)
		if err != nil {
			return fmt.Errorf("invalid --fixed-timestamp: %w", err)
		}
		params.FixedTime = &ts
	}

	uploads, err := discoverUploads(args)
	if err != nil {
		return fmt.Errorf("failed to discover uploads: %w", err)
	}
	if len(uploads) == 0 {
		fmt.Println("No .xlsx or .csv uploads found.")
		return nil
	}

	fm := utils.NewFileManager(mainConfig)
	opts := []converter.Option{converter.WithLogger(logger)}
	if !dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}
		opts = append(opts, converter.WithStore(fm))
	}
	if validateXSD && mainConfig.SchemaPath != "" {
		v := schema.New(mainConfig.SchemaPath, schema.WithLogger(logger))
		defer v.Close()
		opts = append(opts, converter.WithSchemaValidator(v))
	}

	conv, err := converter.New(mainConfig, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("=== UWV ziekmelding XML ===\n")
	fmt.Printf("Processing %d upload(s)...\n", len(uploads))

	var (
		outputs                      []converter.Output
		failedUploads, rowErrs, rows int
	)
	for _, upload := range uploads {
		sheet, err := readUpload(upload, mainConfig)
		if err != nil {
			failedUploads++
			fmt.Printf("  %s %s: %v\n", failMark, filepath.Base(upload), err)
			logger.Error("upload unreadable", zap.String("file", upload), zap.Error(err))
			continue
		}

		result, err := conv.Run(ctx, sheet, params)
		if err != nil {
			return err
		}
		printResult(upload, result)

		rows += len(result.Rows)
		rowErrs += len(result.Errors)
		outputs = append(outputs, result.Outputs...)
	}

	if !dryRun && !noZip && len(outputs) > 0 {
		if err := packageOutputs(outputs); err != nil {
			fmt.Printf("  %s archive: %v\n", failMark, err)
			logger.Error("archive failed", zap.Error(err))
		}
	}

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Uploads:         %d\n", len(uploads))
	fmt.Printf("Rows:            %d\n", rows)
	fmt.Printf("Files generated: %d\n", len(outputs))
	fmt.Printf("Row errors:      %d\n", rowErrs)
	if rate, ok := utils.SuccessRate(mainConfig.EventsFile); ok && !dryRun {
		fmt.Printf("Save success:    %s\n", rate)
	}
	fmt.Printf("Time elapsed:    %s\n", time.Since(startTime).Round(time.Millisecond))

	if failedUploads > 0 {
		return fmt.Errorf("%d upload(s) could not be read", failedUploads)
	}
	return nil
}

// printResult reports one upload.
func printResult(upload string, result *converter.BatchResult) {
	name := filepath.Base(upload)
	if result.Diagnostic != "" {
		fmt.Printf("  %s %s: %s\n", warn("!"), name, result.Diagnostic)
	}
	if result.FormulaCount > 0 {
		fmt.Printf("  %s %s: %d formule(s) verwijderd\n", warn("!"), name, result.FormulaCount)
	}
	for _, out := range result.Outputs {
		target := out.Path
		if target == "" {
			target = out.Filename + " (niet opgeslagen)"
		}
		fmt.Printf("  %s %s -> %s (%d bericht(en))\n", okMark, name, target, out.Bodies)
	}
	for _, e := range result.Errors {
		fmt.Printf("  %s %s: %s\n", failMark, name, e)
	}
	if len(result.Outputs) == 0 && len(result.Errors) == 0 {
		fmt.Printf("  %s %s: geen gegevensregels\n", warn("!"), name)
	}
}

// packageOutputs cleans expired archives and zips the generated files.
func packageOutputs(outputs []converter.Output) error {
	removed, err := utils.CleanOldArchives(mainConfig.DownloadsDir, mainConfig.MaxDownloadAge())
	if err != nil {
		logger.Warn("archive cleanup failed", zap.Error(err))
	} else if removed > 0 {
		logger.Info("expired archives removed", zap.Int("count", removed))
	}

	friendly := xmlwriter.FriendlyType(outputs[0].MessageType)
	files := make([]string, 0, len(outputs))
	for _, out := range outputs {
		if xmlwriter.FriendlyType(out.MessageType) != friendly {
			friendly = "gemengd"
		}
		files = append(files, out.Path)
	}

	zipPath := filepath.Join(mainConfig.DownloadsDir, utils.ArchiveName(friendly, time.Now()))
	if err := utils.BuildZip(zipPath, files, mainConfig.Zip); err != nil {
		return err
	}
	fmt.Printf("  %s archive -> %s\n", okMark, zipPath)
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// discoverUploads expands directories into the uploads they contain.
//
// PARAMETERS:
//   - args: Files and directories from the command line.
//
// RETURNS:
//   - The upload paths, directories walked recursively and sorted.
//   - An error if a path cannot be read.
func discoverUploads(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), "~$") {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".xlsx", ".xlsm", ".csv":
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// readUpload selects the reader by file extension.
func readUpload(path string, cfg *config.MainConfig) (*types.Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return xlsxparser.ParseWithOptions(path, xlsxparser.Options{Sheet: sheetName, DataOnly: dataOnly})
	case ".csv":
		return csvparser.Parse(path, cfg.CSVSettings)
	}
	return nil, fmt.Errorf("unsupported upload type '%s'", filepath.Ext(path))
}
