package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/reportflow/pkg/export"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// batchCommand creates the batch command for exporting many reports into
// one zip archive.
func (c *CLI) batchCommand() *cobra.Command {
	var (
		output      string
		formatsStr  string
		idsFile     string
		employees   []string
		concurrency int
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "batch [report-id...]",
		Short: "Export many reports into a zip archive",
		Long: `Export many reports into a zip archive.

Reports are selected by id (arguments or --ids-file), else by --employee,
else the most recently updated reports are taken. Reports that are not ready
or fail to render are listed in batch-summary.json inside the archive and do
not stop the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			req := export.BatchRequest{
				ReportIDs:   args,
				EmployeeIDs: employees,
				Formats:     cfg.Export.Formats,
				Concurrency: cfg.Export.Concurrency,
			}
			if formatsStr != "" {
				req.Formats = parseFormats(formatsStr)
			}
			if concurrency > 0 {
				req.Concurrency = concurrency
			}
			if err := pipeline.ValidateFormats(req.Formats); err != nil {
				return err
			}
			if idsFile != "" {
				ids, err := readIDs(idsFile)
				if err != nil {
					return err
				}
				req.ReportIDs = append(req.ReportIDs, ids...)
			}

			b, err := c.openBackend(ctx, noCache)
			if err != nil {
				return err
			}
			defer b.Close()

			if output == "" {
				output = export.ZipFilename(time.Now())
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}

			sw := startStopwatch(c.Logger)
			spin := newSpinner(ctx, "Exporting reports...")
			req.Progress = spin.progress
			spin.start()
			summary, err := b.Exporter.Batch(ctx, req, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				spin.fail("Batch failed")
				_ = os.Remove(output)
				return fmt.Errorf("batch export: %w", err)
			}
			spin.stop()
			sw.done("Exported batch", "reports", summary.TotalReports, "failed", summary.Failed)

			printBatchSummary(summary)
			printFile(output)
			if summary.Exported == 0 && summary.TotalReports > 0 {
				return fmt.Errorf("no report could be exported")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path (default: reports_<timestamp>.zip)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s) per report (default from config)")
	cmd.Flags().StringVar(&idsFile, "ids-file", "", "file with one report id per line (- for stdin)")
	cmd.Flags().StringSliceVar(&employees, "employee", nil, "select the latest reports of these employee ids")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "parallel renders (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func printBatchSummary(s export.BatchSummary) {
	if s.Failed == 0 {
		printSuccess("Exported %d of %d reports", s.Exported, s.TotalReports)
	} else {
		printWarning("Exported %d of %d reports, %d failed", s.Exported, s.TotalReports, s.Failed)
	}
	for _, item := range s.Summary {
		if !item.OK {
			printDetail("%s: %s", item.ReportID, item.Reason)
		}
	}
}

// readIDs reads report ids, one per line. Blank lines and lines starting
// with # are skipped.
func readIDs(path string) ([]string, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		if f, err = os.Open(path); err != nil {
			return nil, fmt.Errorf("open ids file: %w", err)
		}
		defer f.Close()
	}

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ids file: %w", err)
	}
	return ids, nil
}
