package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reportflow/pkg/pipeline"
	"github.com/matzehuels/reportflow/pkg/store"
)

// reportCommand creates the report command group for stored reports.
func (c *CLI) reportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Create, list, regenerate and export stored reports",
		Long: `Create, list, regenerate and export stored reports.

Reports are kept in the configured store (SQLite by default). Each report
remembers its payload, its last layout and the audit of its last run. Only
reports with status 'ready' can be exported.`,
	}

	cmd.AddCommand(c.reportCreateCommand())
	cmd.AddCommand(c.reportListCommand())
	cmd.AddCommand(c.reportShowCommand())
	cmd.AddCommand(c.reportRegenerateCommand())
	cmd.AddCommand(c.reportExportCommand())

	return cmd
}

func (c *CLI) reportCreateCommand() *cobra.Command {
	var (
		flags   runFlags
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "create [payload.json|payload.yaml|-]",
		Short: "Lay out a payload and store it as a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			p, err := pipeline.ParsePayloadFile(args[0])
			if err != nil {
				return fmt.Errorf("load payload %s: %w", args[0], err)
			}

			b, err := c.openBackend(ctx, noCache)
			if err != nil {
				return err
			}
			defer b.Close()

			rec, res, err := b.Service.Create(ctx, flags.input(cmd, p, cfg))
			if err != nil {
				return fmt.Errorf("create report: %w", err)
			}
			return reportOutcome("Created", rec, res, nil)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) reportListCommand() *cobra.Command {
	var (
		status   string
		employee string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reports, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := store.ListOptions{EmployeeID: employee, Limit: limit}
			if status != "" {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				opts.Status = st
			}

			b, err := c.openBackend(ctx, true)
			if err != nil {
				return err
			}
			defer b.Close()

			recs, err := b.Store.List(ctx, opts)
			if err != nil {
				return fmt.Errorf("list reports: %w", err)
			}
			if len(recs) == 0 {
				printInfo("No reports found")
				return nil
			}
			printReports(recs, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status: draft, ready, validation_failed")
	cmd.Flags().StringVar(&employee, "employee", "", "filter by employee id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of reports (0 for all)")

	return cmd
}

func (c *CLI) reportShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [report-id]",
		Short: "Show a stored report and its last audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := c.openBackend(ctx, true)
			if err != nil {
				return err
			}
			defer b.Close()

			rec, err := b.Store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSONFile("-", rec)
			}

			printKeyValue("ID", rec.ID)
			printKeyValue("Title", rec.Title)
			printKeyValue("Employee", fmt.Sprintf("%s (%s)", rec.EmployeeName, rec.EmployeeID))
			printKeyValue("Period", rec.PeriodKey)
			printKeyValue("Status", statusText(rec.Status))
			printKeyValue("Page size", rec.PageSize)
			printKeyValue("Variant", fmt.Sprint(rec.VariantIndex))
			if rec.StylePreset != "" {
				printKeyValue("Style", rec.StylePreset)
			}
			if rec.DebugID != "" {
				printKeyValue("Debug id", rec.DebugID)
			}
			printKeyValue("Updated", rec.UpdatedAt.Local().Format(time.DateTime))
			if rec.Audit != nil {
				printNewline()
				printStats(*rec.Audit, false)
			}
			if len(rec.Issues) > 0 {
				printNewline()
				printIssues(rec.Issues)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full record as JSON")

	return cmd
}

func (c *CLI) reportRegenerateCommand() *cobra.Command {
	var (
		flags   runFlags
		walk    bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "regenerate [report-id]",
		Short: "Re-run the layout of a stored report",
		Long: `Re-run the layout of a stored report.

Options given here replace the stored ones. With --walk-styles every style
preset is tried, starting with the one picked for the variant, until a
layout validates.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := c.openBackend(ctx, noCache)
			if err != nil {
				return err
			}
			defer b.Close()

			opts := store.RegenerateOptions{
				PageSize:    flags.pageSize,
				Intent:      flags.intent,
				StylePreset: flags.style,
				WalkStyles:  walk,
			}
			if cmd.Flags().Changed("variant") {
				v := flags.variant
				opts.VariantIndex = &v
			}

			rec, res, tried, err := b.Service.Regenerate(ctx, args[0], opts)
			if err != nil {
				return fmt.Errorf("regenerate report: %w", err)
			}
			return reportOutcome("Regenerated", rec, res, tried)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&walk, "walk-styles", false, "try every style preset until one validates")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) reportExportCommand() *cobra.Command {
	var (
		formatsStr string
		dir        string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "export [report-id]",
		Short: "Export a ready report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			formats := cfg.Export.Formats
			if formatsStr != "" {
				formats = parseFormats(formatsStr)
			}
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}

			b, err := c.openBackend(ctx, noCache)
			if err != nil {
				return err
			}
			defer b.Close()

			return exportReport(ctx, b, args[0], formats, dir)
		},
	}

	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): pdf, svg, png, json (default from config)")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "output directory")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func exportReport(ctx context.Context, b *backend, id string, formats []string, dir string) error {
	rec, err := b.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, format := range formats {
		a, err := b.Exporter.Export(ctx, rec, format)
		if err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
		path := filepath.Join(dir, a.Filename)
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printSuccess("Exported %s", rec.Title)
	return nil
}

// =============================================================================
// Output Helpers
// =============================================================================

// reportOutcome prints a create or regenerate result. A stored but rejected
// report is reported as an error.
func reportOutcome(verb string, rec *store.Record, res pipeline.Result, tried []string) error {
	if res.OK {
		printSuccess("%s report %s", verb, rec.ID)
	} else {
		printError("%s report %s, layout rejected", verb, rec.ID)
	}
	printDetail("%s · %s", rec.Title, statusText(rec.Status))
	if len(tried) > 1 {
		printDetail("Styles tried: %s", strings.Join(tried, ", "))
	}
	printStats(res.Audit, false)

	if !res.OK {
		printNewline()
		printIssues(res.Issues)
		printDetail("Debug id: %s", rec.DebugID)
		return rejectedError(res)
	}
	printNewline()
	printNextStep("Export", "reportflow report export "+rec.ID)
	return nil
}

func printReports(recs []*store.Record, now time.Time) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("ID", "Employee", "Period", "Status", "Pages", "Updated").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			if col == 0 || col == 5 {
				return StyleDim
			}
			return StyleValue
		})

	for _, rec := range recs {
		t.Row(rec.ID, rec.EmployeeName, rec.PeriodKey, statusText(rec.Status),
			fmt.Sprint(pageCount(rec)), formatRelativeTime(rec.UpdatedAt, now))
	}
	fmt.Fprintln(uiOut, t.Render())
	printDetail("%d report(s)", len(recs))
}

func pageCount(rec *store.Record) int {
	if rec.Audit != nil {
		return rec.Audit.PageCount
	}
	return len(rec.Layout)
}

func statusText(s pipeline.Status) string {
	switch s {
	case pipeline.StatusReady:
		return StyleSuccess.Render(string(s))
	case pipeline.StatusValidationFailed:
		return styleIconError.Render(string(s))
	default:
		return StyleDim.Render(string(s))
	}
}

func parseStatus(s string) (pipeline.Status, error) {
	st := pipeline.Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case pipeline.StatusDraft, pipeline.StatusReady, pipeline.StatusValidationFailed:
		return st, nil
	}
	return "", fmt.Errorf("invalid status: %q (must be one of: draft, ready, validation_failed)", s)
}
