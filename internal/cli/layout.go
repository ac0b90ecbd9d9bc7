package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/reportflow/pkg/auditmd"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/errors"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// layoutOpts holds the output flags of the layout command.
type layoutOpts struct {
	output     string
	auditMD    string
	noCache    bool
	layoutOnly bool
}

// layoutCommand creates the layout command for running the pipeline on a payload.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags runFlags
		opts  layoutOpts
	)

	cmd := &cobra.Command{
		Use:   "layout [payload.json|payload.yaml|-]",
		Short: "Lay out a report payload and validate the result",
		Long: `Lay out a report payload and validate the result.

The layout command reads a report payload (JSON or YAML), flows its sections
onto pages and checks every page for overlapping and out-of-bounds nodes.
The output is a result.json file holding the pages, the audit and any issues.
Accepted results can be rendered with the 'render' command.

A rejected layout is still written so its issues can be inspected, and the
command exits with an error.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			p, err := pipeline.ParsePayloadFile(args[0])
			if err != nil {
				return fmt.Errorf("load payload %s: %w", args[0], err)
			}
			return c.runLayout(cmd.Context(), args[0], flags.input(cmd, p, cfg), opts)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.result.json, stdout for -)")
	cmd.Flags().StringVar(&opts.auditMD, "audit-md", "", "also write the audit as Markdown to this file")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.layoutOnly, "layout-only", false, "write only the page list instead of the full result")

	return cmd
}

// runLayout runs the pipeline and writes its outputs.
func (c *CLI) runLayout(ctx context.Context, input string, in pipeline.Input, opts layoutOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sw := startStopwatch(loggerFromContext(ctx))
	spin := newSpinner(ctx, "Laying out report...")
	spin.start()

	res, cacheHit, err := runner.RunWithCacheInfo(ctx, in)
	if err != nil {
		spin.fail("Layout failed")
		return fmt.Errorf("run pipeline: %w", err)
	}
	spin.stop()
	sw.done("Laid out report", "employee", in.Payload.Meta.EmployeeID, "pages", res.Audit.PageCount, "ok", res.OK, "cached", cacheHit)

	if spin.interrupted() {
		return ctx.Err()
	}

	outputPath := opts.output
	if outputPath == "" && input != "-" {
		outputPath = derivePath(input, ".result.json")
	}
	keepStdoutClean(outputPath == "" || outputPath == "-")
	if opts.layoutOnly && res.OK {
		err = writePages(outputPath, res.Layout)
	} else {
		err = writeJSONFile(outputPath, res)
	}
	if err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}
	if opts.auditMD != "" {
		if err := writeAuditMarkdown(opts.auditMD, res); err != nil {
			return fmt.Errorf("write audit %s: %w", opts.auditMD, err)
		}
	}

	if !reportRun(res, cacheHit, outputPath, opts.auditMD) {
		return rejectedError(res)
	}
	printNewline()
	printNextStep("Render", "reportflow render "+displayPath(outputPath))
	return nil
}

// validateCommand creates the validate command for checking a layout file.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		output  string
		auditMD string
	)

	cmd := &cobra.Command{
		Use:   "validate [layout.json|-]",
		Short: "Validate the geometry of a layout file",
		Long: `Validate the geometry of a layout file.

The input is either a bare page list or a result.json written by 'layout'.
Every page is checked for overlapping content nodes and for nodes outside
the printable area. Legacy role values are migrated before checking.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := pipeline.ParseLayoutFile(args[0])
			if err != nil {
				return fmt.Errorf("load layout %s: %w", args[0], err)
			}
			layout.MigrateRoles(pages)
			res := pipeline.ValidateLayout(pages)

			keepStdoutClean(output == "-")
			if output != "" {
				if err := writeJSONFile(output, res); err != nil {
					return fmt.Errorf("write output %s: %w", output, err)
				}
			}
			if auditMD != "" {
				if err := writeAuditMarkdown(auditMD, res); err != nil {
					return fmt.Errorf("write audit %s: %w", auditMD, err)
				}
			}
			if !reportRun(res, false, output, auditMD) {
				return rejectedError(res)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the validation result as JSON to this file (- for stdout)")
	cmd.Flags().StringVar(&auditMD, "audit-md", "", "also write the audit as Markdown to this file")

	return cmd
}

// =============================================================================
// Output Helpers
// =============================================================================

// reportRun prints the outcome of a run and reports whether it was accepted.
func reportRun(res pipeline.Result, cached bool, outputPath, auditPath string) bool {
	if res.OK {
		printSuccess("Layout accepted")
	} else {
		printError("Layout rejected")
	}
	if outputPath != "" && outputPath != "-" {
		printFile(outputPath)
	}
	if auditPath != "" {
		printFile(auditPath)
	}
	printStats(res.Audit, cached)
	if !res.OK {
		printNewline()
		printIssues(res.Issues)
	}
	return res.OK
}

func rejectedError(res pipeline.Result) error {
	return errors.New(errors.ErrCodeLayoutValidationFailed,
		"layout validation failed with %d issue(s)", len(res.Issues))
}

func writeJSONFile(path string, v any) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writePages(path string, pages []layout.Page) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return layout.EncodePages(out, pages)
}

func writeAuditMarkdown(path string, res pipeline.Result) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return auditmd.Write(out, res)
}

// derivePath replaces the extension of input with suffix.
func derivePath(input, suffix string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	base = strings.TrimSuffix(base, ".result")
	return base + suffix
}

func displayPath(path string) string {
	if path == "" {
		return "-"
	}
	return path
}
