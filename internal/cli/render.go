package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string   // output file path (or base path for multiple outputs)
	formats   []string // output formats: "svg", "pdf", "png", "json"
	scale     float64  // PNG scale factor
	highlight []string // node ids to outline
	debug     bool     // outline every node and render rejected layouts
	noCache   bool
}

// renderCommand creates the render command for exporting a layout.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr, highlightStr string
	opts := renderOpts{scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "render [result.json|layout.json]",
		Short: "Render an accepted layout to SVG, PDF, PNG or JSON",
		Long: `Render an accepted layout to SVG, PDF, PNG or JSON.

The input is a result.json written by 'layout' or a bare page list. The
layout is validated again before rendering and refused when it has issues.

With --debug every node is outlined and a layout with issues is rendered
anyway, with the offending nodes highlighted. Diagnostic renders are never
cached.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			opts.highlight = splitIDs(highlightStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), pdf, png, json (comma-separated)")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	cmd.Flags().StringVar(&highlightStr, "highlight", "", "node ids to outline (comma-separated)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "outline all nodes and render layouts with issues")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(strings.TrimSuffix(input, filepath.Ext(input)), ".result")
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// runRender loads the layout, checks it and writes one file per format.
func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	logger.Infof("Rendering %s", input)

	pages, err := pipeline.ParseLayoutFile(input)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", input, err)
	}
	layout.MigrateRoles(pages)

	res := pipeline.ValidateLayout(pages)
	if !res.OK {
		if !opts.debug {
			printIssues(res.Issues)
			return rejectedError(res)
		}
		printWarning("Rendering a layout with %d issue(s)", len(res.Issues))
		opts.highlight = append(opts.highlight, issueNodeIDs(res.Issues)...)
	}
	logger.Infof("Loaded layout: %d pages, %d nodes", res.Audit.PageCount, res.Audit.NodeCount)

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sw := startStopwatch(logger)
	artifacts, cached, err := runner.RenderWithCacheInfo(ctx, pages, pipeline.RenderOptions{
		Formats:   opts.formats,
		Scale:     opts.scale,
		Highlight: opts.highlight,
		Debug:     opts.debug,
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	sw.done("Rendered layout", "formats", strings.Join(opts.formats, ","), "cached", cached)

	base := basePath(opts.output, input)
	for _, format := range opts.formats {
		path := base + "." + format
		if len(opts.formats) == 1 && opts.output != "" {
			path = opts.output
		}
		if err := writeArtifact(path, artifacts[format]); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Infof("Generated %s", path)
	}
	return nil
}

func writeArtifact(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = out.Write(data)
	return err
}

// issueNodeIDs returns the sorted, distinct node ids named by issues.
func issueNodeIDs(issues []validate.Issue) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, iss := range issues {
		for _, id := range iss.NodeIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// inspectCommand creates the inspect command, an interactive browser for
// the pages and issues of a result.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [result.json|layout.json]",
		Short: "Browse the pages and issues of a layout interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loadResult(args[0])
			if err != nil {
				return err
			}
			p := tea.NewProgram(NewInspectModel(res), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
}

// loadResult reads a serialized result, or validates a bare page list into
// one.
func loadResult(path string) (pipeline.Result, error) {
	res, err := pipeline.ParseResultFile(path)
	if err == nil && (len(res.Layout) > 0 || len(res.Issues) > 0 || res.Audit.PageCount > 0) {
		return res, nil
	}
	pages, perr := pipeline.ParseLayoutFile(path)
	if perr != nil {
		return pipeline.Result{}, fmt.Errorf("load %s: %w", path, perr)
	}
	layout.MigrateRoles(pages)
	return pipeline.ValidateLayout(pages), nil
}
