// Package pipeline provides the report layout pipeline for reportflow.
//
// This package implements the complete payload → content → layout → validate
// pipeline used by the CLI, the API server and the report store. By
// centralizing this logic, every entry point produces identical layouts and
// applies the same acceptance rule.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Adapt: Validate the payload and convert it into a content report
//  2. Build: Flow the report onto pages ([flow.Build])
//  3. Check: Validate the pages ([validate.Validate]) and assemble the audit
//
// [Run] executes all three and never fails on an invalid layout: an invalid
// layout is a normal [Result] with OK=false and its issues. The only error
// path is a malformed payload or invalid input options.
//
// # Usage
//
// Run the pure pipeline:
//
//	res, err := pipeline.Run(pipeline.Input{Payload: p, PageSize: "A4"})
//	if err != nil {
//	    // malformed payload or bad options
//	}
//	if !res.OK {
//	    for _, iss := range res.Issues { ... }
//	}
//
// Or use a Runner for caching, hooks and logging:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Run(ctx, in)
//	artifacts, err := runner.Render(ctx, res.Layout, pipeline.RenderOptions{Formats: []string{"pdf"}})
package pipeline

import (
	"strings"

	"github.com/matzehuels/reportflow/pkg/cache"
	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/flow"
	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
	"github.com/matzehuels/reportflow/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Store
// =============================================================================

// EngineVersion identifies the layout rules. It is part of every result
// cache key, so bump it whenever a change alters layout output.
const EngineVersion = "reportflow-layout/1"

const (
	// DefaultPageSize is the page size used when none is given.
	DefaultPageSize = string(layout.PageA4)

	// DefaultIntent is the layout intent used when none is given.
	DefaultIntent = string(flow.IntentExport)

	// DefaultScale is the PNG scale factor.
	DefaultScale = 4.0
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// ValidIntents is the set of supported layout intents.
var ValidIntents = map[string]bool{
	string(flow.IntentExport):  true,
	string(flow.IntentPreview): true,
}

// Style sources recorded in the audit.
const (
	StyleSourceExplicit = "explicit"
	StyleSourceVariant  = "variant"
)

// =============================================================================
// Input - Pipeline Configuration
// =============================================================================

// Input contains everything a pipeline run depends on.
// This struct supports JSON serialization for API requests.
type Input struct {
	Payload content.Payload `json:"payload"`

	// Intent is "export" (default) or "preview".
	Intent string `json:"intent,omitempty"`

	// PageSize is "A4" (default) or "LETTER".
	PageSize string `json:"pageSize,omitempty"`

	// VariantIndex overrides payload.meta.variantIndex when set.
	VariantIndex *int `json:"variantIndex,omitempty"`

	// StylePreset overrides payload.meta.stylePreset when set. Without
	// either, the preset is picked from the variant index.
	StylePreset string `json:"stylePreset,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks the run options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
// The payload itself is validated later by the adapter.
func (in *Input) ValidateAndSetDefaults() error {
	if in.validated {
		return nil
	}

	in.Intent = strings.ToLower(strings.TrimSpace(in.Intent))
	if in.Intent == "" {
		in.Intent = DefaultIntent
	}
	if err := ValidateIntent(in.Intent); err != nil {
		return err
	}

	ps, err := layout.ResolvePageSize(in.PageSize)
	if err != nil {
		return err
	}
	in.PageSize = string(ps.Key)

	in.StylePreset = strings.ToLower(strings.TrimSpace(in.StylePreset))
	if in.StylePreset != "" {
		if _, err := layout.ResolvePreset(in.StylePreset); err != nil {
			return err
		}
	}

	in.validated = true
	return nil
}

// Variant returns the effective variant index.
func (in *Input) Variant() int {
	if in.VariantIndex != nil {
		return *in.VariantIndex
	}
	return in.Payload.Meta.VariantIndex
}

// Style returns the effective style preset name and where it came from.
func (in *Input) Style() (string, string) {
	if in.StylePreset != "" {
		return in.StylePreset, StyleSourceExplicit
	}
	if s := strings.ToLower(strings.TrimSpace(in.Payload.Meta.StylePreset)); s != "" {
		return s, StyleSourceExplicit
	}
	return string(layout.PresetForVariant(in.Variant())), StyleSourceVariant
}

// ResultKeyOpts returns cache key options for a pipeline result.
func (in *Input) ResultKeyOpts() cache.ResultKeyOpts {
	style, _ := in.Style()
	return cache.ResultKeyOpts{
		Engine:       EngineVersion,
		Intent:       in.Intent,
		PageSize:     in.PageSize,
		VariantIndex: in.Variant(),
		StylePreset:  style,
	}
}

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of a pipeline run. Exactly one of Layout and Issues
// is populated: Layout when OK, Issues otherwise. Audit is always present.
type Result struct {
	OK     bool             `json:"ok"`
	Layout []layout.Page    `json:"layout,omitempty"`
	Issues []validate.Issue `json:"issues"`
	Audit  Audit            `json:"audit"`
}

// Status is the persisted state of a report.
type Status string

// Report statuses.
const (
	StatusDraft            Status = "draft"
	StatusReady            Status = "ready"
	StatusValidationFailed Status = "validation_failed"
)

// StatusFor maps a result onto the status a report must take.
func StatusFor(r Result) Status {
	if r.OK {
		return StatusReady
	}
	return StatusValidationFailed
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateIntent checks that an intent is valid.
func ValidateIntent(intent string) error {
	if !ValidIntents[intent] {
		return errors.New(errors.ErrCodeInvalidIntent, "invalid intent: %q (must be one of: export, preview)", intent)
	}
	return nil
}
