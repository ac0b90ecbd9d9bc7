package store

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// Service runs the pipeline for stored reports and persists the outcome.
type Service struct {
	Store  Store
	Runner *pipeline.Runner
	Logger *log.Logger
}

// NewService creates a service. A nil runner runs uncached.
func NewService(s Store, runner *pipeline.Runner, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	return &Service{Store: s, Runner: runner, Logger: logger}
}

// Create runs the pipeline for in and stores a new record with the result.
// A malformed payload returns an error and stores nothing; a rejected layout
// is stored with status validation_failed.
func (s *Service) Create(ctx context.Context, in pipeline.Input) (*Record, pipeline.Result, error) {
	res, err := s.Runner.Run(ctx, in)
	if err != nil {
		return nil, pipeline.Result{}, err
	}
	// ValidateAndSetDefaults already succeeded inside Run.
	_ = in.ValidateAndSetDefaults()

	meta := in.Payload.Meta
	rec := &Record{
		EmployeeID:   strings.TrimSpace(meta.EmployeeID),
		EmployeeName: strings.TrimSpace(meta.EmployeeName),
		PeriodKey:    strings.TrimSpace(meta.PeriodKey),
		PageSize:     in.PageSize,
		Intent:       in.Intent,
		VariantIndex: in.Variant(),
		StylePreset:  in.StylePreset,
		Payload:      in.Payload,
		DebugID:      uuid.NewString(),
	}
	Apply(rec, res)
	if err := s.Store.Create(ctx, rec); err != nil {
		return nil, pipeline.Result{}, err
	}
	s.logResult(rec, res)
	return rec, res, nil
}

// RegenerateOptions override the stored run options of a report.
type RegenerateOptions struct {
	PageSize     string `json:"pageSize,omitempty"`
	Intent       string `json:"intent,omitempty"`
	VariantIndex *int   `json:"variantIndex,omitempty"`
	StylePreset  string `json:"stylePreset,omitempty"`

	// WalkStyles tries every style preset, starting with the one picked for
	// the variant, until a layout validates. It has no effect when a style
	// is fixed by the options, the record or the payload.
	WalkStyles bool `json:"walkStyles,omitempty"`
}

// Regenerate re-runs the pipeline for a stored report and persists the
// outcome. It returns the styles that were tried in order.
func (s *Service) Regenerate(ctx context.Context, id string, opts RegenerateOptions) (*Record, pipeline.Result, []string, error) {
	rec, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, pipeline.Result{}, nil, err
	}

	in := rec.Input()
	if opts.PageSize != "" {
		in.PageSize = opts.PageSize
	}
	if opts.Intent != "" {
		in.Intent = opts.Intent
	}
	if opts.VariantIndex != nil {
		in.VariantIndex = opts.VariantIndex
	}
	if opts.StylePreset != "" {
		in.StylePreset = opts.StylePreset
	}
	if err := in.ValidateAndSetDefaults(); err != nil {
		return nil, pipeline.Result{}, nil, err
	}

	candidates := []string{in.StylePreset}
	if _, source := in.Style(); opts.WalkStyles && source == pipeline.StyleSourceVariant {
		candidates = candidates[:0]
		for _, c := range layout.StyleCandidates(in.Variant()) {
			candidates = append(candidates, string(c))
		}
	}

	var (
		first  pipeline.Result
		chosen pipeline.Result
		style  string
		tried  []string
		found  bool
	)
	for i, c := range candidates {
		attempt := in
		attempt.StylePreset = c
		res, err := s.Runner.Run(ctx, attempt)
		if err != nil {
			return nil, pipeline.Result{}, tried, err
		}
		tried = append(tried, res.Audit.StylePreset)
		if i == 0 {
			first = res
		}
		if res.OK {
			chosen, style, found = res, c, true
			break
		}
		s.Logger.Debug("style rejected", "report", id, "style", res.Audit.StylePreset, "issues", len(res.Issues))
	}
	if !found {
		// Report the primary style's issues, not the last fallback's.
		chosen, style = first, candidates[0]
	}

	rec.PageSize = in.PageSize
	rec.Intent = in.Intent
	rec.VariantIndex = in.Variant()
	if len(candidates) > 1 && found && style != candidates[0] {
		rec.StylePreset = style
	} else {
		rec.StylePreset = in.StylePreset
	}
	rec.DebugID = uuid.NewString()
	Apply(rec, chosen)
	if err := s.Store.Update(ctx, rec); err != nil {
		return nil, pipeline.Result{}, tried, err
	}
	s.logResult(rec, chosen)
	return rec, chosen, tried, nil
}

func (s *Service) logResult(rec *Record, res pipeline.Result) {
	if res.OK {
		s.Logger.Info("report ready", "report", rec.ID, "debug_id", rec.DebugID, "pages", res.Audit.PageCount)
		return
	}
	s.Logger.Warn("report failed validation", "report", rec.ID, "debug_id", rec.DebugID, "issues", len(res.Issues))
}
