package pipeline

import (
	"slices"

	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/flow"
	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
)

// Built is the output of the build stage: the adapted report, the resolved
// settings and the flowed pages, not yet validated.
type Built struct {
	Input       Input
	Report      content.Report
	PageSize    layout.PageSize
	Preset      layout.Preset
	StyleSource string
	Flow        flow.Result
}

// Build adapts the payload and flows it onto pages.
func Build(in Input) (Built, error) {
	if err := in.ValidateAndSetDefaults(); err != nil {
		return Built{}, err
	}

	report, err := content.FromPayload(in.Payload)
	if err != nil {
		return Built{}, err
	}

	size, err := layout.ResolvePageSize(in.PageSize)
	if err != nil {
		return Built{}, err
	}
	styleName, source := in.Style()
	preset, err := layout.ResolvePreset(styleName)
	if err != nil {
		return Built{}, err
	}

	res := flow.Build(report, size, preset, in.Variant(), flow.Options{Intent: flow.Intent(in.Intent)})
	return Built{
		Input:       in,
		Report:      report,
		PageSize:    size,
		Preset:      preset,
		StyleSource: source,
		Flow:        res,
	}, nil
}

// Check validates built pages and assembles the result.
func Check(b Built) Result {
	vr := validate.Validate(b.Flow.Pages)
	audit := newAudit(b.Flow.Pages, vr)

	audit.Title = b.Report.Title
	audit.EmployeeID = b.Report.Meta.EmployeeID
	audit.PeriodKey = b.Report.Meta.PeriodKey
	audit.Intent = b.Input.Intent
	audit.PageSize = string(b.PageSize.Key)
	audit.VariantIndex = b.Input.Variant()
	audit.StylePreset = string(b.Preset.Name)
	audit.StyleSource = b.StyleSource
	for _, c := range layout.StyleCandidates(audit.VariantIndex) {
		audit.StyleCandidates = append(audit.StyleCandidates, string(c))
	}
	audit.KPIColumns = flow.KPIColumns(audit.VariantIndex)
	if len(b.Flow.Sections) > 0 {
		audit.Sections = b.Flow.Sections
	}
	if len(b.Flow.Shrunk) > 0 {
		audit.ShrunkNodes = b.Flow.Shrunk
	}

	return assemble(b.Flow.Pages, vr, audit)
}

// Run executes the complete pipeline. An invalid layout is reported through
// the result, not as an error; errors are returned only for malformed
// payloads and invalid options.
func Run(in Input) (Result, error) {
	b, err := Build(in)
	if err != nil {
		return Result{}, err
	}
	return Check(b), nil
}

// ValidateLayout checks a layout that was produced elsewhere, for example a
// saved layout document. Nodes without a role get one as in
// layout.MigrateRoles, so legacy "-bg-" nodes count as background; pages is
// not modified. The audit carries only layout-derived fields.
func ValidateLayout(pages []layout.Page) Result {
	pages = withRoles(pages)
	vr := validate.Validate(pages)
	return assemble(pages, vr, newAudit(pages, vr))
}

// withRoles returns pages with every role filled in, copying only when a
// node lacks one.
func withRoles(pages []layout.Page) []layout.Page {
	missing := false
	for _, p := range pages {
		for _, n := range p.Nodes {
			if n.Role == "" {
				missing = true
			}
		}
	}
	if !missing {
		return pages
	}
	out := make([]layout.Page, len(pages))
	for i, p := range pages {
		p.Nodes = slices.Clone(p.Nodes)
		out[i] = p
	}
	layout.MigrateRoles(out)
	return out
}

func assemble(pages []layout.Page, vr validate.Result, audit Audit) Result {
	if !vr.OK() {
		return Result{OK: false, Issues: vr.Issues, Audit: audit}
	}
	if pages == nil {
		pages = []layout.Page{}
	}
	return Result{OK: true, Layout: pages, Issues: []validate.Issue{}, Audit: audit}
}
