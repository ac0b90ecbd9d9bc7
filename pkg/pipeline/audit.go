package pipeline

import (
	"bytes"

	"github.com/matzehuels/reportflow/pkg/cache"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/flow"
	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
)

// Audit summarizes a pipeline run. It is produced for accepted and rejected
// layouts alike and carries no timestamps, so two runs over the same input
// yield identical audits.
type Audit struct {
	Engine     string `json:"engine"`
	Title      string `json:"title,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
	PeriodKey  string `json:"periodKey,omitempty"`

	// Input echo, after defaults.
	Intent          string   `json:"intent,omitempty"`
	PageSize        string   `json:"pageSize,omitempty"`
	VariantIndex    int      `json:"variantIndex"`
	StylePreset     string   `json:"stylePreset,omitempty"`
	StyleSource     string   `json:"styleSource,omitempty"`
	StyleCandidates []string `json:"styleCandidates,omitempty"`
	KPIColumns      int      `json:"kpiColumns,omitempty"`

	PageCount        int                   `json:"pageCount"`
	NodeCount        int                   `json:"nodeCount"`
	ContentNodeCount int                   `json:"contentNodeCount"`
	Pages            []PageStat            `json:"pages"`
	IssueCounts      map[validate.Code]int `json:"issueCounts"`
	Sections         []flow.SectionStat    `json:"sections"`
	ShrunkNodes      []string              `json:"shrunkNodes"`

	// LayoutHash is the SHA-256 of the encoded pages.
	LayoutHash string `json:"layoutHash"`
}

// PageStat holds per-page counts.
type PageStat struct {
	ID           string `json:"id"`
	Nodes        int    `json:"nodes"`
	ContentNodes int    `json:"contentNodes"`
	Issues       int    `json:"issues"`
}

// IssueCount returns the total number of issues recorded in the audit.
func (a Audit) IssueCount() int {
	n := 0
	for _, c := range a.IssueCounts {
		n += c
	}
	return n
}

// newAudit fills the layout-derived parts of an audit.
func newAudit(pages []layout.Page, vr validate.Result) Audit {
	perPage := make(map[string]int)
	for _, iss := range vr.Issues {
		perPage[iss.PageID]++
	}

	a := Audit{
		Engine:    EngineVersion,
		PageCount: len(pages),
		Pages:     make([]PageStat, 0, len(pages)),
		IssueCounts: map[validate.Code]int{
			validate.CodeBounds:  vr.Count(validate.CodeBounds),
			validate.CodeOverlap: vr.Count(validate.CodeOverlap),
		},
		Sections:    []flow.SectionStat{},
		ShrunkNodes: []string{},
		LayoutHash:  layoutHash(pages),
	}
	for _, p := range pages {
		content := p.CountContent()
		a.NodeCount += len(p.Nodes)
		a.ContentNodeCount += content
		a.Pages = append(a.Pages, PageStat{
			ID:           p.ID,
			Nodes:        len(p.Nodes),
			ContentNodes: content,
			Issues:       perPage[p.ID],
		})
	}
	return a
}

func layoutHash(pages []layout.Page) string {
	var buf bytes.Buffer
	if err := layout.EncodePages(&buf, pages); err != nil {
		return ""
	}
	return cache.Hash(buf.Bytes())
}
