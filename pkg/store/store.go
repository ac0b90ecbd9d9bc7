// Package store persists generated reports.
//
// A [Record] holds a report payload together with the outcome of its last
// pipeline run. [Apply] is the only way a pipeline result reaches a record
// and enforces the status contract:
//
//   - an accepted layout sets status "ready", stores the layout and the
//     audit and clears any previous issues
//   - a rejected layout sets status "validation_failed", stores the audit
//     and the issues and clears any previous layout
//
// Three backends implement [Store]: [SQLiteStore] for the CLI and single-node
// servers, [MongoStore] for shared deployments and [MemoryStore] for tests.
package store

import (
	"context"
	"time"

	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
	"github.com/matzehuels/reportflow/pkg/errors"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// Record is one persisted report.
type Record struct {
	ID           string          `json:"id" bson:"_id"`
	EmployeeID   string          `json:"employeeId" bson:"employeeId"`
	EmployeeName string          `json:"employeeName" bson:"employeeName"`
	PeriodKey    string          `json:"periodKey" bson:"periodKey"`
	Title        string          `json:"title" bson:"title"`
	Status       pipeline.Status `json:"status" bson:"status"`

	// Run options the layout was generated with.
	PageSize     string `json:"pageSize" bson:"pageSize"`
	Intent       string `json:"intent" bson:"intent"`
	VariantIndex int    `json:"variantIndex" bson:"variantIndex"`
	StylePreset  string `json:"stylePreset,omitempty" bson:"stylePreset,omitempty"`

	Payload content.Payload  `json:"payload" bson:"payload"`
	Layout  []layout.Page    `json:"layoutDsl,omitempty" bson:"layoutDsl,omitempty"`
	Audit   *pipeline.Audit  `json:"exportAudit,omitempty" bson:"exportAudit,omitempty"`
	Issues  []validate.Issue `json:"issues" bson:"issues"`

	// DebugID identifies the pipeline run that produced the current state.
	DebugID string `json:"debugId,omitempty" bson:"debugId,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Ready reports whether the record holds an accepted layout.
func (r *Record) Ready() bool {
	return r.Status == pipeline.StatusReady && len(r.Layout) > 0
}

// Input returns the pipeline input that regenerates the record as stored.
func (r *Record) Input() pipeline.Input {
	variant := r.VariantIndex
	return pipeline.Input{
		Payload:      r.Payload,
		Intent:       r.Intent,
		PageSize:     r.PageSize,
		VariantIndex: &variant,
		StylePreset:  r.StylePreset,
	}
}

// Apply records a pipeline result on rec.
func Apply(rec *Record, res pipeline.Result) {
	rec.Status = pipeline.StatusFor(res)
	audit := res.Audit
	rec.Audit = &audit
	if res.OK {
		rec.Layout = res.Layout
		rec.Issues = []validate.Issue{}
	} else {
		rec.Layout = nil
		rec.Issues = res.Issues
	}
	if audit.Title != "" {
		rec.Title = audit.Title
	}
}

// ListOptions filters and bounds a listing. Records are returned newest
// first by UpdatedAt.
type ListOptions struct {
	Status     pipeline.Status
	EmployeeID string
	// Limit caps the number of records; zero means no limit.
	Limit int
}

// Store persists report records. Implementations are safe for concurrent
// use and return copies, so callers may modify what they get.
type Store interface {
	// Create inserts rec. An empty ID is replaced by a new UUID; zero
	// timestamps are set to now.
	Create(ctx context.Context, rec *Record) error

	// Get returns the record with the given id or a REPORT_NOT_FOUND error.
	Get(ctx context.Context, id string) (*Record, error)

	// Update replaces an existing record and bumps UpdatedAt.
	Update(ctx context.Context, rec *Record) error

	// List returns records matching opts.
	List(ctx context.Context, opts ListOptions) ([]*Record, error)

	// Close releases backend resources.
	Close() error
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeReportNotFound, "report %q not found", id)
}

// now is the clock used for record timestamps.
var now = func() time.Time { return time.Now().UTC() }

// stamp fills the id and timestamps of a new record.
func stamp(rec *Record, newID func() string) {
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.Status == "" {
		rec.Status = pipeline.StatusDraft
	}
	if rec.Issues == nil {
		rec.Issues = []validate.Issue{}
	}
}
