// Package export turns stored reports into downloadable files.
//
// Only reports whose last pipeline run was accepted can be exported. A
// report in any other state fails with LAYOUT_VALIDATION_FAILED before any
// rendering starts, so a rejected layout never produces bytes.
//
// [Exporter.Batch] exports many reports concurrently into one zip archive
// together with a batch-summary.json that lists the outcome per report.
package export

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/reportflow/pkg/errors"
	"github.com/matzehuels/reportflow/pkg/observability"
	"github.com/matzehuels/reportflow/pkg/pipeline"
	"github.com/matzehuels/reportflow/pkg/store"
)

// ContentTypes maps formats to MIME types.
var ContentTypes = map[string]string{
	pipeline.FormatPDF:  "application/pdf",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatJSON: "application/json",
}

// Artifact is one exported file.
type Artifact struct {
	ReportID    string
	Filename    string
	ContentType string
	Data        []byte
}

// Exporter renders stored reports.
type Exporter struct {
	Store  store.Store
	Runner *pipeline.Runner
	Logger *log.Logger

	// Now stamps filenames; nil omits the date.
	Now func() time.Time
}

// New creates an exporter. A nil runner renders uncached.
func New(s store.Store, runner *pipeline.Runner, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	return &Exporter{Store: s, Runner: runner, Logger: logger, Now: time.Now}
}

// CheckExportable fails fast unless rec holds an accepted layout.
func CheckExportable(rec *store.Record) error {
	if rec == nil {
		return errors.New(errors.ErrCodeReportNotFound, "no report to export")
	}
	if rec.Ready() {
		return nil
	}
	issues := len(rec.Issues)
	return errors.New(errors.ErrCodeLayoutValidationFailed,
		"report %s is not exportable (status %s, %d issues)", rec.ID, rec.Status, issues)
}

// Export renders rec in format.
func (e *Exporter) Export(ctx context.Context, rec *store.Record, format string) (Artifact, error) {
	a, err := e.export(ctx, rec, format)
	if rec != nil {
		observability.Export().OnExport(ctx, rec.ID, format, len(a.Data), err)
	}
	return a, err
}

func (e *Exporter) export(ctx context.Context, rec *store.Record, format string) (Artifact, error) {
	if err := CheckExportable(rec); err != nil {
		return Artifact{}, err
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return Artifact{}, err
	}

	artifacts, err := e.Runner.Render(ctx, rec.Layout, pipeline.RenderOptions{Formats: []string{format}})
	if err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeExportFailed, err, "render report %s as %s", rec.ID, format)
	}

	a := Artifact{
		ReportID:    rec.ID,
		Filename:    e.filename(rec, format),
		ContentType: ContentTypes[format],
		Data:        artifacts[format],
	}
	e.Logger.Debug("exported report", "report", rec.ID, "file", a.Filename, "bytes", len(a.Data))
	return a, nil
}

// ExportByID loads a report and renders it in format.
func (e *Exporter) ExportByID(ctx context.Context, id, format string) (Artifact, error) {
	rec, err := e.Store.Get(ctx, id)
	if err != nil {
		return Artifact{}, err
	}
	return e.Export(ctx, rec, format)
}

func (e *Exporter) filename(rec *store.Record, format string) string {
	var date time.Time
	if e.Now != nil {
		date = e.Now()
	}
	return Filename(FileParts{
		Title:        rec.Title,
		PageSize:     rec.PageSize,
		Date:         date,
		VariantIndex: rec.VariantIndex,
		Pages:        len(rec.Layout),
		Ext:          format,
	})
}
