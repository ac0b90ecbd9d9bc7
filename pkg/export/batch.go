package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/reportflow/pkg/errors"
	"github.com/matzehuels/reportflow/pkg/observability"
	"github.com/matzehuels/reportflow/pkg/pipeline"
	"github.com/matzehuels/reportflow/pkg/store"
)

// Batch limits.
const (
	MaxBatchReports     = 100
	DefaultBatchReports = 20
	DefaultConcurrency  = 4
)

// SummaryFilename is the name of the summary entry inside a batch archive.
const SummaryFilename = "batch-summary.json"

// Failure reasons recorded in a batch summary.
const (
	ReasonNotFound         = "not_found"
	ReasonValidationFailed = "layout_validation_failed"
	ReasonRenderFailed     = "render_failed"
)

// BatchRequest selects the reports of a batch. ReportIDs take precedence
// over EmployeeIDs; with neither, the most recently updated reports are
// exported.
type BatchRequest struct {
	ReportIDs   []string `json:"reportIds,omitempty"`
	EmployeeIDs []string `json:"employeeIds,omitempty"`
	Formats     []string `json:"formats,omitempty"`
	Concurrency int      `json:"-"`

	// Progress, when set, is called after each report with the number of
	// reports finished so far. Calls may come from several goroutines.
	Progress func(done, total int) `json:"-"`
}

// BatchItem is the outcome for one report.
type BatchItem struct {
	ReportID   string   `json:"reportId"`
	EmployeeID string   `json:"employeeId,omitempty"`
	OK         bool     `json:"ok"`
	Reason     string   `json:"reason,omitempty"`
	Files      []string `json:"files"`
}

// BatchSummary is written to the archive as batch-summary.json.
type BatchSummary struct {
	GeneratedAt  time.Time   `json:"generatedAt"`
	TotalReports int         `json:"totalReports"`
	Exported     int         `json:"exported"`
	Failed       int         `json:"failed"`
	Summary      []BatchItem `json:"summary"`
}

type batchEntry struct {
	item  BatchItem
	files []Artifact
}

// Batch exports the selected reports into a zip archive written to w.
// Failures of individual reports are recorded in the summary and do not
// abort the batch; an error is returned only for invalid requests, store
// failures, cancellation or write errors.
func (e *Exporter) Batch(ctx context.Context, req BatchRequest, w io.Writer) (BatchSummary, error) {
	start := time.Now()
	formats := req.Formats
	if len(formats) == 0 {
		formats = []string{pipeline.FormatPDF}
	}
	if err := pipeline.ValidateFormats(formats); err != nil {
		return BatchSummary{}, err
	}

	targets, err := e.resolveTargets(ctx, req)
	if err != nil {
		return BatchSummary{}, err
	}

	limit := req.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	entries := make([]batchEntry, len(targets))
	var finished atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries[i] = e.exportEntry(ctx, t, formats)
			if req.Progress != nil {
				req.Progress(int(finished.Add(1)), len(targets))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchSummary{}, err
	}

	summary := BatchSummary{
		GeneratedAt:  e.now(),
		TotalReports: len(targets),
		Summary:      make([]BatchItem, 0, len(entries)),
	}

	zw := zip.NewWriter(w)
	names := map[string]bool{SummaryFilename: true}
	for _, entry := range entries {
		for i, a := range entry.files {
			name := uniqueName(names, a.Filename, a.ReportID)
			entry.item.Files[i] = name
			if err := writeZipEntry(zw, name, a.Data); err != nil {
				return BatchSummary{}, err
			}
		}
		if entry.item.OK {
			summary.Exported++
		} else {
			summary.Failed++
		}
		summary.Summary = append(summary.Summary, entry.item)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return BatchSummary{}, err
	}
	if err := writeZipEntry(zw, SummaryFilename, append(data, '\n')); err != nil {
		return BatchSummary{}, err
	}
	if err := zw.Close(); err != nil {
		return BatchSummary{}, errors.Wrap(errors.ErrCodeExportFailed, err, "finish archive")
	}

	observability.Export().OnBatch(ctx, summary.Exported, summary.Failed, time.Since(start))
	e.Logger.Info("batch export finished",
		"reports", summary.TotalReports,
		"exported", summary.Exported,
		"failed", summary.Failed)
	return summary, nil
}

// target is a resolved batch member. rec is nil when the id is unknown.
type target struct {
	id  string
	rec *store.Record
}

func (e *Exporter) resolveTargets(ctx context.Context, req BatchRequest) ([]target, error) {
	if ids := uniqueTrimmed(req.ReportIDs); len(ids) > 0 {
		out := make([]target, 0, len(ids))
		for _, id := range ids {
			rec, err := e.Store.Get(ctx, id)
			if errors.Is(err, errors.ErrCodeReportNotFound) {
				out = append(out, target{id: id})
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, target{id: id, rec: rec})
		}
		return out, nil
	}

	if employees := uniqueTrimmed(req.EmployeeIDs); len(employees) > 0 {
		out := make([]target, 0, len(employees))
		for _, emp := range employees {
			recs, err := e.Store.List(ctx, store.ListOptions{EmployeeID: emp, Limit: 1})
			if err != nil {
				return nil, err
			}
			if len(recs) > 0 {
				out = append(out, target{id: recs[0].ID, rec: recs[0]})
			}
		}
		return out, nil
	}

	recs, err := e.Store.List(ctx, store.ListOptions{Limit: DefaultBatchReports})
	if err != nil {
		return nil, err
	}
	out := make([]target, len(recs))
	for i, rec := range recs {
		out[i] = target{id: rec.ID, rec: rec}
	}
	return out, nil
}

func (e *Exporter) exportEntry(ctx context.Context, t target, formats []string) batchEntry {
	entry := batchEntry{item: BatchItem{ReportID: t.id, Files: []string{}}}
	if t.rec == nil {
		entry.item.Reason = ReasonNotFound
		return entry
	}
	entry.item.EmployeeID = t.rec.EmployeeID

	if err := CheckExportable(t.rec); err != nil {
		entry.item.Reason = ReasonValidationFailed
		return entry
	}

	for _, f := range formats {
		a, err := e.Export(ctx, t.rec, f)
		if err != nil {
			e.Logger.Warn("batch export failed", "report", t.id, "format", f, "err", err)
			entry.item.Reason = ReasonRenderFailed
			entry.files = append(entry.files, errorFile(t.rec, f, err))
			entry.item.Files = append(entry.item.Files, entry.files[len(entry.files)-1].Filename)
			return entry
		}
		entry.files = append(entry.files, a)
		entry.item.Files = append(entry.item.Files, a.Filename)
	}
	entry.item.OK = true
	return entry
}

// errorFile is placed in the archive in place of an artifact that failed.
func errorFile(rec *store.Record, format string, err error) Artifact {
	name := SafeTitle(rec.Title) + "_" + rec.ID + "_" + format + "_error.txt"
	body := "export failed for report " + rec.ID + "\nformat: " + format + "\nreason: " + errors.UserMessage(err) + "\n"
	return Artifact{ReportID: rec.ID, Filename: name, ContentType: "text/plain", Data: []byte(body)}
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, err, "add %s to archive", name)
	}
	if _, err := f.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, err, "write %s", name)
	}
	return nil
}

// uniqueName disambiguates archive entries of reports that share a title
// by inserting the report id before the extension.
func uniqueName(seen map[string]bool, name, reportID string) string {
	if !seen[name] {
		seen[name] = true
		return name
	}
	ext := path.Ext(name)
	name = strings.TrimSuffix(name, ext) + "_" + reportID + ext
	seen[name] = true
	return name
}

// uniqueTrimmed trims and de-duplicates values in order and caps the result
// at MaxBatchReports.
func uniqueTrimmed(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) >= MaxBatchReports {
			break
		}
	}
	return out
}

func (e *Exporter) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}
