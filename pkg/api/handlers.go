package api

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/reportflow/pkg/buildinfo"
	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
	"github.com/matzehuels/reportflow/pkg/errors"
	"github.com/matzehuels/reportflow/pkg/export"
	"github.com/matzehuels/reportflow/pkg/pipeline"
	"github.com/matzehuels/reportflow/pkg/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// runRequest is the body of the validate and create routes.
type runRequest struct {
	Payload      *content.Payload `json:"payload,omitempty"`
	Layout       []layout.Page    `json:"layout,omitempty"`
	PageSize     string           `json:"pageSize,omitempty"`
	Intent       string           `json:"intent,omitempty"`
	VariantIndex *int             `json:"variantIndex,omitempty"`
	StylePreset  string           `json:"stylePreset,omitempty"`
}

func (req runRequest) input() (pipeline.Input, error) {
	if req.Payload == nil {
		return pipeline.Input{}, errors.New(errors.ErrCodeInvalidPayload, "payload is required")
	}
	return pipeline.Input{
		Payload:      *req.Payload,
		PageSize:     req.PageSize,
		Intent:       req.Intent,
		VariantIndex: req.VariantIndex,
		StylePreset:  req.StylePreset,
	}, nil
}

// reportSummary is the list view of a record.
type reportSummary struct {
	ID           string          `json:"id"`
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName"`
	PeriodKey    string          `json:"periodKey"`
	Title        string          `json:"title"`
	Status       pipeline.Status `json:"status"`
	PageSize     string          `json:"pageSize"`
	VariantIndex int             `json:"variantIndex"`
	StylePreset  string          `json:"stylePreset,omitempty"`
	PageCount    int             `json:"pageCount"`
	IssueCount   int             `json:"issueCount"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func summarize(rec *store.Record) reportSummary {
	return reportSummary{
		ID:           rec.ID,
		EmployeeID:   rec.EmployeeID,
		EmployeeName: rec.EmployeeName,
		PeriodKey:    rec.PeriodKey,
		Title:        rec.Title,
		Status:       rec.Status,
		PageSize:     rec.PageSize,
		VariantIndex: rec.VariantIndex,
		StylePreset:  rec.StylePreset,
		PageCount:    len(rec.Layout),
		IssueCount:   len(rec.Issues),
		UpdatedAt:    rec.UpdatedAt,
	}
}

type reportBody struct {
	OK     bool          `json:"ok"`
	Report *store.Record `json:"report"`
	Tried  []string      `json:"tried,omitempty"`
}

// rejectedBody answers a create or regenerate whose layout failed
// validation. The report is stored regardless.
type rejectedBody struct {
	OK      bool             `json:"ok"`
	Code    string           `json:"code"`
	Reason  string           `json:"reason"`
	Error   string           `json:"error"`
	DebugID string           `json:"debugId"`
	Report  reportSummary    `json:"report"`
	Tried   []string         `json:"tried,omitempty"`
	Audit   pipeline.Audit   `json:"audit"`
	Issues  []validate.Issue `json:"issues"`
}

func (s *Server) writeRun(w http.ResponseWriter, okStatus int, rec *store.Record, res pipeline.Result, tried []string) {
	if res.OK {
		writeJSON(w, okStatus, reportBody{OK: true, Report: rec, Tried: tried})
		return
	}
	writeJSON(w, http.StatusUnprocessableEntity, rejectedBody{
		Code:    string(errors.ErrCodeLayoutValidationFailed),
		Reason:  export.ReasonValidationFailed,
		Error:   fmt.Sprintf("layout validation failed with %d issue(s)", len(res.Issues)),
		DebugID: rec.DebugID,
		Report:  summarize(rec),
		Tried:   tried,
		Audit:   res.Audit,
		Issues:  res.Issues,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"ok":     true,
		"build":  buildinfo.Get(),
		"engine": pipeline.EngineVersion,
	}
	if s.opts.Stats != nil {
		body["stats"] = s.opts.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleValidate runs the pipeline on a payload, or the validator alone on
// a layout, without storing anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.Payload == nil && req.Layout != nil {
		layout.MigrateRoles(req.Layout)
		writeJSON(w, http.StatusOK, pipeline.ValidateLayout(req.Layout))
		return
	}

	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.service.Runner.Run(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, res, err := s.service.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/reports/"+rec.ID)
	s.writeRun(w, http.StatusCreated, rec, res, nil)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
		Limit:      defaultListLimit,
	}

	if v := q.Get("status"); v != "" {
		st := pipeline.Status(strings.ToLower(v))
		switch st {
		case pipeline.StatusDraft, pipeline.StatusReady, pipeline.StatusValidationFailed:
			opts.Status = st
		default:
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput,
				"invalid status: %q (must be one of: draft, ready, validation_failed)", v))
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be between 1 and %d", maxListLimit))
			return
		}
		opts.Limit = n
	}

	recs, err := s.service.Store.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]reportSummary, len(recs))
	for i, rec := range recs {
		out[i] = summarize(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(out), "reports": out})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Store.Get(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportBody{OK: true, Report: rec})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var opts store.RegenerateOptions
	if err := s.decodeJSON(w, r, &opts, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, res, tried, err := s.service.Regenerate(r.Context(), chi.URLParam(r, "reportID"), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRun(w, http.StatusOK, rec, res, tried)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = s.opts.ExportFormat
	}

	a, err := s.exporter.ExportByID(r.Context(), chi.URLParam(r, "reportID"), format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeFile(w, a.ContentType, a.Filename, a.Data)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req export.BatchRequest
	if err := s.decodeJSON(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Formats) == 0 {
		req.Formats = s.opts.BatchFormats
	}
	req.Concurrency = s.opts.BatchConcurrency

	// The archive is buffered so that a failure can still be reported with
	// a proper status.
	var buf bytes.Buffer
	summary, err := s.exporter.Batch(r.Context(), req, &buf)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("X-Batch-Total", strconv.Itoa(summary.TotalReports))
	w.Header().Set("X-Batch-Exported", strconv.Itoa(summary.Exported))
	w.Header().Set("X-Batch-Failed", strconv.Itoa(summary.Failed))
	writeFile(w, "application/zip", export.ZipFilename(summary.GeneratedAt), buf.Bytes())
}

func writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
