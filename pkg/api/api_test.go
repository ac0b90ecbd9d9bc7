package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
	"github.com/matzehuels/reportflow/pkg/errors"
	"github.com/matzehuels/reportflow/pkg/export"
	"github.com/matzehuels/reportflow/pkg/observability"
	"github.com/matzehuels/reportflow/pkg/pipeline"
	"github.com/matzehuels/reportflow/pkg/store"
)

type testServer struct {
	*Server
	store store.Store
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	s := store.NewMemoryStore()
	svc := store.NewService(s, nil, nil)
	exp := export.New(s, svc.Runner, nil)
	exp.Now = func() time.Time { return time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC) }
	return testServer{
		Server: New(svc, exp, nil, Options{ExportFormat: pipeline.FormatSVG}),
		store:  s,
	}
}

func testPayload() content.Payload {
	return content.Payload{
		Meta: content.PayloadMeta{EmployeeID: "emp-42", EmployeeName: "Robin Hale", PeriodKey: "2025-06"},
		Health: content.PayloadHealth{
			CoreMetrics: []content.CoreMetric{{Key: "bmi", Label: "BMI", Value: "23.1"}},
		},
		Analysis: content.PayloadAnalysis{Recommendations: []string{"Take the stairs"}},
	}
}

func (ts testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return m
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, code errors.Code) {
	t.Helper()
	if rec.Code != status {
		t.Errorf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
	m := decode(t, rec)
	if m["ok"] != false || m["code"] != string(code) {
		t.Errorf("body = %v, want ok=false code=%s", m, code)
	}
}

func (ts testServer) create(t *testing.T) map[string]any {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/reports", map[string]any{"payload": testPayload()})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /reports = %d: %s", rec.Code, rec.Body.String())
	}
	return decode(t, rec)["report"].(map[string]any)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	m := decode(t, rec)
	if m["engine"] != pipeline.EngineVersion {
		t.Errorf("engine = %v", m["engine"])
	}
	if build, ok := m["build"].(map[string]any); !ok || build["version"] == "" {
		t.Errorf("build = %v, want version info", m["build"])
	}
}

func TestHealthStats(t *testing.T) {
	observability.Reset()
	t.Cleanup(observability.Reset)
	counters := observability.NewCounters()
	observability.Set(counters.Hooks())

	s := store.NewMemoryStore()
	svc := store.NewService(s, nil, nil)
	srv := New(svc, export.New(s, svc.Runner, nil), nil, Options{Stats: counters.Snapshot})
	ts := testServer{Server: srv, store: s}

	ts.do(t, http.MethodPost, "/api/v1/reports", map[string]any{"payload": testPayload()})
	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	stats, ok := decode(t, rec)["stats"].(map[string]any)
	if !ok {
		t.Fatalf("healthz stats missing: %s", rec.Body.String())
	}
	if stats["layouts"] != float64(1) {
		t.Errorf("stats.layouts = %v, want 1", stats["layouts"])
	}
	// The healthz request itself is counted after its body is written.
	if stats["requests"] != float64(1) {
		t.Errorf("stats.requests = %v, want 1", stats["requests"])
	}
}

func TestValidatePayload(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/v1/layout/validate", map[string]any{
		"payload":  testPayload(),
		"pageSize": "letter",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /layout/validate = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}

	var res pipeline.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.OK || len(res.Layout) == 0 || len(res.Issues) != 0 {
		t.Errorf("result ok = %v pages = %d issues = %d", res.OK, len(res.Layout), len(res.Issues))
	}
	if res.Audit.PageSize != "LETTER" {
		t.Errorf("audit page size = %q, want LETTER", res.Audit.PageSize)
	}

	if recs, _ := ts.store.List(context.Background(), store.ListOptions{}); len(recs) != 0 {
		t.Errorf("validate stored %d records", len(recs))
	}
}

func TestValidateLayout(t *testing.T) {
	ts := newTestServer(t)
	pages := []layout.Page{{
		ID: "page-1", WidthMm: 210, HeightMm: 297, MarginMm: 12,
		Nodes: []layout.Node{
			layout.NewNode("a", layout.Bounds{X: 20, Y: 20, W: 20, H: 10}, "", layout.Content{Kind: layout.KindText, Text: "a"}),
			layout.NewNode("b", layout.Bounds{X: 38, Y: 28, W: 20, H: 10}, "", layout.Content{Kind: layout.KindText, Text: "b"}),
		},
	}}
	rec := ts.do(t, http.MethodPost, "/api/v1/layout/validate", map[string]any{"layout": pages})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /layout/validate = %d: %s", rec.Code, rec.Body.String())
	}
	m := decode(t, rec)
	if m["ok"] != false {
		t.Errorf("ok = %v, want false", m["ok"])
	}
	if _, has := m["layout"]; has {
		t.Error("rejected result carries a layout")
	}
	if issues := m["issues"].([]any); len(issues) != 1 {
		t.Errorf("issues = %v, want 1", issues)
	}
}

func TestValidateBadRequests(t *testing.T) {
	ts := newTestServer(t)

	wantError(t, ts.do(t, http.MethodPost, "/api/v1/layout/validate", "{not json"), http.StatusBadRequest, errors.ErrCodeInvalidInput)
	wantError(t, ts.do(t, http.MethodPost, "/api/v1/layout/validate", map[string]any{}), http.StatusBadRequest, errors.ErrCodeInvalidPayload)
	wantError(t, ts.do(t, http.MethodPost, "/api/v1/layout/validate", map[string]any{
		"payload":  testPayload(),
		"pageSize": "A5",
	}), http.StatusBadRequest, errors.ErrCodeInvalidPageSize)

	p := testPayload()
	p.Meta.EmployeeName = ""
	rec := ts.do(t, http.MethodPost, "/api/v1/layout/validate", map[string]any{"payload": p})
	wantError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidPayload)
	if m := decode(t, rec); m["field"] != "meta.employeeName" {
		t.Errorf("field = %v, want meta.employeeName", m["field"])
	}
}

func TestReportLifecycle(t *testing.T) {
	ts := newTestServer(t)
	report := ts.create(t)
	id := report["id"].(string)
	if report["status"] != string(pipeline.StatusReady) {
		t.Errorf("created status = %v", report["status"])
	}
	if _, has := report["layoutDsl"]; !has {
		t.Error("created report has no layoutDsl")
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/reports/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /reports/{id} = %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/reports?status=ready&employeeId=emp-42", nil)
	if m := decode(t, rec); rec.Code != http.StatusOK || m["count"] != float64(1) {
		t.Errorf("GET /reports = %d %v", rec.Code, m)
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/reports?status=validation_failed", nil)
	if m := decode(t, rec); m["count"] != float64(0) {
		t.Errorf("GET /reports?status=validation_failed count = %v", m["count"])
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/reports/"+id+"/regenerate", map[string]any{"pageSize": "LETTER"})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST regenerate = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["report"].(map[string]any)["pageSize"]; got != "LETTER" {
		t.Errorf("regenerated pageSize = %v", got)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/reports/"+id+"/regenerate", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("POST regenerate with empty body = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/reports/"+id+"/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET export = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("export Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "_LETTER_20250603_v0_") {
		t.Errorf("export Content-Disposition = %q", cd)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/reports/"+id+"/export?format=json", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("GET export?format=json = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestReportErrors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	wantError(t, ts.do(t, http.MethodGet, "/api/v1/reports/missing", nil), http.StatusNotFound, errors.ErrCodeReportNotFound)
	wantError(t, ts.do(t, http.MethodPost, "/api/v1/reports/missing/regenerate", nil), http.StatusNotFound, errors.ErrCodeReportNotFound)
	wantError(t, ts.do(t, http.MethodGet, "/api/v1/reports?status=archived", nil), http.StatusBadRequest, errors.ErrCodeInvalidInput)
	wantError(t, ts.do(t, http.MethodGet, "/api/v1/reports?limit=0", nil), http.StatusBadRequest, errors.ErrCodeInvalidInput)

	failed := &store.Record{
		EmployeeID: "emp-x",
		Status:     pipeline.StatusValidationFailed,
		Issues:     []validate.Issue{{Code: validate.CodeBounds, PageID: "page-1", NodeID: "kpi-0"}},
	}
	if err := ts.store.Create(ctx, failed); err != nil {
		t.Fatal(err)
	}
	wantError(t, ts.do(t, http.MethodGet, "/api/v1/reports/"+failed.ID+"/export?format=pdf", nil), http.StatusConflict, errors.ErrCodeLayoutValidationFailed)

	id := ts.create(t)["id"].(string)
	wantError(t, ts.do(t, http.MethodGet, "/api/v1/reports/"+id+"/export?format=docx", nil), http.StatusBadRequest, errors.ErrCodeInvalidFormat)
	wantError(t, ts.do(t, http.MethodPost, "/api/v1/reports/"+id+"/regenerate", map[string]any{"stylePreset": "loud"}), http.StatusBadRequest, errors.ErrCodeInvalidStyle)

	rec := ts.do(t, http.MethodGet, "/api/v2/nothing", nil)
	if rec.Code != http.StatusNotFound || decode(t, rec)["code"] != "NOT_FOUND" {
		t.Errorf("unknown route = %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodDelete, "/api/v1/reports/"+id, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE report = %d, want 405", rec.Code)
	}
}

func TestWriteRunRejected(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	r := &store.Record{ID: "r1", Status: pipeline.StatusValidationFailed, DebugID: "dbg-1"}
	res := pipeline.Result{
		OK:     false,
		Issues: []validate.Issue{{Code: validate.CodeOverlap, PageID: "page-1", NodeID: "a|b"}},
		Audit:  pipeline.Audit{PageCount: 1},
	}
	ts.writeRun(rec, http.StatusCreated, r, res, []string{"calm", "focus", "fresh"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	m := decode(t, rec)
	if m["code"] != string(errors.ErrCodeLayoutValidationFailed) || m["reason"] != export.ReasonValidationFailed || m["debugId"] != "dbg-1" {
		t.Errorf("body = %v", m)
	}
	if tried := m["tried"].([]any); len(tried) != 3 {
		t.Errorf("tried = %v", tried)
	}
}

func TestBatch(t *testing.T) {
	ts := newTestServer(t)
	id := ts.create(t)["id"].(string)

	rec := ts.do(t, http.MethodPost, "/api/v1/export/batch", map[string]any{
		"reportIds": []string{id, "missing"},
		"formats":   []string{"json"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /export/batch = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Batch-Exported") != "1" || rec.Header().Get("X-Batch-Failed") != "1" {
		t.Errorf("batch headers = %v", rec.Header())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip archive")
	}

	wantError(t, ts.do(t, http.MethodPost, "/api/v1/export/batch", map[string]any{"formats": []string{"gif"}}), http.StatusBadRequest, errors.ErrCodeInvalidFormat)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidPayload, http.StatusBadRequest},
		{errors.ErrCodeInvalidFormat, http.StatusBadRequest},
		{errors.ErrCodeReportNotFound, http.StatusNotFound},
		{errors.ErrCodeLayoutValidationFailed, http.StatusConflict},
		{errors.ErrCodeExportFailed, http.StatusInternalServerError},
		{errors.ErrCodeUnsupported, http.StatusNotImplemented},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	ts.writeError(rec, req, errors.New(errors.ErrCodeExportFailed, "rsvg-convert: exit status 1"))

	m := decode(t, rec)
	if rec.Code != http.StatusInternalServerError || m["error"] != "internal error" || m["debugId"] == nil {
		t.Errorf("writeError() = %d %v", rec.Code, m)
	}
}
