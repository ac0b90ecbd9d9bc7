package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/validate"
	"github.com/matzehuels/reportflow/pkg/errors"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

func newSQLite(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "reports.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMemory(t *testing.T) Store {
	t.Helper()
	return NewMemoryStore()
}

var backends = []struct {
	name string
	open func(t *testing.T) Store
}{
	{"memory", newMemory},
	{"sqlite", newSQLite},
}

func TestStoreCRUD(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			rec := &Record{EmployeeID: "emp-1", EmployeeName: "Jordan", PeriodKey: "2025-06"}
			if err := s.Create(ctx, rec); err != nil {
				t.Fatalf("Create() error: %v", err)
			}
			if rec.ID == "" || errors.ValidateReportID(rec.ID) != nil {
				t.Errorf("Create() id = %q, want a UUID", rec.ID)
			}
			if rec.Status != pipeline.StatusDraft {
				t.Errorf("Create() status = %q, want draft", rec.Status)
			}

			got, err := s.Get(ctx, rec.ID)
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got.EmployeeName != "Jordan" || got.Issues == nil {
				t.Errorf("Get() = %+v", got)
			}

			got.Status = pipeline.StatusReady
			got.Layout = []layout.Page{{ID: "page-1", WidthMm: 210, HeightMm: 297, MarginMm: 12}}
			if err := s.Update(ctx, got); err != nil {
				t.Fatalf("Update() error: %v", err)
			}
			again, _ := s.Get(ctx, rec.ID)
			if !again.Ready() {
				t.Errorf("Get() after update status = %q, layout = %d pages", again.Status, len(again.Layout))
			}

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, errors.ErrCodeReportNotFound) {
				t.Errorf("Get(missing) error = %v, want REPORT_NOT_FOUND", err)
			}
			if err := s.Update(ctx, &Record{ID: "missing"}); !errors.Is(err, errors.ErrCodeReportNotFound) {
				t.Errorf("Update(missing) error = %v, want REPORT_NOT_FOUND", err)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
			for i, st := range []pipeline.Status{pipeline.StatusReady, pipeline.StatusValidationFailed, pipeline.StatusReady} {
				rec := &Record{
					ID:         []string{"a", "b", "c"}[i],
					EmployeeID: "emp",
					Status:     st,
					CreatedAt:  base.Add(time.Duration(i) * time.Hour),
				}
				if err := s.Create(ctx, rec); err != nil {
					t.Fatal(err)
				}
			}

			all, err := s.List(ctx, ListOptions{})
			if err != nil {
				t.Fatal(err)
			}
			if ids := recordIDs(all); ids != "c,b,a" {
				t.Errorf("List() = %s, want c,b,a", ids)
			}

			ready, _ := s.List(ctx, ListOptions{Status: pipeline.StatusReady})
			if ids := recordIDs(ready); ids != "c,a" {
				t.Errorf("List(ready) = %s, want c,a", ids)
			}

			limited, _ := s.List(ctx, ListOptions{Limit: 1})
			if ids := recordIDs(limited); ids != "c" {
				t.Errorf("List(limit 1) = %s, want c", ids)
			}

			none, _ := s.List(ctx, ListOptions{EmployeeID: "other"})
			if none == nil || len(none) != 0 {
				t.Errorf("List(other) = %v, want empty", none)
			}
		})
	}
}

func recordIDs(recs []*Record) string {
	s := ""
	for i, r := range recs {
		if i > 0 {
			s += ","
		}
		s += r.ID
	}
	return s
}

func TestApply(t *testing.T) {
	page := layout.Page{ID: "page-1"}
	issue := validate.Issue{Code: validate.CodeOverlap, PageID: "page-1", NodeID: "a|b"}

	rec := &Record{Issues: []validate.Issue{issue}}
	Apply(rec, pipeline.Result{OK: true, Layout: []layout.Page{page}, Issues: []validate.Issue{}, Audit: pipeline.Audit{Title: "T", PageCount: 1}})
	if rec.Status != pipeline.StatusReady || len(rec.Layout) != 1 || len(rec.Issues) != 0 || rec.Audit == nil {
		t.Errorf("Apply(ok) = %+v", rec)
	}
	if rec.Title != "T" {
		t.Errorf("Apply(ok) title = %q", rec.Title)
	}

	Apply(rec, pipeline.Result{OK: false, Issues: []validate.Issue{issue}, Audit: pipeline.Audit{PageCount: 2}})
	if rec.Status != pipeline.StatusValidationFailed || rec.Layout != nil || len(rec.Issues) != 1 {
		t.Errorf("Apply(failed) = %+v", rec)
	}
	if rec.Audit.PageCount != 2 {
		t.Errorf("Apply(failed) audit not replaced")
	}
	if rec.Ready() {
		t.Error("Ready() = true for a failed record")
	}
}

func testPayload() content.Payload {
	return content.Payload{
		Meta: content.PayloadMeta{EmployeeID: "emp-7", EmployeeName: "Sam Park", PeriodKey: "2025-06", VariantIndex: 2},
		Health: content.PayloadHealth{
			CoreMetrics: []content.CoreMetric{{Key: "bmi", Label: "BMI", Value: "22.0"}},
		},
		Analysis: content.PayloadAnalysis{Recommendations: []string{"Walk daily"}},
	}
}

func TestServiceCreateAndRegenerate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newSQLite(t), nil, nil)

	rec, res, err := svc.Create(ctx, pipeline.Input{Payload: testPayload()})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !res.OK || !rec.Ready() {
		t.Fatalf("Create() ok = %v status = %q issues = %+v", res.OK, rec.Status, res.Issues)
	}
	if rec.VariantIndex != 2 || rec.PageSize != "A4" || rec.Intent != "export" {
		t.Errorf("Create() stored options = %d/%s/%s", rec.VariantIndex, rec.PageSize, rec.Intent)
	}
	if rec.Title != "Employee Health Report_Sam Park" {
		t.Errorf("Create() title = %q", rec.Title)
	}
	firstDebug := rec.DebugID

	updated, res, tried, err := svc.Regenerate(ctx, rec.ID, RegenerateOptions{PageSize: "LETTER", WalkStyles: true})
	if err != nil {
		t.Fatalf("Regenerate() error: %v", err)
	}
	if !res.OK || updated.PageSize != "LETTER" {
		t.Errorf("Regenerate() ok = %v page size = %s", res.OK, updated.PageSize)
	}
	if len(tried) != 1 || tried[0] != "focus" {
		t.Errorf("Regenerate() tried = %v, want [focus]", tried)
	}
	if updated.DebugID == firstDebug {
		t.Error("Regenerate() kept the previous debug id")
	}

	stored, err := svc.Store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.PageSize != "LETTER" || stored.Audit == nil || stored.Audit.PageSize != "LETTER" {
		t.Errorf("stored record not updated: %+v", stored.Audit)
	}
}

func TestServiceRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	svc := NewService(s, nil, nil)

	p := testPayload()
	p.Meta.EmployeeID = ""
	if _, _, err := svc.Create(ctx, pipeline.Input{Payload: p}); !errors.Is(err, errors.ErrCodeInvalidPayload) {
		t.Errorf("Create() error = %v, want INVALID_PAYLOAD", err)
	}
	if recs, _ := s.List(ctx, ListOptions{}); len(recs) != 0 {
		t.Errorf("invalid payload was stored: %d records", len(recs))
	}

	if _, _, _, err := svc.Regenerate(ctx, "nope", RegenerateOptions{}); !errors.Is(err, errors.ErrCodeReportNotFound) {
		t.Errorf("Regenerate(nope) error = %v, want REPORT_NOT_FOUND", err)
	}

	rec, _, err := svc.Create(ctx, pipeline.Input{Payload: testPayload()})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := svc.Regenerate(ctx, rec.ID, RegenerateOptions{PageSize: "A5"}); !errors.Is(err, errors.ErrCodeInvalidPageSize) {
		t.Errorf("Regenerate(A5) error = %v, want INVALID_PAGE_SIZE", err)
	}
}
