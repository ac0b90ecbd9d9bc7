package content

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/reportflow/pkg/core/layout/text"
	"github.com/matzehuels/reportflow/pkg/errors"
)

// Section keys emitted by FromPayload, in report order.
const (
	KeyHero            = "hero"
	KeyCoreMetrics     = "core-metrics"
	KeyScoreTrend      = "score-trend"
	KeySurveySections  = "survey-sections"
	KeyHealthMetrics   = "health-metrics"
	KeyMedications     = "medications"
	KeyRecommendations = "recommendations"
	KeyAIEvaluation    = "ai-evaluation"
	KeyPharmacist      = "pharmacist-notes"
)

// TitlePrefix starts every report title.
const TitlePrefix = "Employee Health Report"

// FromPayload validates p and converts it into a report. Every section is
// always present, in a fixed order, even when the payload has no data for
// it. Missing or malformed required fields yield an INVALID_PAYLOAD error.
func FromPayload(p Payload) (Report, error) {
	if err := validateMeta(p.Meta); err != nil {
		return Report{}, err
	}
	for i, m := range p.Health.CoreMetrics {
		if strings.TrimSpace(m.Label) == "" {
			return Report{}, errors.Invalid(fmt.Sprintf("health.coreMetrics[%d].label", i), "health.coreMetrics[%d].label is required", i)
		}
	}
	for i, m := range p.Health.Metrics {
		if strings.TrimSpace(m.Metric) == "" {
			return Report{}, errors.Invalid(fmt.Sprintf("health.metrics[%d].metric", i), "health.metrics[%d].metric is required", i)
		}
	}
	for i, m := range p.Health.Medications {
		if strings.TrimSpace(m.MedicationName) == "" {
			return Report{}, errors.Invalid(fmt.Sprintf("health.medications[%d].medicationName", i), "health.medications[%d].medicationName is required", i)
		}
	}
	for i, s := range p.Survey.SectionScores {
		if s.SectionKey == "" && s.SectionTitle == "" {
			return Report{}, errors.Invalid(fmt.Sprintf("survey.sectionScores[%d]", i), "survey.sectionScores[%d] needs a sectionKey or sectionTitle", i)
		}
	}

	meta := Meta{
		EmployeeID:      strings.TrimSpace(p.Meta.EmployeeID),
		EmployeeName:    strings.TrimSpace(p.Meta.EmployeeName),
		BirthDateMasked: p.Meta.BirthDateMasked,
		PhoneMasked:     p.Meta.PhoneMasked,
		PeriodKey:       strings.TrimSpace(p.Meta.PeriodKey),
		ReportCycle:     p.Meta.ReportCycle,
	}
	return Report{
		Title: TitlePrefix + "_" + meta.EmployeeName,
		Meta:  meta,
		Sections: []Section{
			hero(meta, p),
			coreMetrics(p.Health),
			scoreTrend(p.Analysis.Trend),
			surveySections(p.Survey),
			healthMetrics(p.Health),
			medications(p.Health),
			recommendations(p.Analysis),
			aiEvaluation(p.Analysis),
			pharmacistNotes(p.Pharmacist),
		},
	}, nil
}

func validateMeta(m PayloadMeta) error {
	if err := errors.ValidateIdentifier("meta.employeeId", m.EmployeeID); err != nil {
		return err
	}
	if strings.TrimSpace(m.EmployeeName) == "" {
		return errors.Invalid("meta.employeeName", "meta.employeeName is required")
	}
	return errors.ValidateIdentifier("meta.periodKey", m.PeriodKey)
}

func hero(meta Meta, p Payload) Hero {
	parts := []string{meta.EmployeeName}
	for _, s := range []string{meta.BirthDateMasked, meta.PhoneMasked, meta.PeriodKey} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	h := Hero{
		SectionKey: KeyHero,
		Title:      "Employee Personal Health Report",
		Subtitle:   strings.Join(parts, " | "),
		Score:      p.Analysis.Summary.OverallScore,
		ScoreLabel: "Overall",
	}
	if h.Score == nil {
		h.Score = p.Survey.OverallScore
	}
	if lvl := p.Analysis.Summary.RiskLevel; lvl != "" {
		h.ScoreLabel = "Overall · " + lvl
	}
	return h
}

func coreMetrics(h PayloadHealth) KPIGrid {
	g := KPIGrid{SectionKey: KeyCoreMetrics, Title: "Key Indicators"}
	for _, m := range h.CoreMetrics {
		g.Items = append(g.Items, KPI{
			Label:  m.Label,
			Value:  formatValue(m.Value, m.Unit),
			Status: m.Status,
		})
	}
	return g
}

func scoreTrend(t AnalysisTrend) ScoreTrend {
	s := ScoreTrend{SectionKey: KeyScoreTrend, Title: "Score Trend", Max: 100}
	for _, m := range t.Months {
		s.Points = append(s.Points, TrendPoint{Label: m.PeriodKey, Value: m.OverallScore})
		if m.OverallScore > s.Max {
			s.Max = m.OverallScore
		}
	}
	return s
}

func surveySections(s PayloadSurvey) Table {
	t := Table{
		SectionKey: KeySurveySections,
		Title:      surveyTitle(s),
		Columns:    []Column{{Title: "Section", Weight: 3}, {Title: "Score", Weight: 1}, {Title: "Answered", Weight: 1}},
	}
	for _, sc := range s.SectionScores {
		title := sc.SectionTitle
		if title == "" {
			title = sc.SectionKey
		}
		t.Rows = append(t.Rows, []string{
			title,
			formatScore(sc.Score),
			fmt.Sprintf("%d/%d", sc.AnsweredCount, sc.QuestionCount),
		})
	}
	return t
}

func healthMetrics(h PayloadHealth) Table {
	t := Table{
		SectionKey: KeyHealthMetrics,
		Title:      "Health Checkup",
		Columns:    []Column{{Title: "Metric", Weight: 2}, {Title: "Value", Weight: 1}},
	}
	for _, m := range h.Metrics {
		t.Rows = append(t.Rows, []string{m.Metric, formatValue(m.Value, m.Unit)})
	}
	return t
}

func medications(h PayloadHealth) Table {
	t := Table{
		SectionKey: KeyMedications,
		Title:      "Recent Medications",
		Columns:    []Column{{Title: "Medication", Weight: 2}, {Title: "Hospital", Weight: 2}, {Title: "Date", Weight: 1}, {Title: "Days", Weight: 1}},
	}
	for _, m := range h.Medications {
		t.Rows = append(t.Rows, []string{m.MedicationName, deref(m.HospitalName), deref(m.Date), deref(m.DosageDay)})
	}
	return t
}

func recommendations(a PayloadAnalysis) BulletList {
	l := BulletList{SectionKey: KeyRecommendations, Title: "Recommendations"}
	seen := make(map[string]bool)
	add := func(items []string) {
		for _, it := range items {
			it = strings.TrimSpace(it)
			if it == "" || seen[it] {
				continue
			}
			seen[it] = true
			l.Items = append(l.Items, it)
		}
	}
	add(a.Recommendations)
	if a.AIEvaluation != nil {
		add(a.AIEvaluation.ActionItems)
	}
	return l
}

func aiEvaluation(a PayloadAnalysis) Paragraph {
	ai := a.AIEvaluation
	p := Paragraph{SectionKey: KeyAIEvaluation, Title: "Monthly Evaluation · " + analysisVersion(a.Version)}
	if ai == nil {
		return p
	}
	p.Body = joinNonEmpty("\n", ai.Summary, ai.MonthlyGuide, prefixed("Caution: ", ai.Caution))
	return p
}

// surveyTitle names the survey table, counting the sections the employee
// selected when the payload lists them.
func surveyTitle(s PayloadSurvey) string {
	if n := len(s.SelectedSections); n > 0 {
		return fmt.Sprintf("Survey Sections (%d selected)", n)
	}
	return "Survey Sections"
}

func analysisVersion(v *int) string {
	if v == nil {
		return "not uploaded"
	}
	return "v" + strconv.Itoa(*v)
}

func pharmacistNotes(ph PayloadPharmacist) Paragraph {
	return Paragraph{
		SectionKey: KeyPharmacist,
		Title:      "Pharmacist Notes",
		Body: joinNonEmpty("\n",
			deref(ph.Summary),
			deref(ph.Note),
			prefixed("Recommendations: ", deref(ph.Recommendations)),
			prefixed("Cautions: ", deref(ph.Cautions)),
			prefixed("Dosing: ", deref(ph.DosingGuide)),
		),
	}
}

func formatValue(value string, unit *string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return text.MaybeAppendUnit(value, deref(unit))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func prefixed(prefix, s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return prefix + s
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
