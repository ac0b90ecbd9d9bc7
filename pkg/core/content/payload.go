package content

import (
	"bytes"
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/reportflow/pkg/errors"
)

// Payload is the raw report payload as produced by the scoring engine. Only
// the fields the layout uses are modelled; unknown fields are ignored.
type Payload struct {
	Meta       PayloadMeta       `json:"meta" yaml:"meta"`
	Health     PayloadHealth     `json:"health" yaml:"health"`
	Survey     PayloadSurvey     `json:"survey" yaml:"survey"`
	Analysis   PayloadAnalysis   `json:"analysis" yaml:"analysis"`
	Pharmacist PayloadPharmacist `json:"pharmacist" yaml:"pharmacist"`
}

type PayloadMeta struct {
	EmployeeID      string `json:"employeeId" yaml:"employeeId"`
	EmployeeName    string `json:"employeeName" yaml:"employeeName"`
	BirthDateMasked string `json:"birthDateMasked" yaml:"birthDateMasked"`
	PhoneMasked     string `json:"phoneMasked" yaml:"phoneMasked"`
	PeriodKey       string `json:"periodKey" yaml:"periodKey"`
	ReportCycle     *int   `json:"reportCycle" yaml:"reportCycle"`
	VariantIndex    int    `json:"variantIndex" yaml:"variantIndex"`
	StylePreset     string `json:"stylePreset" yaml:"stylePreset"`
}

type PayloadHealth struct {
	Metrics     []HealthMetric `json:"metrics" yaml:"metrics"`
	CoreMetrics []CoreMetric   `json:"coreMetrics" yaml:"coreMetrics"`
	Medications []Medication   `json:"medications" yaml:"medications"`
}

type HealthMetric struct {
	Metric string  `json:"metric" yaml:"metric"`
	Value  string  `json:"value" yaml:"value"`
	Unit   *string `json:"unit" yaml:"unit"`
}

type CoreMetric struct {
	Key    string  `json:"key" yaml:"key"`
	Label  string  `json:"label" yaml:"label"`
	Value  string  `json:"value" yaml:"value"`
	Unit   *string `json:"unit" yaml:"unit"`
	Status string  `json:"status" yaml:"status"`
}

type Medication struct {
	MedicationName string  `json:"medicationName" yaml:"medicationName"`
	HospitalName   *string `json:"hospitalName" yaml:"hospitalName"`
	Date           *string `json:"date" yaml:"date"`
	DosageDay      *string `json:"dosageDay" yaml:"dosageDay"`
}

type PayloadSurvey struct {
	SelectedSections []string       `json:"selectedSections" yaml:"selectedSections"`
	SectionScores    []SectionScore `json:"sectionScores" yaml:"sectionScores"`
	OverallScore     *float64       `json:"overallScore" yaml:"overallScore"`
}

type SectionScore struct {
	SectionKey    string  `json:"sectionKey" yaml:"sectionKey"`
	SectionTitle  string  `json:"sectionTitle" yaml:"sectionTitle"`
	Score         float64 `json:"score" yaml:"score"`
	AnsweredCount int     `json:"answeredCount" yaml:"answeredCount"`
	QuestionCount int     `json:"questionCount" yaml:"questionCount"`
}

type PayloadAnalysis struct {
	Version         *int            `json:"version" yaml:"version"`
	Summary         AnalysisSummary `json:"summary" yaml:"summary"`
	Recommendations []string        `json:"recommendations" yaml:"recommendations"`
	Trend           AnalysisTrend   `json:"trend" yaml:"trend"`
	AIEvaluation    *AIEvaluation   `json:"aiEvaluation" yaml:"aiEvaluation"`
}

type AnalysisSummary struct {
	OverallScore    *float64 `json:"overallScore" yaml:"overallScore"`
	SurveyScore     *float64 `json:"surveyScore" yaml:"surveyScore"`
	HealthScore     *float64 `json:"healthScore" yaml:"healthScore"`
	MedicationScore *float64 `json:"medicationScore" yaml:"medicationScore"`
	RiskLevel       string   `json:"riskLevel" yaml:"riskLevel"`
}

type AnalysisTrend struct {
	Months []TrendMonth `json:"months" yaml:"months"`
}

type TrendMonth struct {
	PeriodKey    string  `json:"periodKey" yaml:"periodKey"`
	OverallScore float64 `json:"overallScore" yaml:"overallScore"`
	SurveyScore  float64 `json:"surveyScore" yaml:"surveyScore"`
	HealthScore  float64 `json:"healthScore" yaml:"healthScore"`
}

type AIEvaluation struct {
	Summary      string   `json:"summary" yaml:"summary"`
	MonthlyGuide string   `json:"monthlyGuide" yaml:"monthlyGuide"`
	ActionItems  []string `json:"actionItems" yaml:"actionItems"`
	Caution      string   `json:"caution" yaml:"caution"`
}

type PayloadPharmacist struct {
	Note            *string `json:"note" yaml:"note"`
	Recommendations *string `json:"recommendations" yaml:"recommendations"`
	Cautions        *string `json:"cautions" yaml:"cautions"`
	Summary         *string `json:"summary" yaml:"summary"`
	DosingGuide     *string `json:"dosingGuide" yaml:"dosingGuide"`
}

// DecodePayload reads a payload document. JSON is detected by a leading
// '{'; anything else is parsed as YAML.
func DecodePayload(r io.Reader) (Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, errors.Wrap(errors.ErrCodeInvalidPayload, err, "read payload")
	}
	return DecodePayloadBytes(data)
}

// DecodePayloadBytes is DecodePayload for an in-memory document.
func DecodePayloadBytes(data []byte) (Payload, error) {
	var p Payload
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return p, errors.New(errors.ErrCodeInvalidPayload, "payload is empty")
	}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return p, errors.Wrap(errors.ErrCodeInvalidPayload, err, "decode JSON payload")
		}
		return p, nil
	}
	if err := yaml.Unmarshal(trimmed, &p); err != nil {
		return p, errors.Wrap(errors.ErrCodeInvalidPayload, err, "decode YAML payload")
	}
	return p, nil
}
