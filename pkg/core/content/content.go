// Package content defines the report content model consumed by the flow
// builder, and the adapter that produces it from a raw report payload.
//
// The model is a read-only tree: a [Report] carries its [Meta] and an ordered
// list of sections. Sections form a closed set of variants ([Hero],
// [KPIGrid], [ScoreTrend], [Table], [Paragraph], [BulletList]); code that
// walks a report switches on the concrete type. All validation happens once,
// in [FromPayload], so layout code never re-checks optional fields.
package content

// Meta identifies the report subject and period.
type Meta struct {
	EmployeeID      string `json:"employeeId"`
	EmployeeName    string `json:"employeeName"`
	BirthDateMasked string `json:"birthDateMasked,omitempty"`
	PhoneMasked     string `json:"phoneMasked,omitempty"`
	PeriodKey       string `json:"periodKey"`
	ReportCycle     *int   `json:"reportCycle,omitempty"`
}

// Report is the content model of one health report.
type Report struct {
	Title    string
	Meta     Meta
	Sections []Section
}

// Section is one block of report content.
type Section interface {
	// Key identifies the section. Node ids derive from it, so keys are
	// unique within a report.
	Key() string
	// Heading is the title printed above the section. It may be empty.
	Heading() string
	// Kind names the variant for audit output.
	Kind() string
	// Len returns the number of items in the section body.
	Len() int

	isSection()
}

// Hero is the report header band.
type Hero struct {
	SectionKey string
	Title      string
	Subtitle   string
	Score      *float64
	ScoreLabel string
}

// KPI is one tile of a KPI grid.
type KPI struct {
	Label  string
	// Value carries its unit already, e.g. "128 mmHg".
	Value  string
	Status string
}

// KPIGrid is a grid of KPI tiles.
type KPIGrid struct {
	SectionKey string
	Title      string
	Items      []KPI
}

// TrendPoint is one labelled value of a score trend.
type TrendPoint struct {
	Label  string
	Value float64
}

// ScoreTrend is a chart of scores over time.
type ScoreTrend struct {
	SectionKey string
	Title      string
	Points     []TrendPoint
	Max        float64
	// HeightMm overrides the preset chart height when positive.
	HeightMm float64
}

// Column describes one table column. Weights are relative; a zero weight
// counts as 1.
type Column struct {
	Title  string
	Weight float64
}

// Table is a header row followed by data rows.
type Table struct {
	SectionKey string
	Title      string
	Columns    []Column
	Rows       [][]string
}

// Paragraph is a block of free text. Newlines start new lines.
type Paragraph struct {
	SectionKey string
	Title      string
	Body       string
}

// BulletList is a list of short items.
type BulletList struct {
	SectionKey string
	Title      string
	Items      []string
}

func (s Hero) Key() string       { return s.SectionKey }
func (s KPIGrid) Key() string    { return s.SectionKey }
func (s ScoreTrend) Key() string { return s.SectionKey }
func (s Table) Key() string      { return s.SectionKey }
func (s Paragraph) Key() string  { return s.SectionKey }
func (s BulletList) Key() string { return s.SectionKey }

// Heading of a hero is empty: its title is part of the band.
func (s Hero) Heading() string       { return "" }
func (s KPIGrid) Heading() string    { return s.Title }
func (s ScoreTrend) Heading() string { return s.Title }
func (s Table) Heading() string      { return s.Title }
func (s Paragraph) Heading() string  { return s.Title }
func (s BulletList) Heading() string { return s.Title }

func (Hero) Kind() string       { return "hero" }
func (KPIGrid) Kind() string    { return "kpiGrid" }
func (ScoreTrend) Kind() string { return "scoreTrend" }
func (Table) Kind() string      { return "table" }
func (Paragraph) Kind() string  { return "paragraph" }
func (BulletList) Kind() string { return "bulletList" }

func (Hero) Len() int         { return 1 }
func (s KPIGrid) Len() int    { return len(s.Items) }
func (s ScoreTrend) Len() int { return len(s.Points) }
func (s Table) Len() int      { return len(s.Rows) }
func (s BulletList) Len() int { return len(s.Items) }

func (s Paragraph) Len() int {
	if s.Body == "" {
		return 0
	}
	return 1
}

func (Hero) isSection()       {}
func (KPIGrid) isSection()    {}
func (ScoreTrend) isSection() {}
func (Table) isSection()      {}
func (Paragraph) isSection()  {}
func (BulletList) isSection() {}
