package layout

import (
	"strings"

	"github.com/matzehuels/reportflow/pkg/errors"
)

// StylePreset names a bundle of margin, typography and colour constants.
type StylePreset string

// Supported style presets, in variant order.
const (
	PresetFresh StylePreset = "fresh"
	PresetCalm  StylePreset = "calm"
	PresetFocus StylePreset = "focus"
)

// Preset holds the resolved constants of a style preset.
type Preset struct {
	Name StylePreset `json:"name"`

	MarginMm     float64 `json:"marginMm"`
	SectionGapMm float64 `json:"sectionGapMm"`

	TitlePt   float64 `json:"titlePt"`
	HeadingPt float64 `json:"headingPt"`
	BodyPt    float64 `json:"bodyPt"`
	SmallPt   float64 `json:"smallPt"`
	Leading   float64 `json:"leading"`

	HeaderHeightMm  float64 `json:"headerHeightMm"`
	KPITileHeightMm float64 `json:"kpiTileHeightMm"`
	KPIGapMm        float64 `json:"kpiGapMm"`
	ChartHeightMm   float64 `json:"chartHeightMm"`
	RowHeightMm     float64 `json:"rowHeightMm"`

	Accent     string `json:"accent"`
	AccentSoft string `json:"accentSoft"`
	Text       string `json:"text"`
	Muted      string `json:"muted"`
}

var presetOrder = []StylePreset{PresetFresh, PresetCalm, PresetFocus}

var presets = map[StylePreset]Preset{
	PresetFresh: {
		Name:            PresetFresh,
		MarginMm:        12,
		SectionGapMm:    6,
		TitlePt:         16,
		HeadingPt:       13,
		BodyPt:          10.5,
		SmallPt:         9,
		Leading:         1.2,
		HeaderHeightMm:  28,
		KPITileHeightMm: 22,
		KPIGapMm:        4,
		ChartHeightMm:   48,
		RowHeightMm:     7,
		Accent:          "2F80ED",
		AccentSoft:      "EAF3FF",
		Text:            "111827",
		Muted:           "6B7280",
	},
	PresetCalm: {
		Name:            PresetCalm,
		MarginMm:        14,
		SectionGapMm:    7,
		TitlePt:         16,
		HeadingPt:       12.5,
		BodyPt:          10,
		SmallPt:         8.5,
		Leading:         1.25,
		HeaderHeightMm:  30,
		KPITileHeightMm: 24,
		KPIGapMm:        5,
		ChartHeightMm:   52,
		RowHeightMm:     7.5,
		Accent:          "0F766E",
		AccentSoft:      "E8F7F5",
		Text:            "111827",
		Muted:           "4B5563",
	},
	PresetFocus: {
		Name:            PresetFocus,
		MarginMm:        12,
		SectionGapMm:    5,
		TitlePt:         17,
		HeadingPt:       13.5,
		BodyPt:          11,
		SmallPt:         9,
		Leading:         1.15,
		HeaderHeightMm:  26,
		KPITileHeightMm: 20,
		KPIGapMm:        3,
		ChartHeightMm:   44,
		RowHeightMm:     6.5,
		Accent:          "B45309",
		AccentSoft:      "FFF4E6",
		Text:            "111827",
		Muted:           "6B7280",
	},
}

// PresetNames lists the style presets in variant order.
func PresetNames() []StylePreset {
	out := make([]StylePreset, len(presetOrder))
	copy(out, presetOrder)
	return out
}

// ResolvePreset maps a style key to its preset. Keys are matched
// case-insensitively.
func ResolvePreset(name string) (Preset, error) {
	p, ok := presets[StylePreset(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Preset{}, errors.New(errors.ErrCodeInvalidStyle, "invalid style preset: %q (must be one of: fresh, calm, focus)", name)
	}
	return p, nil
}

// PickStylePreset maps a variant ordinal onto [0, presetCount). Negative
// variants mirror positive ones. It returns 0 when presetCount is not
// positive.
func PickStylePreset(variantIndex, presetCount int) int {
	if presetCount <= 0 {
		return 0
	}
	if variantIndex < 0 {
		variantIndex = -variantIndex
	}
	return variantIndex % presetCount
}

// PresetForVariant returns the preset picked for variantIndex.
func PresetForVariant(variantIndex int) StylePreset {
	return presetOrder[PickStylePreset(variantIndex, len(presetOrder))]
}

// StyleCandidates returns every preset, starting with the one picked for
// variantIndex and continuing in variant order. Regeneration walks this list
// when a layout fails validation.
func StyleCandidates(variantIndex int) []StylePreset {
	start := PickStylePreset(variantIndex, len(presetOrder))
	out := make([]StylePreset, 0, len(presetOrder))
	for i := range presetOrder {
		out = append(out, presetOrder[(start+i)%len(presetOrder)])
	}
	return out
}
