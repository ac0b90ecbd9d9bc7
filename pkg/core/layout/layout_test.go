package layout

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/reportflow/pkg/errors"
)

func TestResolvePageSize(t *testing.T) {
	tests := []struct {
		key     string
		wantW   float64
		wantH   float64
		wantErr bool
	}{
		{"A4", 210, 297, false},
		{"a4", 210, 297, false},
		{"", 210, 297, false},
		{"LETTER", 215.9, 279.4, false},
		{" letter ", 215.9, 279.4, false},
		{"A3", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ResolvePageSize(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolvePageSize(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidPageSize) {
					t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidPageSize)
				}
				return
			}
			if got.WidthMm != tt.wantW || got.HeightMm != tt.wantH {
				t.Errorf("ResolvePageSize(%q) = %vx%v, want %vx%v", tt.key, got.WidthMm, got.HeightMm, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestPickStylePreset(t *testing.T) {
	tests := []struct {
		variant, count, want int
	}{
		{0, 3, 0},
		{1, 3, 1},
		{2, 3, 2},
		{3, 3, 0},
		{7, 3, 1},
		{-1, 3, 1},
		{-4, 3, 1},
		{5, 0, 0},
		{5, 1, 0},
	}
	for _, tt := range tests {
		if got := PickStylePreset(tt.variant, tt.count); got != tt.want {
			t.Errorf("PickStylePreset(%d, %d) = %d, want %d", tt.variant, tt.count, got, tt.want)
		}
	}
}

func TestStyleCandidates(t *testing.T) {
	got := StyleCandidates(1)
	want := []StylePreset{PresetCalm, PresetFocus, PresetFresh}
	if len(got) != len(want) {
		t.Fatalf("StyleCandidates(1) len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StyleCandidates(1)[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if first := StyleCandidates(4)[0]; first != PresetForVariant(4) {
		t.Errorf("StyleCandidates(4)[0] = %s, want %s", first, PresetForVariant(4))
	}
}

func TestResolvePreset(t *testing.T) {
	for _, name := range PresetNames() {
		p, err := ResolvePreset(strings.ToUpper(string(name)))
		if err != nil {
			t.Fatalf("ResolvePreset(%s) error = %v", name, err)
		}
		if p.Name != name {
			t.Errorf("ResolvePreset(%s).Name = %s", name, p.Name)
		}
		if p.MarginMm <= 0 || p.BodyPt <= 0 || p.Leading <= 0 {
			t.Errorf("preset %s has non-positive constants: %+v", name, p)
		}
	}
	if _, err := ResolvePreset("loud"); !errors.Is(err, errors.ErrCodeInvalidStyle) {
		t.Errorf("ResolvePreset(loud) error = %v, want %s", err, errors.ErrCodeInvalidStyle)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.005, 1.0}, // binary representation of 1.005 is below the midpoint
		{1.2349, 1.23},
		{1.235001, 1.24},
		{-0.001, 0},
		{12, 12},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNodeIsBackgroundLike(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"content", Node{Role: RoleContent}, false},
		{"background", Node{Role: RoleBackground}, true},
		{"decorative", Node{Role: RoleDecorative}, true},
		{"allow overlap", Node{Role: RoleContent, AllowOverlap: true}, true},
		{"legacy id alone", Node{ID: "kpi-bg-1", Role: RoleContent}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.IsBackgroundLike(); got != tt.want {
				t.Errorf("IsBackgroundLike() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodePagesMigratesRoles(t *testing.T) {
	doc := `[{"id":"p1","widthMm":210,"heightMm":297,"marginMm":12,"nodes":[
		{"id":"kpi-bg-0","x":12,"y":12,"w":50,"h":20,"content":{"kind":"rect"}},
		{"id":"kpi-label-0","x":14,"y":14,"w":40,"h":5,"content":{"kind":"text","text":"BMI"}},
		{"id":"wm","x":0,"y":0,"w":210,"h":297,"role":"decorative","content":{"kind":"text"}}
	]}]`
	pages, err := DecodePagesBytes([]byte(doc))
	if err != nil {
		t.Fatalf("DecodePagesBytes() error = %v", err)
	}
	want := []Role{RoleBackground, RoleContent, RoleDecorative}
	for i, n := range pages[0].Nodes {
		if n.Role != want[i] {
			t.Errorf("node %s role = %s, want %s", n.ID, n.Role, want[i])
		}
	}
	if got := pages[0].CountContent(); got != 1 {
		t.Errorf("CountContent() = %d, want 1", got)
	}

	var buf bytes.Buffer
	if err := EncodePages(&buf, pages); err != nil {
		t.Fatalf("EncodePages() error = %v", err)
	}
	again, err := DecodePages(&buf)
	if err != nil {
		t.Fatalf("DecodePages() error = %v", err)
	}
	if len(again[0].Nodes) != 3 || again[0].Nodes[0].Role != RoleBackground {
		t.Errorf("round trip lost roles: %+v", again[0].Nodes)
	}
}

func TestDecodePagesInvalid(t *testing.T) {
	if _, err := DecodePagesBytes([]byte(`{"not":"pages"}`)); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("DecodePagesBytes() error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}
