package layout

// Role classifies a node for validation purposes.
type Role string

// Node roles.
const (
	RoleContent    Role = "content"
	RoleBackground Role = "background"
	RoleDecorative Role = "decorative"
)

// Kind describes what a node draws.
type Kind string

// Node kinds.
const (
	KindText  Kind = "text"
	KindRect  Kind = "rect"
	KindChart Kind = "chart"
	KindRow   Kind = "row"
)

// Node is a positioned element on a page. Geometry is in millimetres.
type Node struct {
	ID           string  `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	W            float64 `json:"w"`
	H            float64 `json:"h"`
	Role         Role    `json:"role"`
	AllowOverlap bool    `json:"allowOverlap,omitempty"`
	Section      string  `json:"section,omitempty"`
	Content      Content `json:"content"`
}

// Content is what a node renders. Only the fields relevant to Kind are set.
type Content struct {
	Kind     Kind          `json:"kind"`
	Text     string        `json:"text,omitempty"`
	FontPt   float64       `json:"fontPt,omitempty"`
	Bold     bool          `json:"bold,omitempty"`
	Color    string        `json:"color,omitempty"`
	Fill     string        `json:"fill,omitempty"`
	Align    string        `json:"align,omitempty"`
	Cells    []Cell        `json:"cells,omitempty"`
	Series   []SeriesPoint `json:"series,omitempty"`
	MaxValue float64       `json:"maxValue,omitempty"`
}

// Cell is one column of a table row node. X and W are relative to the row.
type Cell struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	W    float64 `json:"w"`
}

// SeriesPoint is one labelled value of a chart node.
type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Bounds returns the node rectangle as stored.
func (n Node) Bounds() Bounds {
	return Bounds{X: n.X, Y: n.Y, W: n.W, H: n.H}
}

// IsBackgroundLike reports whether the node is exempt from overlap and
// bounds enforcement.
func (n Node) IsBackgroundLike() bool {
	return n.AllowOverlap || n.Role == RoleBackground || n.Role == RoleDecorative
}

// NewNode returns a node with rounded geometry. An empty role defaults to
// RoleContent.
func NewNode(id string, b Bounds, role Role, c Content) Node {
	if role == "" {
		role = RoleContent
	}
	r := b.Rounded()
	return Node{ID: id, X: r.X, Y: r.Y, W: r.W, H: r.H, Role: role, Content: c}
}
