package taxonomy

// Axis is one of the fixed filtering categories used to prevent over-merging:
// two tags on different known axes denote distinguishable concepts and must
// never collapse into one, however similar their strings look.
type Axis string

const (
	AxisCoreTechnology Axis = "core technology"
	AxisAISubcategory  Axis = "ai subcategory"
	AxisIndustry       Axis = "industry"
	AxisApplication    Axis = "application"
	AxisProduct        Axis = "product"
)

// AxisTable resolves tag names to their filtering axis. Tags absent from the
// table have no known axis and place no merge restriction.
type AxisTable struct {
	byTerm map[string]Axis
}

// NewAxisTable builds a table from axis -> member terms.
func NewAxisTable(terms map[Axis][]string) *AxisTable {
	t := &AxisTable{byTerm: make(map[string]Axis)}
	for axis, names := range terms {
		for _, name := range names {
			t.byTerm[foldKey(name)] = axis
		}
	}
	return t
}

// Axis returns the axis a tag belongs to, if it is a recognized term.
func (t *AxisTable) Axis(tag string) (Axis, bool) {
	axis, ok := t.byTerm[foldKey(tag)]
	return axis, ok
}

// Mergeable reports whether two tags may collapse into one. Merging is
// rejected only when both tags sit on known, different axes.
func (t *AxisTable) Mergeable(a, b string) bool {
	axisA, okA := t.Axis(a)
	axisB, okB := t.Axis(b)
	if okA && okB {
		return axisA == axisB
	}
	return true
}

// DefaultAxisTable covers the terms the digest pipeline filters on. Extended
// through configuration; the axis set itself is fixed.
func DefaultAxisTable() *AxisTable {
	return NewAxisTable(map[Axis][]string{
		AxisCoreTechnology: {
			"artificial intelligence",
			"machine learning",
			"cybersecurity",
			"cloud computing",
			"quantum computing",
			"blockchain",
			"robotics",
		},
		AxisAISubcategory: {
			"large language models",
			"generative ai",
			"computer vision",
			"natural language processing",
			"deep learning",
			"reinforcement learning",
			"speech recognition",
		},
		AxisIndustry: {
			"healthcare",
			"agriculture",
			"finance",
			"education",
			"manufacturing",
			"energy",
			"retail",
			"transportation",
			"legal",
		},
		AxisApplication: {
			"fraud detection",
			"code generation",
			"drug discovery",
			"recommendation systems",
			"autonomous driving",
			"content moderation",
		},
		AxisProduct: {
			"health tech",
			"fintech",
			"edtech",
			"chatgpt",
			"github copilot",
		},
	})
}
