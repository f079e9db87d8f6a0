package analysis

// ViolationKind classifies what the range analysis found.
type ViolationKind string

const (
	KindOverflow   ViolationKind = "overflow"
	KindUnderflow  ViolationKind = "underflow"
	KindDivByZero  ViolationKind = "division-by-zero"
	KindModByZero  ViolationKind = "modulo-by-zero"
	KindConstraint ViolationKind = "defi-constraint"
	KindIncomplete ViolationKind = "analysis-incomplete"
	KindUnmodeled  ViolationKind = "unmodeled-construct"
)

// Violation is one range-analysis finding. The JSON shape is the
// documented output schema; kind, line and confidence ride along for
// the detector layer only.
type Violation struct {
	Contract  string `json:"contract"`
	Function  string `json:"function"`
	Variable  string `json:"variable"`
	Violation string `json:"violation"`
	Interval  string `json:"interval"`

	Kind       ViolationKind `json:"-"`
	Line       int           `json:"-"`
	Confidence float64       `json:"-"`
}
