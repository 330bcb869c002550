package parse

// ActionKind is the closed taxonomy a model response is classified into.
type ActionKind string

const (
	Fold         ActionKind = "fold"
	Raise        ActionKind = "raise"
	Call         ActionKind = "call"
	Check        ActionKind = "check"
	AllIn        ActionKind = "allin"
	Ready        ActionKind = "ready"
	Waiting      ActionKind = "waiting"
	Skip         ActionKind = "skip"
	Unrecognized ActionKind = "unrecognized"
)

// WaitingLike groups the kinds that mean "not the user's turn yet".
func (k ActionKind) WaitingLike() bool { return k == Waiting || k == Ready }

// ActingLike groups the kinds that carry a concrete table action.
func (k ActionKind) ActingLike() bool {
	switch k {
	case Fold, Raise, Call, Check, AllIn:
		return true
	}
	return false
}

// Field keys used in ClassifiedResponse.Fields. Absent fields are simply
// missing from the map; readers treat missing and empty the same.
const (
	FieldHand               = "hand"
	FieldBoard              = "board"
	FieldStage              = "stage"
	FieldPosition           = "position"
	FieldPot                = "pot"
	FieldAmountToCall       = "amountToCall"
	FieldPotOdds            = "potOdds"
	FieldStackToPotRatio    = "stackToPotRatio"
	FieldRationale          = "rationale"
	FieldRaiseSize          = "raiseSize"
	FieldPredictedAction    = "predictedAction"
	FieldPredictedRaiseSize = "predictedRaiseSize"
	FieldConfidence         = "confidence"
	FieldIssue              = "issue"
)

// Fields holds the named attributes extracted from one response.
type Fields map[string]string

// Get returns the value for key, "" when absent.
func (f Fields) Get(key string) string {
	if f == nil {
		return ""
	}
	return f[key]
}

// Clone returns a shallow copy so callers can pin a snapshot.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge copies every non-empty value from src over f, creating f if needed.
func (f Fields) Merge(src Fields) Fields {
	if len(src) == 0 {
		return f
	}
	if f == nil {
		f = make(Fields, len(src))
	}
	for k, v := range src {
		if v != "" {
			f[k] = v
		}
	}
	return f
}

// ClassifiedResponse is the parser's verdict for one model response, complete
// or partial. Display is the short human-facing label ("Raise 120").
type ClassifiedResponse struct {
	Kind    ActionKind
	Display string
	Fields  Fields

	// RationaleStarted reports that the free-form rationale has begun to
	// arrive (or that the whole text is free-form). The streaming path holds
	// acting-like partials back until this is true.
	RationaleStarted bool
}
