package parse

import (
	"sort"
	"strings"
)

// labelDef binds one textual alias to a field key. Aliases are matched
// case-insensitively, at word boundaries, and must be followed by a colon.
type labelDef struct {
	alias string
	key   string
}

// knownLabels lists every alias the scanner recognizes. The synthetic
// "action" key never reaches ClassifiedResponse.Fields; it only feeds
// action detection and bounds its neighbours.
var knownLabels = []labelDef{
	{"RECOMMENDED ACTION", fieldAction},
	{"RECOMMENDATION", fieldAction},
	{"ACTION", fieldAction},
	{"MOVE", fieldAction},

	{"HOLE CARDS", FieldHand},
	{"HOLE_CARDS", FieldHand},
	{"MY HAND", FieldHand},
	{"HAND", FieldHand},

	{"COMMUNITY CARDS", FieldBoard},
	{"COMMUNITY_CARDS", FieldBoard},
	{"BOARD", FieldBoard},

	{"STAGE", FieldStage},
	{"STREET", FieldStage},

	{"POSITION", FieldPosition},

	{"POT SIZE", FieldPot},
	{"POT_SIZE", FieldPot},
	{"POT", FieldPot},

	{"AMOUNT TO CALL", FieldAmountToCall},
	{"AMOUNT_TO_CALL", FieldAmountToCall},
	{"TO CALL", FieldAmountToCall},
	{"TO_CALL", FieldAmountToCall},
	{"CALL AMOUNT", FieldAmountToCall},

	{"POT ODDS", FieldPotOdds},
	{"POT_ODDS", FieldPotOdds},

	{"STACK TO POT RATIO", FieldStackToPotRatio},
	{"STACK_TO_POT_RATIO", FieldStackToPotRatio},
	{"SPR", FieldStackToPotRatio},

	{"RATIONALE", FieldRationale},
	{"REASONING", FieldRationale},
	{"ANALYSIS", FieldRationale},

	{"PREDICTED RAISE SIZE", FieldPredictedRaiseSize},
	{"PREDICTED_RAISE_SIZE", FieldPredictedRaiseSize},

	{"PREDICTED ACTION", FieldPredictedAction},
	{"PREDICTED_ACTION", FieldPredictedAction},
	{"NEXT ACTION", FieldPredictedAction},
	{"LIKELY ACTION", FieldPredictedAction},

	{"RAISE SIZE", FieldRaiseSize},
	{"RAISE_SIZE", FieldRaiseSize},
	{"BET SIZE", FieldRaiseSize},
	{"BET_SIZE", FieldRaiseSize},
	{"SIZING", FieldRaiseSize},

	{"CONFIDENCE", FieldConfidence},
	{"ISSUE", FieldIssue},
}

// fieldAction is internal to the scanner; see knownLabels.
const fieldAction = "action"

// labelHit is one accepted label occurrence in the text.
type labelHit struct {
	key      string
	start    int // index of the alias itself
	valueOff int // index just past the colon
}

// scanLabels finds every label occurrence, longest alias winning on
// overlap, sorted by position.
func scanLabels(text string, labels []labelDef) []labelHit {
	upper := strings.ToUpper(text)

	type candidate struct {
		labelHit
		length int
	}
	var cands []candidate
	for _, def := range labels {
		from := 0
		for {
			i := strings.Index(upper[from:], def.alias)
			if i < 0 {
				break
			}
			pos := from + i
			from = pos + 1
			if !boundaryBefore(upper, pos) {
				continue
			}
			off, ok := colonAfter(upper, pos+len(def.alias))
			if !ok {
				continue
			}
			cands = append(cands, candidate{labelHit{def.key, pos, off}, len(def.alias)})
		}
	}

	// Longest alias wins when occurrences overlap ("PREDICTED ACTION"
	// also contains "ACTION").
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].start != cands[j].start {
			return cands[i].start < cands[j].start
		}
		return cands[i].length > cands[j].length
	})
	var hits []labelHit
	lastEnd := -1
	for _, c := range cands {
		if c.start < lastEnd {
			continue
		}
		hits = append(hits, c.labelHit)
		lastEnd = c.valueOff
	}
	return hits
}

// boundaryBefore reports whether pos starts a word.
func boundaryBefore(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	prev := s[pos-1]
	return !(prev >= 'A' && prev <= 'Z') && !(prev >= '0' && prev <= '9') && prev != '_'
}

// colonAfter skips spaces/tabs after the alias and requires a colon there.
// Returns the index just past the colon.
func colonAfter(s string, pos int) (int, bool) {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	if pos < len(s) && s[pos] == ':' {
		return pos + 1, true
	}
	return 0, false
}

// extractFields turns label occurrences into a key/value map. A value runs
// from just past its colon to the start of the next recognized label, or end
// of text, so adjacent fields cannot bleed into each other even without
// newlines. First occurrence of a key wins.
func extractFields(text string, hits []labelHit) map[string]string {
	out := make(map[string]string, len(hits))
	for i, h := range hits {
		end := len(text)
		if i+1 < len(hits) {
			end = hits[i+1].start
		}
		val := strings.TrimSpace(text[h.valueOff:end])
		if _, seen := out[h.key]; !seen {
			out[h.key] = val
		}
	}
	return out
}
