package parse

import (
	"fmt"
	"strings"
)

// Classify turns one model response (complete or a growing prefix) into a
// ClassifiedResponse. It is pure and total: any input, including garbage,
// yields a usable classification.
func Classify(text string) ClassifiedResponse {
	if strings.TrimSpace(text) == "" {
		return ClassifiedResponse{Kind: Waiting, Display: "Waiting", Fields: Fields{}}
	}

	hits := scanLabels(text, knownLabels)
	raw := extractFields(text, hits)

	fields := make(Fields, len(raw))
	for k, v := range raw {
		if k != fieldAction && v != "" {
			fields[k] = v
		}
	}

	rationaleStarted := false
	for _, h := range hits {
		if h.key == FieldRationale {
			rationaleStarted = true
			break
		}
	}
	if len(hits) == 0 {
		// No labels at all: the whole text is a free-form rationale.
		fields[FieldRationale] = strings.TrimSpace(text)
		rationaleStarted = true
	}

	kind, actionLine := detectAction(text, hits)

	// A waiting verdict that names a concrete predicted action becomes Ready
	// with a "predicted:" display.
	display := ""
	if kind == Waiting {
		if pk := keywordKind(fields.Get(FieldPredictedAction)); pk.ActingLike() {
			kind = Ready
			display = "predicted: " + actionDisplay(pk, fields.Get(FieldPredictedRaiseSize), fields.Get(FieldPredictedAction), "", fields)
		}
	}

	// Rationale wins on contradiction, except Fold is terminal.
	if kind.ActingLike() && kind != Fold {
		if rec := recommendedIn(fields.Get(FieldRationale)); rec != Unrecognized && rec != kind {
			kind = rec
			display = ""
		}
	}

	if display == "" {
		display = actionDisplay(kind, fields.Get(FieldRaiseSize), actionLine, text, fields)
	}

	checkConsistency(fields)

	return ClassifiedResponse{
		Kind:             kind,
		Display:          display,
		Fields:           fields,
		RationaleStarted: rationaleStarted,
	}
}

// Refine re-evaluates a growing prefix of the same response. A Fold verdict
// is terminal for that response: a longer prefix never talks it away.
func Refine(prev *ClassifiedResponse, text string) ClassifiedResponse {
	c := Classify(text)
	if prev != nil && prev.Kind == Fold && c.Kind != Fold {
		c.Kind = Fold
		c.Display = prev.Display
	}
	return c
}

// detectAction applies the keyword precedence: first every line carrying an
// explicit action label, then the first line, then the whole text. Returns
// the chosen kind and the chunk it was found in (for sizing lookups).
func detectAction(text string, hits []labelHit) (ActionKind, string) {
	lines := strings.Split(text, "\n")

	// Lines with an explicit action marker, in order.
	offset := 0
	for _, line := range lines {
		start, end := offset, offset+len(line)
		offset = end + 1
		for _, h := range hits {
			if h.key != fieldAction || h.start < start || h.start >= end {
				continue
			}
			if k := keywordKind(line); k != Unrecognized {
				return k, line
			}
		}
	}

	if k := keywordKind(lines[0]); k != Unrecognized {
		return k, lines[0]
	}
	return keywordKind(text), text
}

// keywordKind classifies one chunk of text by keyword precedence:
// all-in > raise/bet > call > check > fold > ready > waiting > skip.
func keywordKind(chunk string) ActionKind {
	if strings.TrimSpace(chunk) == "" {
		return Unrecognized
	}
	u := strings.ToUpper(chunk)
	switch {
	case hasPhrase(u, "ALL-IN") || hasPhrase(u, "ALL IN") || hasWord(u, "ALLIN"):
		return AllIn
	case hasWord(u, "RAISE") || hasWord(u, "RAISES") || hasWord(u, "RAISING") ||
		hasWord(u, "BET") || hasWord(u, "BETS") || hasWord(u, "BETTING"):
		return Raise
	case hasWord(u, "CALL") || hasWord(u, "CALLS") || hasWord(u, "CALLING"):
		return Call
	case hasWord(u, "CHECK") || hasWord(u, "CHECKS") || hasWord(u, "CHECKING"):
		return Check
	case hasWord(u, "FOLD") || hasWord(u, "FOLDS") || hasWord(u, "FOLDING"):
		return Fold
	case hasWord(u, "READY") || hasPhrase(u, "YOUR TURN") || hasPhrase(u, "HERO TO ACT") ||
		hasPhrase(u, "TIME TO ACT"):
		return Ready
	case hasWord(u, "WAITING") || hasWord(u, "WAIT") || hasPhrase(u, "NOT YOUR TURN") ||
		hasPhrase(u, "NOT MY TURN") || hasPhrase(u, "OPPONENT TO ACT"):
		return Waiting
	case hasWord(u, "SKIP") || hasPhrase(u, "NOT A POKER") || hasPhrase(u, "NOT A GAME") ||
		hasPhrase(u, "NO GAME") || hasWord(u, "LOBBY") || hasPhrase(u, "MAIN MENU"):
		return Skip
	}
	return Unrecognized
}

// recommendedIn pulls an explicit recommendation out of free-form rationale
// text ("you should fold here", "calling is correct"). Unrecognized when the
// rationale does not commit to an action.
func recommendedIn(rationale string) ActionKind {
	if strings.TrimSpace(rationale) == "" {
		return Unrecognized
	}
	u := strings.ToUpper(rationale)

	cues := []string{"SHOULD", "RECOMMEND", "BEST TO", "BETTER TO", "PREFER", "CORRECT PLAY IS", "INSTEAD"}
	for _, cue := range cues {
		from := 0
		for {
			i := strings.Index(u[from:], cue)
			if i < 0 {
				break
			}
			pos := from + i + len(cue)
			from = from + i + 1
			window := u[pos:min(pos+48, len(u))]
			k, at := actionWordIn(window)
			if k == Unrecognized {
				continue
			}
			// "should not fold" is not a fold recommendation.
			if negated(window[:at]) {
				continue
			}
			return k
		}
	}

	// "<action>ing is the best/correct/right play" style.
	for _, w := range []struct {
		word string
		kind ActionKind
	}{
		{"FOLDING", Fold}, {"RAISING", Raise}, {"BETTING", Raise},
		{"CALLING", Call}, {"CHECKING", Check},
	} {
		i := strings.Index(u, w.word)
		if i < 0 {
			continue
		}
		window := u[i:min(i+len(w.word)+32, len(u))]
		if strings.Contains(window, "IS BEST") || strings.Contains(window, "IS THE BEST") ||
			strings.Contains(window, "IS CORRECT") || strings.Contains(window, "IS RIGHT") ||
			strings.Contains(window, "IS THE RIGHT") || strings.Contains(window, "IS BETTER") {
			return w.kind
		}
	}
	return Unrecognized
}

// actionWordIn finds the first concrete action keyword in a chunk, with no
// waiting/skip fallbacks (those are never "recommendations"). Returns the
// kind and the byte offset of the match.
func actionWordIn(u string) (ActionKind, int) {
	type hit struct {
		pos  int
		kind ActionKind
	}
	best := hit{pos: -1}
	consider := func(pos int, k ActionKind) {
		if pos >= 0 && (best.pos < 0 || pos < best.pos) {
			best = hit{pos, k}
		}
	}
	for _, w := range []struct {
		word string
		kind ActionKind
	}{
		{"ALL-IN", AllIn}, {"ALL IN", AllIn}, {"ALLIN", AllIn},
		{"RAIS", Raise},
		{"CALL", Call}, {"CHECK", Check}, {"FOLD", Fold},
	} {
		consider(indexWordPrefix(u, w.word), w.kind)
	}
	// "BET" needs exact word forms: a prefix match would also hit "better".
	for _, w := range []string{"BET", "BETS", "BETTING"} {
		consider(indexWord(u, w), Raise)
	}
	if best.pos < 0 {
		return Unrecognized, -1
	}
	return best.kind, best.pos
}

// negated reports a negation word in the text leading up to a keyword.
func negated(u string) bool {
	return hasWord(u, "NOT") || hasWord(u, "NEVER") || hasWord(u, "AVOID") ||
		strings.Contains(u, "N'T")
}

// actionDisplay renders the short label for a kind. For raises the sizing
// resolution order is: structured raise-size field, a number right after the
// keyword in the action line, a number anywhere in the text, a two-thirds
// pot estimate, then a bare "Raise".
func actionDisplay(kind ActionKind, raiseSizeField, actionLine, fullText string, fields Fields) string {
	switch kind {
	case Fold:
		return "Fold"
	case Call:
		return "Call"
	case Check:
		return "Check"
	case AllIn:
		return "All-in"
	case Ready:
		return "Ready"
	case Waiting:
		return "Waiting"
	case Skip:
		return "Skip"
	case Raise:
		if n, ok := trailingNumber(raiseSizeField); ok {
			return fmt.Sprintf("Raise %d", n)
		}
		if n, ok := numberAfterKeyword(actionLine); ok {
			return fmt.Sprintf("Raise %d", n)
		}
		if actionLine != fullText {
			if n, ok := numberAfterKeyword(fullText); ok {
				return fmt.Sprintf("Raise %d", n)
			}
		}
		if pot, ok := trailingNumber(fields.Get(FieldPot)); ok && pot > 0 {
			return fmt.Sprintf("Raise %d", (pot*2+1)/3)
		}
		return "Raise"
	}
	return ""
}

// numberAfterKeyword finds the first number that immediately follows a
// raise/bet/all-in keyword in the chunk.
func numberAfterKeyword(chunk string) (int, bool) {
	u := strings.ToUpper(chunk)
	for _, kw := range []string{"RAISE", "BET", "ALL-IN", "ALL IN", "ALLIN"} {
		i := strings.Index(u, kw)
		if i < 0 {
			continue
		}
		rest := chunk[i+len(kw):]
		if n, ok := leadingNumber(rest); ok {
			return n, true
		}
	}
	return 0, false
}

// leadingNumber reads the first integer token in s, skipping filler like
// "TO", currency signs and spaces, and tolerating thousands separators.
func leadingNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	u := strings.ToUpper(s)
	for _, skip := range []string{"TO ", "BY "} {
		if strings.HasPrefix(u, skip) {
			s = s[len(skip):]
			break
		}
	}
	s = strings.TrimLeft(s, " \t$€")
	n := 0
	digits := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch >= '0' && ch <= '9' {
			n = n*10 + int(ch-'0')
			digits++
			continue
		}
		if ch == ',' && digits > 0 {
			continue
		}
		break
	}
	return n, digits > 0
}

// trailingNumber reads the last integer token in s ("about 120 chips" -> 120).
func trailingNumber(s string) (int, bool) {
	last := -1
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			last = i
		}
	}
	if last < 0 {
		return 0, false
	}
	start := last
	for start > 0 && (s[start-1] >= '0' && s[start-1] <= '9' || s[start-1] == ',') {
		start--
	}
	n := 0
	for i := start; i <= last; i++ {
		if s[i] == ',' {
			continue
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}

// hasWord reports a whole-word occurrence of w in the uppercased chunk u.
func hasWord(u, w string) bool { return indexWord(u, w) >= 0 }

func indexWord(u, w string) int {
	from := 0
	for {
		i := strings.Index(u[from:], w)
		if i < 0 {
			return -1
		}
		pos := from + i
		from = pos + 1
		if wordBoundary(u, pos, pos+len(w)) {
			return pos
		}
	}
}

// indexWordPrefix matches w at a word start, allowing a suffix ("RAIS" hits
// "RAISE" and "RAISING").
func indexWordPrefix(u, w string) int {
	from := 0
	for {
		i := strings.Index(u[from:], w)
		if i < 0 {
			return -1
		}
		pos := from + i
		from = pos + 1
		if pos == 0 || !isWordChar(u[pos-1]) {
			return pos
		}
	}
}

// hasPhrase is a plain substring match for multi-word phrases.
func hasPhrase(u, p string) bool { return strings.Contains(u, p) }

func wordBoundary(u string, start, end int) bool {
	if start > 0 && isWordChar(u[start-1]) {
		return false
	}
	if end < len(u) && isWordChar(u[end]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}
