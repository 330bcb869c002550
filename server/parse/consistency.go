package parse

import (
	"fmt"
	"strings"

	"github.com/frankfika/pokersight-gto/server/cards"
)

// checkConsistency cross-validates hand-strength claims in the rationale
// against the extracted hand/board. Advisory only: a mismatch downgrades the
// confidence field and attaches an issue note, never the action kind.
func checkConsistency(fields Fields) {
	rationale := fields.Get(FieldRationale)
	if rationale == "" {
		return
	}
	hole := cards.ParseList(fields.Get(FieldHand))
	board := cards.ParseList(fields.Get(FieldBoard))
	if len(hole) == 0 {
		return
	}
	u := strings.ToUpper(rationale)

	flag := func(claim string) {
		fields[FieldConfidence] = "low"
		fields[FieldIssue] = fmt.Sprintf("claimed %s not supported by hand %q board %q",
			claim, fields.Get(FieldHand), fields.Get(FieldBoard))
	}

	if strings.Contains(u, "TOP PAIR") && len(board) > 0 {
		if !cards.HasTopPair(hole, board) {
			flag("top pair")
			return
		}
	}

	if rank, claim := pairOfClaim(u); rank > 0 {
		if !cards.HasPairOf(hole, board, rank) {
			flag(claim)
			return
		}
	}

	// Category claims (two pair, flush, ...) checked against the evaluator
	// when a full five-card view exists.
	if desc := cards.Describe(hole, board); desc != "" {
		for _, c := range []struct{ claim, want string }{
			{"FULL HOUSE", "full house"},
			{"TWO PAIR", "two pair"},
			{"THREE OF A KIND", "three of a kind"},
			{"STRAIGHT FLUSH", "straight flush"},
			{"FLUSH", "flush"},
			{"STRAIGHT", "straight"},
			{"QUADS", "four of a kind"},
			{"FOUR OF A KIND", "four of a kind"},
		} {
			claimed := strings.Contains(u, c.claim) &&
				!strings.Contains(u, c.claim+" DRAW")
			if claimed && !strings.Contains(desc, c.want) {
				flag(strings.ToLower(c.claim))
				return
			}
		}
	}
}

// pairOfClaim finds a "pair of <rank>" claim and resolves the rank.
func pairOfClaim(u string) (int, string) {
	i := strings.Index(u, "PAIR OF ")
	if i < 0 {
		return 0, ""
	}
	rest := strings.TrimSpace(u[i+len("PAIR OF "):])
	word := rest
	if j := strings.IndexFunc(rest, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '\n'
	}); j > 0 {
		word = rest[:j]
	}
	rank := cards.RankFromWord(word)
	if rank == 0 {
		return 0, ""
	}
	return rank, "pair of " + strings.ToLower(word)
}
