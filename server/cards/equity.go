package cards

import (
	"math/rand"

	poker "github.com/paulhankin/poker"
)

// Equity estimates the hero's win probability against one random opponent
// hand. With a complete board every villain combination is enumerated
// exactly; on earlier streets the remaining board cards are sampled, samples
// runouts per villain combination bucket. Ties count half. Returns -1 when
// the inputs cannot form a valid matchup.
func Equity(hole, board []Card, samples int) float64 {
	if len(hole) != 2 || len(board) > 5 {
		return -1
	}
	if samples <= 0 {
		samples = 2000
	}

	used := map[Card]bool{}
	for _, c := range hole {
		used[c] = true
	}
	for _, c := range board {
		used[c] = true
	}
	if len(used) != len(hole)+len(board) {
		return -1
	}

	avail := make([]Card, 0, 52)
	for _, suit := range []byte{'c', 'd', 'h', 's'} {
		for rank := 2; rank <= 14; rank++ {
			c := Card{Rank: rank, Suit: suit}
			if !used[c] {
				avail = append(avail, c)
			}
		}
	}

	if len(board) == 5 {
		return exactRiverEquity(hole, board, avail)
	}
	return sampledEquity(hole, board, avail, samples)
}

// exactRiverEquity enumerates all villain hole pairs on a full board.
func exactRiverEquity(hole, board, avail []Card) float64 {
	heroScore := score7(hole, board, nil)

	var total, win, tie int64
	for i := 0; i < len(avail); i++ {
		for j := i + 1; j < len(avail); j++ {
			total++
			vScore := score7([]Card{avail[i], avail[j]}, board, nil)
			// Lower score is the better hand.
			if heroScore < vScore {
				win++
			} else if heroScore == vScore {
				tie++
			}
		}
	}
	if total == 0 {
		return -1
	}
	return (float64(win) + 0.5*float64(tie)) / float64(total)
}

// sampledEquity draws villain holes and board runouts uniformly.
func sampledEquity(hole, board, avail []Card, samples int) float64 {
	need := 5 - len(board)
	if len(avail) < need+2 {
		return -1
	}

	var win, tie float64
	pick := make([]Card, len(avail))
	for n := 0; n < samples; n++ {
		copy(pick, avail)
		// Partial Fisher-Yates for villain hole + runout.
		for k := 0; k < need+2; k++ {
			r := k + rand.Intn(len(pick)-k)
			pick[k], pick[r] = pick[r], pick[k]
		}
		villain := pick[:2]
		runout := pick[2 : 2+need]

		heroScore := score7(hole, board, runout)
		vScore := score7(villain, board, runout)
		if heroScore < vScore {
			win++
		} else if heroScore == vScore {
			tie++
		}
	}
	return (win + 0.5*tie) / float64(samples)
}

func score7(hole, board, runout []Card) int16 {
	var a [7]poker.Card
	i := 0
	for _, c := range hole {
		a[i] = toPH(c)
		i++
	}
	for _, c := range board {
		a[i] = toPH(c)
		i++
	}
	for _, c := range runout {
		a[i] = toPH(c)
		i++
	}
	return poker.Eval7(&a)
}
