package cards

import (
	"strings"

	poker "github.com/paulhankin/poker"
)

// Convert our Card -> library card.
// Our ranks: 2..14 (Ace=14). Library: 1..13 (Ace=1).
func toPH(c Card) poker.Card {
	var s poker.Suit
	switch c.Suit {
	case 'c':
		s = poker.Club
	case 'd':
		s = poker.Diamond
	case 'h':
		s = poker.Heart
	default:
		s = poker.Spade
	}
	var r poker.Rank
	if c.Rank == 14 {
		r = poker.Rank(1)
	} else {
		r = poker.Rank(c.Rank)
	}
	card, _ := poker.MakeCard(s, r)
	return card
}

// Describe returns the library's description of the best hand that hole+board
// make ("two pair", "flush", ...), lowercased. Empty string when there are not
// enough cards or the library rejects the input (duplicate cards etc).
func Describe(hole, board []Card) string {
	all := make([]poker.Card, 0, len(hole)+len(board))
	for _, c := range hole {
		all = append(all, toPH(c))
	}
	for _, c := range board {
		all = append(all, toPH(c))
	}
	if len(all) < 5 {
		return ""
	}
	d, err := poker.Describe(all)
	if err != nil {
		return ""
	}
	return strings.ToLower(d)
}

// HasTopPair reports whether one hole card pairs the highest board rank.
func HasTopPair(hole, board []Card) bool {
	top := MaxRank(board)
	if top == 0 {
		return false
	}
	return HasRank(hole, top)
}

// HasPairOf reports whether hole+board contain at least two cards of the
// given rank, with at least one of them in the hole.
func HasPairOf(hole, board []Card, rank int) bool {
	n := 0
	for _, c := range hole {
		if c.Rank == rank {
			n++
		}
	}
	if n == 0 {
		return false
	}
	for _, c := range board {
		if c.Rank == rank {
			n++
		}
	}
	return n >= 2
}
