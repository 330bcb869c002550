package cards

import (
	"fmt"
	"strings"
)

// Card mirrors the usual shorthand: "As" => rank 14, suit 's'.
type Card struct {
	Rank int
	Suit byte
}

const rankChars = "  23456789TJQKA"

func (c Card) String() string {
	if c.Rank < 2 || c.Rank > 14 {
		return "??"
	}
	return fmt.Sprintf("%c%c", rankChars[c.Rank], c.Suit)
}

// RankName returns the spoken name of a rank ("ace", "king", "ten", "7").
func RankName(rank int) string {
	switch rank {
	case 14:
		return "ace"
	case 13:
		return "king"
	case 12:
		return "queen"
	case 11:
		return "jack"
	case 10:
		return "ten"
	default:
		if rank >= 2 && rank <= 9 {
			return string(rune('0' + rank))
		}
		return "?"
	}
}

// RankFromWord maps both shorthand ("A", "T") and spoken names ("ace",
// "tens") to a rank, 0 if unknown.
func RankFromWord(w string) int {
	w = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(w), "s"))
	switch w {
	case "a", "ace":
		return 14
	case "k", "king":
		return 13
	case "q", "queen":
		return 12
	case "j", "jack":
		return 11
	case "t", "10", "ten":
		return 10
	case "9", "nine":
		return 9
	case "8", "eight":
		return 8
	case "7", "seven":
		return 7
	case "6", "six":
		return 6
	case "5", "five":
		return 5
	case "4", "four":
		return 4
	case "3", "three":
		return 3
	case "2", "two", "deuce":
		return 2
	}
	return 0
}

// Parse reads one card in "As" / "10h" / "kd" form.
func Parse(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Card{}, fmt.Errorf("card %q too short", s)
	}
	suit := byte(strings.ToLower(s[len(s)-1:])[0])
	switch suit {
	case 'c', 'd', 'h', 's':
	default:
		return Card{}, fmt.Errorf("card %q: unknown suit %q", s, string(suit))
	}
	rank := RankFromWord(s[:len(s)-1])
	if rank == 0 {
		return Card{}, fmt.Errorf("card %q: unknown rank %q", s, s[:len(s)-1])
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// ParseList reads a whitespace/comma separated card list ("As Kd", "As,Kd").
// Unparseable tokens are dropped rather than failing the whole list; the
// callers feed it model text that is frequently sloppy.
func ParseList(s string) []Card {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '/' || r == '|'
	})
	var out []Card
	for _, f := range fields {
		if c, err := Parse(f); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// MaxRank returns the highest rank in the list, 0 for an empty list.
func MaxRank(cs []Card) int {
	max := 0
	for _, c := range cs {
		if c.Rank > max {
			max = c.Rank
		}
	}
	return max
}

// HasRank reports whether any card in the list carries the given rank.
func HasRank(cs []Card, rank int) bool {
	for _, c := range cs {
		if c.Rank == rank {
			return true
		}
	}
	return false
}
