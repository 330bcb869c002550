package cards

import "testing"

func TestParse(t *testing.T) {
	c, err := Parse("As")
	if err != nil {
		t.Fatalf("Parse(As): %v", err)
	}
	if c.Rank != 14 || c.Suit != 's' {
		t.Fatalf("Parse(As) = %+v", c)
	}
	if got := c.String(); got != "As" {
		t.Fatalf("String() = %q", got)
	}

	c, err = Parse("10h")
	if err != nil {
		t.Fatalf("Parse(10h): %v", err)
	}
	if c.Rank != 10 || c.Suit != 'h' {
		t.Fatalf("Parse(10h) = %+v", c)
	}

	if _, err := Parse("Zx"); err == nil {
		t.Fatalf("expected error for Zx")
	}
	if _, err := Parse("A"); err == nil {
		t.Fatalf("expected error for bare rank")
	}
}

func TestParseListDropsGarbage(t *testing.T) {
	cs := ParseList("As, Kd junk 7c")
	if len(cs) != 3 {
		t.Fatalf("expected 3 cards, got %v", cs)
	}
	if cs[0].Rank != 14 || cs[1].Rank != 13 || cs[2].Rank != 7 {
		t.Fatalf("unexpected ranks: %v", cs)
	}
}

func TestTopPair(t *testing.T) {
	hole := ParseList("Kd 7h")
	board := ParseList("Kh 9c 2d")
	if !HasTopPair(hole, board) {
		t.Fatalf("Kd on K-high board should be top pair")
	}
	if HasTopPair(ParseList("7h 6h"), board) {
		t.Fatalf("7h6h on K-high board is not top pair")
	}
	if HasTopPair(hole, nil) {
		t.Fatalf("no board, no top pair")
	}
}

func TestHasPairOf(t *testing.T) {
	hole := ParseList("Qs Qd")
	if !HasPairOf(hole, nil, 12) {
		t.Fatalf("pocket queens should be a pair of queens")
	}
	if !HasPairOf(ParseList("Qs 4d"), ParseList("Qh 8c 2s"), 12) {
		t.Fatalf("Q with a Q on board should count")
	}
	if HasPairOf(ParseList("As Kd"), ParseList("Qh Qc 2s"), 12) {
		t.Fatalf("board-only pair should not count as held")
	}
}

func TestDescribe(t *testing.T) {
	hole := ParseList("As Ad")
	board := ParseList("Ah 9c 2d")
	d := Describe(hole, board)
	if d == "" {
		t.Fatalf("expected a description for trip aces")
	}
	if Describe(hole, nil) != "" {
		t.Fatalf("too few cards should give empty description")
	}
}
