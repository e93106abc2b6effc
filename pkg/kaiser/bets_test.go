package kaiser

import "testing"

func TestBetBeats(t *testing.T) {
	seven := Bet{Seat: 0, Value: 7, Trump: Spades}
	if !seven.Beats(nil) {
		t.Error("Any bet should beat a nil high bet")
	}

	eight := Bet{Seat: 1, Value: 8, Trump: Clubs}
	if !eight.Beats(&seven) {
		t.Error("8♣ should beat 7♠")
	}
	if seven.Beats(&eight) {
		t.Error("7♠ should not beat 8♣")
	}

	// Equal value: no-trump outranks a suited bet, never the reverse.
	eightNT := Bet{Seat: 2, Value: 8, Trump: NoTrump}
	if !eightNT.Beats(&eight) {
		t.Error("8NT should beat 8♣")
	}
	if eight.Beats(&eightNT) {
		t.Error("8♣ should not beat 8NT")
	}
	sameNT := Bet{Seat: 3, Value: 8, Trump: NoTrump}
	if sameNT.Beats(&eightNT) {
		t.Error("8NT should not beat 8NT")
	}

	pass := Bet{Seat: 0, Pass: true}
	if pass.Beats(&seven) {
		t.Error("A pass never beats")
	}
}

func TestBetValid(t *testing.T) {
	cases := []struct {
		bet  Bet
		want bool
	}{
		{Bet{Seat: 0, Pass: true}, true},
		{Bet{Seat: 0, Value: 7, Trump: Hearts}, true},
		{Bet{Seat: 0, Value: 12, Trump: NoTrump}, true},
		{Bet{Seat: 0, Value: 6, Trump: Hearts}, false},
		{Bet{Seat: 0, Value: 13, Trump: Hearts}, false},
		{Bet{Seat: 0, Value: 9}, false},
		{Bet{Seat: -1, Pass: true}, false},
		{Bet{Seat: 4, Value: 9, Trump: Hearts}, false},
	}
	for _, tc := range cases {
		if got := tc.bet.Valid(); got != tc.want {
			t.Errorf("Valid(%v) = %v, want %v", tc.bet, got, tc.want)
		}
	}
}

func TestLegalBetsNeverEmpty(t *testing.T) {
	// Even against the maximum bet, passing remains legal.
	top := Bet{Seat: 0, Value: MaxBid, Trump: NoTrump}
	legal := LegalBets(&top, 1)
	if len(legal) != 1 {
		t.Fatalf("Expected only pass against %v, got %d options", top, len(legal))
	}
	if !legal[0].Pass {
		t.Error("Remaining option should be a pass")
	}
}

func TestLegalBetsOutrankOnly(t *testing.T) {
	high := Bet{Seat: 0, Value: 9, Trump: Diamonds}
	for _, b := range LegalBets(&high, 2) {
		if b.Pass {
			continue
		}
		if !b.Beats(&high) {
			t.Errorf("LegalBets returned %v which does not outrank %v", b, high)
		}
		if b.Seat != 2 {
			t.Errorf("LegalBets returned bet for wrong seat: %v", b)
		}
	}
}

func TestHighBet(t *testing.T) {
	if HighBet(nil) != nil {
		t.Error("Empty sequence should have no high bet")
	}

	// Three passes and one 9♦: the lone bet is the contract candidate.
	bets := []Bet{
		{Seat: 1, Pass: true},
		{Seat: 2, Value: 9, Trump: Diamonds},
		{Seat: 3, Pass: true},
		{Seat: 0, Pass: true},
	}
	high := HighBet(bets)
	if high == nil || high.Seat != 2 || high.Value != 9 || high.Trump != Diamonds {
		t.Errorf("Expected 9♦ from seat 2 as high bet, got %v", high)
	}

	allPass := []Bet{
		{Seat: 1, Pass: true}, {Seat: 2, Pass: true},
		{Seat: 3, Pass: true}, {Seat: 0, Pass: true},
	}
	if HighBet(allPass) != nil {
		t.Error("All-pass sequence should have no high bet")
	}
}
