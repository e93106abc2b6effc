package kaiser

import (
	"encoding/json"
	"testing"
)

func TestCardStrengthOrdering(t *testing.T) {
	for i := 1; i < len(Ranks); i++ {
		lo := NewCard(Hearts, Ranks[i-1])
		hi := NewCard(Hearts, Ranks[i])
		if lo.Strength() >= hi.Strength() {
			t.Errorf("Expected %v weaker than %v", lo, hi)
		}
	}
}

func TestCardJSONRoundTrip(t *testing.T) {
	card := NewCard(Diamonds, Ten)
	data, err := json.Marshal(card)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Card
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != card {
		t.Errorf("Round trip changed card: %v != %v", decoded, card)
	}
}

func TestCardJSONSuitAliases(t *testing.T) {
	var card Card
	if err := json.Unmarshal([]byte(`{"suit":"hearts","rank":"A"}`), &card); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if card != NewCard(Hearts, Ace) {
		t.Errorf("Expected A♥, got %v", card)
	}

	if err := json.Unmarshal([]byte(`{"suit":"x","rank":"A"}`), &card); err == nil {
		t.Error("Expected error for invalid suit")
	}
	if err := json.Unmarshal([]byte(`{"suit":"♠","rank":"5"}`), &card); err == nil {
		t.Error("Expected error for rank outside the 36-card domain")
	}
}

func TestCounterCards(t *testing.T) {
	if BonusCard.Suit() != Hearts || BonusCard.Rank() != Six {
		t.Errorf("Bonus card should be 6♥, got %v", BonusCard)
	}
	if PenaltyCard.Suit() != Spades || PenaltyCard.Rank() != Six {
		t.Errorf("Penalty card should be 6♠, got %v", PenaltyCard)
	}
}
