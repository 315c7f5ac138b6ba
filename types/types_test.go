package types

import "testing"

func TestSignalIsActionable(t *testing.T) {
	actionable := []Signal{SignalBuy, SignalSell, SignalCloseLong, SignalCloseShort}
	for _, s := range actionable {
		if !s.IsActionable() {
			t.Fatalf("%s should be actionable", s)
		}
	}
	if SignalHold.IsActionable() {
		t.Fatal("hold must never be actionable")
	}
}

func TestOrderSideOpposite(t *testing.T) {
	if OrderSideBuy.Opposite() != OrderSideSell {
		t.Fatal("buy should flip to sell")
	}
	if OrderSideSell.Opposite() != OrderSideBuy {
		t.Fatal("sell should flip to buy")
	}
}

func TestSeriesAccessors(t *testing.T) {
	var empty Series
	if empty.LastClose() != 0 {
		t.Fatal("empty series should report zero close")
	}
	s := Series{{Close: 1}, {Close: 2}, {Close: 3}}
	if s.LastClose() != 3 {
		t.Fatalf("got %v", s.LastClose())
	}
	closes := s.Closes()
	if len(closes) != 3 || closes[0] != 1 || closes[2] != 3 {
		t.Fatalf("unexpected closes %v", closes)
	}
}
