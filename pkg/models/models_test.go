package models

import (
	"math"
	"testing"
)

func TestPnlUSDT(t *testing.T) {
	long := &Position{Side: SideLong, Quantity: 0.5, EntryPrice: 100, MarkPrice: 110}
	if got := long.PnlUSDT(); math.Abs(got-5) > 1e-9 {
		t.Errorf("PnlUSDT лонга = %v, ожидалось 5", got)
	}

	short := &Position{Side: SideShort, Quantity: 0.5, EntryPrice: 100, MarkPrice: 110}
	if got := short.PnlUSDT(); math.Abs(got+5) > 1e-9 {
		t.Errorf("PnlUSDT шорта = %v, ожидалось -5", got)
	}

	flat := &Position{Side: SideFlat}
	if got := flat.PnlUSDT(); got != 0 {
		t.Errorf("PnlUSDT без позиции = %v, ожидался 0", got)
	}
}

func TestPnlPercent(t *testing.T) {
	// Маржа 100*0.5/10 = 5 USDT, просадка 5.25 USDT
	long := &Position{Side: SideLong, Quantity: 0.5, EntryPrice: 100, MarkPrice: 89.5, Leverage: 10}
	pnl, ok := long.PnlPercent()
	if !ok {
		t.Fatal("PNL должен быть определен")
	}
	if math.Abs(pnl+105) > 1e-9 {
		t.Errorf("PnlPercent = %v, ожидалось -105", pnl)
	}
}

func TestPnlPercentUndefined(t *testing.T) {
	tests := []struct {
		name     string
		position *Position
	}{
		{"без позиции", &Position{Side: SideFlat}},
		{"нулевое плечо", &Position{Side: SideLong, Quantity: 0.5, EntryPrice: 100, Leverage: 0}},
		{"нулевая стоимость", &Position{Side: SideLong, Quantity: 0, EntryPrice: 100, Leverage: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.position.PnlPercent(); ok {
				t.Error("PNL не должен быть определен")
			}
		})
	}
}
