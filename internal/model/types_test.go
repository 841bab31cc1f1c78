package model

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestBin_Contains(t *testing.T) {
	bin := Bin{ID: 1, Lower: d("1.0"), Upper: d("2.0"), Liquidity: d("500000")}

	tests := []struct {
		name  string
		price string
		want  bool
	}{
		{"below lower", "0.999", false},
		{"at lower bound", "1.0", true},
		{"interior", "1.5", true},
		{"just under upper", "1.999999", true},
		{"at upper bound", "2.0", false},
		{"above upper", "2.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bin.Contains(d(tt.price)); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.price, got, tt.want)
			}
		})
	}
}

func TestBin_Width(t *testing.T) {
	bin := Bin{Lower: d("178.42"), Upper: d("180.20")}
	if got := bin.Width(); !got.Equal(d("1.78")) {
		t.Errorf("Width() = %s, want 1.78", got)
	}
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want EventType
	}{
		{"swap", &SwapEvent{}, EventTypeSwap},
		{"liquidity added", &LiquidityEvent{Kind: EventTypeLiquidityAdded}, EventTypeLiquidityAdded},
		{"liquidity removed", &LiquidityEvent{Kind: EventTypeLiquidityRemoved}, EventTypeLiquidityRemoved},
		{"fee accrued", &FeeEvent{Kind: EventTypeFeeAccrued}, EventTypeFeeAccrued},
		{"fee claimed", &FeeEvent{Kind: EventTypeFeeClaimed}, EventTypeFeeClaimed},
		{"rebalance", &RebalanceEvent{}, EventTypeRebalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Type(); got != tt.want {
				t.Errorf("Type() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventMeta_Accessors(t *testing.T) {
	id := uuid.New()
	pool := solana.PublicKey{7}
	at := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	ev := &SwapEvent{
		EventMeta: EventMeta{ID: id, Pool: pool, Seq: 42, At: at},
		BinID:     3,
	}

	if ev.EventID() != id {
		t.Errorf("EventID() = %v, want %v", ev.EventID(), id)
	}
	if ev.PoolAddress() != pool {
		t.Errorf("PoolAddress() = %v, want %v", ev.PoolAddress(), pool)
	}
	if ev.Sequence() != 42 {
		t.Errorf("Sequence() = %d, want 42", ev.Sequence())
	}
	if !ev.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", ev.Time(), at)
	}
}

func TestNoBin(t *testing.T) {
	claim := &FeeEvent{Kind: EventTypeFeeClaimed, BinID: NoBin}
	if claim.BinID != -1 {
		t.Errorf("NoBin = %d, want -1", claim.BinID)
	}
}
