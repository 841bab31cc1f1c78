package strategy

import "github.com/shopspring/decimal"

// CenterOnPrice concentrates liquidity into the bin containing the
// current mid price: every other bin contributes Fraction of its
// liquidity to the active bin.
type CenterOnPrice struct {
	Fraction decimal.Decimal // Share of each other bin to move
}

// NewCenterOnPrice returns the strategy with its production default of
// moving 10% per cycle.
func NewCenterOnPrice() CenterOnPrice {
	return CenterOnPrice{Fraction: decimal.RequireFromString("0.1")}
}

func (CenterOnPrice) Name() string { return "center_on_price" }

// Plan is a no-op when the pool has no price source or the mid price
// falls outside every bin.
func (c CenterOnPrice) Plan(v View) []Move {
	active, ok := v.ActiveBin()
	if !ok {
		return nil
	}

	var moves []Move
	for _, b := range v.Bins {
		if b.ID == active.ID {
			continue
		}
		amount := b.Liquidity.Mul(c.Fraction)
		if !amount.IsPositive() {
			continue
		}
		moves = append(moves, Move{FromBin: b.ID, ToBin: active.ID, Amount: amount})
	}
	return moves
}
