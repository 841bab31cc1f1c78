package strategy

import "github.com/shopspring/decimal"

// SkimToWidest moves a fraction of liquidity from every bin holding more
// than MinLiquidity into the widest bin. Wide bins absorb the most price
// movement, so reserve depth concentrates where volatile tape lands.
type SkimToWidest struct {
	MinLiquidity decimal.Decimal // Bins at or below this are left alone
	Fraction     decimal.Decimal // Share of each contributing bin to move
}

// NewSkimToWidest returns the strategy with production defaults: skim
// 10% from every bin above 100000.
func NewSkimToWidest() SkimToWidest {
	return SkimToWidest{
		MinLiquidity: decimal.NewFromInt(100_000),
		Fraction:     decimal.RequireFromString("0.1"),
	}
}

func (SkimToWidest) Name() string { return "skim_to_widest" }

func (s SkimToWidest) Plan(v View) []Move {
	widest, ok := v.WidestBin()
	if !ok {
		return nil
	}

	var moves []Move
	for _, b := range v.Bins {
		if b.ID == widest.ID {
			continue
		}
		if b.Liquidity.Cmp(s.MinLiquidity) <= 0 {
			continue
		}
		amount := b.Liquidity.Mul(s.Fraction)
		if !amount.IsPositive() {
			continue
		}
		moves = append(moves, Move{FromBin: b.ID, ToBin: widest.ID, Amount: amount})
	}
	return moves
}
