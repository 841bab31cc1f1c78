package strategy

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/st-techno/DLMM/internal/model"
)

// Strategy plans liquidity moves for a pool.
type Strategy interface {
	// Name identifies the strategy in rebalance events and logs.
	Name() string

	// Plan returns the moves to apply. It runs under the pool lock
	// against a consistent View and must not call back into the pool.
	// A nil or empty plan means no rebalance.
	Plan(v View) []Move
}

// Move transfers liquidity between two bins of the same pool.
type Move struct {
	FromBin int32
	ToBin   int32
	Amount  decimal.Decimal
}

// View is the read-only pool snapshot handed to strategies.
type View struct {
	Pool       solana.PublicKey
	Bins       []model.Bin      // Sorted by lower bound
	Volatility float64          // Current estimate from the pool's source
	Mid        *decimal.Decimal // Current mid price, nil without a price source
}

// WidestBin returns the bin covering the largest price range. Ties
// resolve to the lowest bin ID.
func (v View) WidestBin() (model.Bin, bool) {
	if len(v.Bins) == 0 {
		return model.Bin{}, false
	}

	widest := v.Bins[0]
	for _, b := range v.Bins[1:] {
		switch b.Width().Cmp(widest.Width()) {
		case 1:
			widest = b
		case 0:
			if b.ID < widest.ID {
				widest = b
			}
		}
	}
	return widest, true
}

// ActiveBin returns the bin containing the mid price.
func (v View) ActiveBin() (model.Bin, bool) {
	if v.Mid == nil {
		return model.Bin{}, false
	}
	for _, b := range v.Bins {
		if b.Contains(*v.Mid) {
			return b, true
		}
	}
	return model.Bin{}, false
}
