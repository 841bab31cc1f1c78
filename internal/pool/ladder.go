package pool

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/st-techno/DLMM/internal/model"
)

// Ladder builds a contiguous run of geometric bins around an anchor
// price. Bounds grow by (1 + binStep) per bin and the anchor sits at
// the lower edge of the middle bin, so the anchor price always lands
// inside bin count/2. IDs run 0..count-1 from the lowest bin.
func Ladder(anchor, binStep, liquidityPerBin decimal.Decimal, count int) ([]model.Bin, error) {
	if count <= 0 {
		return nil, fmt.Errorf("ladder: count must be positive, got %d", count)
	}
	if !anchor.IsPositive() {
		return nil, fmt.Errorf("ladder: anchor price must be positive, got %s", anchor)
	}
	if !binStep.IsPositive() {
		return nil, fmt.Errorf("ladder: bin step must be positive, got %s", binStep)
	}
	if liquidityPerBin.IsNegative() {
		return nil, ErrNegativeLiquidity
	}

	ratio := decimal.NewFromInt(1).Add(binStep)
	mid := count / 2

	lowers := make([]decimal.Decimal, count)
	lowers[mid] = anchor
	for i := mid + 1; i < count; i++ {
		lowers[i] = lowers[i-1].Mul(ratio)
	}
	for i := mid - 1; i >= 0; i-- {
		lowers[i] = lowers[i+1].Div(ratio)
	}

	bins := make([]model.Bin, count)
	for i := range bins {
		// Each upper bound reuses the next lower bound so the run
		// stays gapless even where division rounded.
		upper := lowers[i].Mul(ratio)
		if i+1 < count {
			upper = lowers[i+1]
		}
		bins[i] = model.Bin{
			ID:        int32(i),
			Lower:     lowers[i],
			Upper:     upper,
			Liquidity: liquidityPerBin,
		}
	}

	return bins, nil
}
