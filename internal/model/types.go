package model

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Pool Types
// -----------------------------------------------------------------------------

// Bin is one discrete price range of a liquidity pool. A bin covers
// [Lower, Upper) and holds the pooled liquidity deposited into that range.
type Bin struct {
	ID        int32           // Bin identifier, unique within a pool
	Lower     decimal.Decimal // Inclusive lower price bound
	Upper     decimal.Decimal // Exclusive upper price bound
	Liquidity decimal.Decimal // Pooled liquidity currently in the bin
}

// Contains reports whether price falls within [Lower, Upper).
func (b Bin) Contains(price decimal.Decimal) bool {
	return price.Cmp(b.Lower) >= 0 && price.Cmp(b.Upper) < 0
}

// Width returns the price span covered by the bin.
func (b Bin) Width() decimal.Decimal {
	return b.Upper.Sub(b.Lower)
}

// PoolParams holds the immutable parameters of a pool.
type PoolParams struct {
	Address    solana.PublicKey // On-chain pool address (identity key)
	BaseMint   solana.PublicKey // Mint of the base token
	QuoteMint  solana.PublicKey // Mint of the quote token
	BaseFactor decimal.Decimal  // Base fee factor, scaled by BinStep
	BinStep    decimal.Decimal  // Relative width of one bin (e.g. 0.05 = 5%)
	MinFee     decimal.Decimal  // Floor applied to every computed fee
}

// SwapResult describes the outcome of a filled swap.
type SwapResult struct {
	BinID      int32           // Bin the swap was filled against
	Filled     decimal.Decimal // Amount taken from the bin
	Fee        decimal.Decimal // Fee charged to the aggressor
	Received   decimal.Decimal // Filled minus Fee
	Volatility float64         // Volatility estimate the fee was priced with
}

// ProviderSummary is a point-in-time view of one liquidity provider.
type ProviderSummary struct {
	Address     solana.PublicKey          // Provider wallet
	TotalShares decimal.Decimal           // Shares across all bins
	Positions   map[int32]decimal.Decimal // Shares per bin
	Rewards     decimal.Decimal           // Accrued, unclaimed fee rewards
}
