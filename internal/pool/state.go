package pool

import (
	"bytes"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/st-techno/DLMM/internal/model"
)

// binState is one bin plus its share book. Shares mint 1:1 against
// deposited liquidity and only burn on withdrawal; swaps deplete bin
// liquidity without touching shares.
type binState struct {
	bin    model.Bin
	shares map[solana.PublicKey]decimal.Decimal
}

func newBinState(b model.Bin) *binState {
	return &binState{
		bin:    b,
		shares: make(map[solana.PublicKey]decimal.Decimal),
	}
}

// adjustLiquidity applies a delta, rejecting any change that would
// drive the bin negative.
func (bs *binState) adjustLiquidity(delta decimal.Decimal) error {
	next := bs.bin.Liquidity.Add(delta)
	if next.IsNegative() {
		return ErrNegativeLiquidity
	}
	bs.bin.Liquidity = next
	return nil
}

// totalShares sums the share book.
func (bs *binState) totalShares() decimal.Decimal {
	total := decimal.Zero
	for _, s := range bs.shares {
		total = total.Add(s)
	}
	return total
}

// holders returns the share holders in address order, so fee accrual
// emits events deterministically.
func (bs *binState) holders() []solana.PublicKey {
	addrs := make([]solana.PublicKey, 0, len(bs.shares))
	for a := range bs.shares {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	return addrs
}

// account tracks one liquidity provider across bins. Accounts are
// created on first deposit and persist after a full exit so unclaimed
// rewards stay claimable.
type account struct {
	address     solana.PublicKey
	totalShares decimal.Decimal
	positions   map[int32]decimal.Decimal // bin ID -> shares
	rewards     decimal.Decimal
}

func newAccount(addr solana.PublicKey) *account {
	return &account{
		address:   addr,
		positions: make(map[int32]decimal.Decimal),
	}
}
