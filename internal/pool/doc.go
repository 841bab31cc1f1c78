// Package pool implements the DLMM liquidity engine.
//
// The engine:
//   - Tracks discrete price bins and the share books behind them
//   - Fills swaps against the covering bin with volatility-scaled fees
//   - Accrues fees pro rata to share holders, claimable per provider
//   - Applies strategy rebalance plans atomically under the pool lock
//   - Publishes an ordered, non-blocking event stream for the journal
//
// A Service registers the live pools and adapts them for the rebalance
// scheduler and debug endpoints.
package pool
