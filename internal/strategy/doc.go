// Package strategy defines pluggable rebalancing strategies and the
// scheduler that runs them.
//
// Built-in strategies:
//   - SkimToWidest: skims a fraction of every deep bin into the widest bin
//   - CenterOnPrice: concentrates liquidity into the bin at the mid price
//
// A Strategy plans moves against a read-only View; the pool validates
// and applies the plan atomically. The Scheduler runs one strategy
// across every registered pool on a fixed interval.
package strategy
