// Package writer implements batch writers for all journaled event types.
//
// Writers:
//   - Swap writer (PostgreSQL)
//   - Liquidity writer (PostgreSQL)
//   - Fee writer (PostgreSQL)
//   - Rebalance writer (PostgreSQL)
//
// All writers use append-only semantics (never update, only insert) and
// deduplicate on event ID, so replaying a pool's event stream is safe.
// Decimal amounts are stored as numeric to keep exact precision.
package writer
