// Package journal routes pool events into per-type buffers for
// persistence.
//
// Pools emit onto bounded channels and never block on storage. The
// journal consumes every attached stream, dispatches each event by
// concrete type (swap, liquidity, fee, rebalance), and hands it to a
// growable buffer that the matching batch writer drains.
package journal
