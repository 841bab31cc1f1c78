// Package database provides connection pool management for PostgreSQL.
//
// A single pool backs the event journal tables: swaps, liquidity_events,
// fee_events, and rebalances. See deployments/schema.sql for the schema.
package database
