// Package model defines shared data types used across the DLMM liquidity
// framework.
//
// All types mirror the database schema defined in deployments/schema.sql.
//
// Conventions:
//   - Amounts (liquidity, shares, fees, prices): decimal.Decimal
//   - Volatility: float64 (dimensionless estimate, e.g. 0.04 = 4%)
//   - Timestamps: int64 microseconds since Unix epoch in journal rows,
//     time.Time in memory
//   - IDs: int32 for bins, solana.PublicKey for pools and providers,
//     uuid.UUID for events
package model
