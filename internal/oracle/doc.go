// Package oracle implements the price and volatility feeds behind pool
// fee pricing and rebalancing.
//
// Sources:
//   - StaticSource: fixed values for deterministic tests and replay
//   - RandomSource: seeded uniform draws for simulation
//   - RealizedVol: rolling-window estimate from exchange candles
//   - JupiterClient + PricePoller: spot prices from the Jupiter Price API
//   - CandleStream: kline WebSocket feed with automatic reconnection
//
// Pool operations read sources while holding the pool lock, so every
// source serves from cached state and never blocks on the network.
package oracle
