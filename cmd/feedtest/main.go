// feedtest connects to a live market data feed and prints what the
// oracles would serve to pools.
//
// Usage:
//
//	go run ./cmd/feedtest -mode=stream -url=wss://stream.binance.com:9443/ws/solusdc@kline_1m
//	go run ./cmd/feedtest -mode=jupiter -mint=So11111111111111111111111111111111111111112 -vs=EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/st-techno/DLMM/internal/oracle"
)

func main() {
	mode := flag.String("mode", "stream", "feed to test: stream or jupiter")
	url := flag.String("url", "wss://stream.binance.com:9443/ws/solusdc@kline_1m", "kline stream URL (stream mode)")
	estimator := flag.String("estimator", "atr", "volatility estimator: atr or stddev")
	window := flag.Int("window", 20, "volatility lookback window in candles")
	mint := flag.String("mint", "So11111111111111111111111111111111111111112", "mint to price (jupiter mode)")
	vs := flag.String("vs", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "quote mint (jupiter mode)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	var err error
	switch *mode {
	case "stream":
		err = runStream(ctx, *url, *estimator, *window, logger)
	case "jupiter":
		err = runJupiter(ctx, *mint, *vs, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("feed test failed", "error", err)
		os.Exit(1)
	}
}

// runStream tails a kline WebSocket and prints every closed candle with
// the rolling realized volatility estimate.
func runStream(ctx context.Context, url, estimator string, window int, logger *slog.Logger) error {
	stream := oracle.NewCandleStream(oracle.DefaultStreamConfig(url), logger)
	if err := stream.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer stream.Close()

	realizedCfg := oracle.DefaultRealizedConfig()
	realizedCfg.Estimator = estimator
	realizedCfg.Window = window
	rv := oracle.NewRealizedVol(realizedCfg)

	// Stats printer
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := stream.Stats()
				logger.Info("stats",
					"connected", stream.IsConnected(),
					"ticks", stats.Ticks,
					"candles", stats.Candles,
					"reconnects", stats.Reconnects,
					"samples", rv.Samples(),
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "url", url)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-stream.Errors():
			logger.Warn("stream error", "error", err)
		case candle := <-stream.Candles():
			if !candle.Final {
				continue
			}
			rv.Update(candle)

			vol, err := rv.Volatility()
			if err != nil {
				fmt.Printf("[CANDLE] t=%s o=%.4f h=%.4f l=%.4f c=%.4f v=%.2f vol=warming(%d)\n",
					time.UnixMilli(candle.Time).UTC().Format(time.TimeOnly),
					candle.Open, candle.High, candle.Low, candle.Close, candle.Volume, rv.Samples())
				continue
			}
			fmt.Printf("[CANDLE] t=%s o=%.4f h=%.4f l=%.4f c=%.4f v=%.2f vol=%.6f\n",
				time.UnixMilli(candle.Time).UTC().Format(time.TimeOnly),
				candle.Open, candle.High, candle.Low, candle.Close, candle.Volume, vol)
		}
	}
}

// runJupiter polls the Jupiter Price API and prints each observation.
func runJupiter(ctx context.Context, mint, vs string, logger *slog.Logger) error {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	vsKey, err := solana.PublicKeyFromBase58(vs)
	if err != nil {
		return fmt.Errorf("vs: %w", err)
	}

	client := oracle.NewJupiterClient(oracle.DefaultJupiterURL, oracle.WithLogger(logger))
	poller := oracle.NewPricePoller(oracle.DefaultPollerConfig(), client, mintKey, vsKey, logger)
	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("start poller: %w", err)
	}

	logger.Info("polling started - press Ctrl+C to stop", "mint", mint, "vs", vs)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return poller.Stop(shutdownCtx)
		case <-ticker.C:
			price, err := poller.Price()
			if err != nil {
				logger.Warn("no price", "error", err)
				continue
			}
			stats := poller.Stats()
			fmt.Printf("[PRICE] %s (fetches=%d errors=%d age=%s)\n",
				price, stats.Fetches, stats.Errors, time.Since(stats.LastAt).Round(time.Millisecond))
		}
	}
}
