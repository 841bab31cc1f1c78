package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/st-techno/DLMM/internal/config"
	"github.com/st-techno/DLMM/internal/database"
	"github.com/st-techno/DLMM/internal/journal"
	"github.com/st-techno/DLMM/internal/model"
	"github.com/st-techno/DLMM/internal/oracle"
	"github.com/st-techno/DLMM/internal/pool"
	"github.com/st-techno/DLMM/internal/strategy"
	"github.com/st-techno/DLMM/internal/version"
	"github.com/st-techno/DLMM/internal/writer"
)

// component is anything with writer-style lifecycle methods.
type component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "configs/dlmmd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting dlmmd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"pools", len(cfg.Pools),
		"strategy", cfg.Strategy.Name,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	db, err := database.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database connected")

	// Oracles
	volSource, stopVol, err := buildVolatilitySource(ctx, cfg.Oracle.Volatility, logger)
	if err != nil {
		logger.Error("failed to build volatility source", "error", err)
		os.Exit(1)
	}

	priceSource, stopPrice, err := buildPriceSource(ctx, cfg.Oracle.Price, logger)
	if err != nil {
		logger.Error("failed to build price source", "error", err)
		os.Exit(1)
	}

	logger.Info("oracles ready",
		"volatility_mode", cfg.Oracle.Volatility.Mode,
		"price_mode", cfg.Oracle.Price.Mode,
	)

	// Event journal
	journalCfg := journal.DefaultConfig()
	if cfg.Journal.BufferSize > 0 {
		journalCfg = journal.Config{
			SwapBufferSize:      cfg.Journal.BufferSize,
			LiquidityBufferSize: cfg.Journal.BufferSize,
			FeeBufferSize:       cfg.Journal.BufferSize,
			RebalanceBufferSize: cfg.Journal.BufferSize,
		}
	}
	j := journal.New(journalCfg, logger)

	// Pool registry
	svc := pool.NewService(logger)
	for i := range cfg.Pools {
		spec, err := buildPoolSpec(cfg.Pools[i])
		if err != nil {
			logger.Error("invalid pool config", "index", i, "error", err)
			os.Exit(1)
		}

		p, err := svc.CreatePool(spec, volSource, priceSource)
		if err != nil {
			logger.Error("failed to create pool", "index", i, "error", err)
			os.Exit(1)
		}

		// Journal must see the channel before the pool emits.
		j.Attach(p.Events())
	}

	if err := j.Start(ctx); err != nil {
		logger.Error("failed to start journal", "error", err)
		os.Exit(1)
	}

	// Batch writers
	writerCfg := writer.WriterConfig{
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
	}
	bufs := j.Buffers()
	writers := []component{
		writer.NewSwapWriter(writerCfg, bufs.Swaps, db, logger),
		writer.NewLiquidityWriter(writerCfg, bufs.Liquidity, db, logger),
		writer.NewFeeWriter(writerCfg, bufs.Fees, db, logger),
		writer.NewRebalanceWriter(writerCfg, bufs.Rebalances, db, logger),
	}
	for _, w := range writers {
		if err := w.Start(ctx); err != nil {
			logger.Error("failed to start writer", "error", err)
			os.Exit(1)
		}
	}

	// Rebalance scheduler
	strat, err := buildStrategy(cfg.Strategy)
	if err != nil {
		logger.Error("failed to build strategy", "error", err)
		os.Exit(1)
	}

	schedCfg := strategy.SchedulerConfig{
		Interval:    cfg.Strategy.Interval,
		Concurrency: cfg.Strategy.Concurrency,
	}
	sched := strategy.NewScheduler(schedCfg, strat, svc, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: createHealthHandler(db, svc, j, logger),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Server.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("dlmmd running",
		"instance_id", cfg.Instance.ID,
		"pools", len(cfg.Pools),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop producers first so the journal and writers can drain.
	sched.Stop(shutdownCtx)
	j.Stop(shutdownCtx)
	for _, w := range writers {
		w.Stop(shutdownCtx)
	}
	stopPrice(shutdownCtx)
	stopVol(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	logger.Info("dlmmd stopped")
}

// buildVolatilitySource constructs the volatility oracle selected by config.
// The returned stop function tears down any background feed.
func buildVolatilitySource(ctx context.Context, cfg config.VolatilityConfig, logger *slog.Logger) (oracle.VolatilitySource, func(context.Context), error) {
	noop := func(context.Context) {}

	switch cfg.Mode {
	case "static":
		return oracle.NewStatic(cfg.Static, decimal.Zero), noop, nil

	case "random":
		return oracle.NewRandom(cfg.Random.Min, cfg.Random.Max, cfg.Random.Seed), noop, nil

	case "stream":
		stream := oracle.NewCandleStream(oracle.DefaultStreamConfig(cfg.Stream.URL), logger)
		if err := stream.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connect candle stream: %w", err)
		}

		realizedCfg := oracle.DefaultRealizedConfig()
		realizedCfg.Estimator = cfg.Stream.Estimator
		realizedCfg.Window = cfg.Stream.Window
		realizedCfg.MaxStale = cfg.Stream.MaxStale
		realizedCfg.Annualize = cfg.Stream.Annualize
		if cfg.Stream.PeriodsPerYear > 0 {
			realizedCfg.PeriodsPerYear = cfg.Stream.PeriodsPerYear
		}
		rv := oracle.NewRealizedVol(realizedCfg)

		go func() {
			for candle := range stream.Candles() {
				rv.Update(candle)
			}
		}()

		stop := func(context.Context) {
			stream.Close()
		}
		return rv, stop, nil

	default:
		return nil, nil, fmt.Errorf("unknown volatility mode %q", cfg.Mode)
	}
}

// buildPriceSource constructs the mid price oracle selected by config.
// Mode "none" returns a nil source; pools then run without a mid price.
func buildPriceSource(ctx context.Context, cfg config.PriceConfig, logger *slog.Logger) (oracle.PriceSource, func(context.Context), error) {
	noop := func(context.Context) {}

	switch cfg.Mode {
	case "none":
		return nil, noop, nil

	case "static":
		px, err := decimal.NewFromString(cfg.Static)
		if err != nil {
			return nil, nil, fmt.Errorf("oracle.price.static: %w", err)
		}
		return oracle.NewStatic(0, px), noop, nil

	case "jupiter":
		mint, err := solana.PublicKeyFromBase58(cfg.Jupiter.Mint)
		if err != nil {
			return nil, nil, fmt.Errorf("oracle.price.jupiter.mint: %w", err)
		}
		vsToken, err := solana.PublicKeyFromBase58(cfg.Jupiter.VsToken)
		if err != nil {
			return nil, nil, fmt.Errorf("oracle.price.jupiter.vs_token: %w", err)
		}

		client := oracle.NewJupiterClient(cfg.Jupiter.URL,
			oracle.WithTimeout(cfg.Jupiter.Timeout),
			oracle.WithRetries(cfg.Jupiter.MaxRetries, time.Second),
			oracle.WithLogger(logger),
		)

		pollerCfg := oracle.PollerConfig{
			Interval:   cfg.Jupiter.Interval,
			Timeout:    cfg.Jupiter.Timeout,
			StaleAfter: cfg.Jupiter.StaleAfter,
		}
		poller := oracle.NewPricePoller(pollerCfg, client, mint, vsToken, logger)
		if err := poller.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("start price poller: %w", err)
		}

		stop := func(ctx context.Context) {
			poller.Stop(ctx)
		}
		return poller, stop, nil

	default:
		return nil, nil, fmt.Errorf("unknown price mode %q", cfg.Mode)
	}
}

// buildPoolSpec parses one pool config into a pool.Spec.
func buildPoolSpec(pc config.PoolConfig) (pool.Spec, error) {
	addr, err := parseKey(pc.Address, "address")
	if err != nil {
		return pool.Spec{}, err
	}
	baseMint, err := parseKey(pc.BaseMint, "base_mint")
	if err != nil {
		return pool.Spec{}, err
	}
	quoteMint, err := parseKey(pc.QuoteMint, "quote_mint")
	if err != nil {
		return pool.Spec{}, err
	}
	baseFactor, err := parseDecimal(pc.BaseFactor, "base_factor")
	if err != nil {
		return pool.Spec{}, err
	}
	binStep, err := parseDecimal(pc.BinStep, "bin_step")
	if err != nil {
		return pool.Spec{}, err
	}
	minFee, err := parseDecimal(pc.MinFee, "min_fee")
	if err != nil {
		return pool.Spec{}, err
	}

	params := model.PoolParams{
		Address:    addr,
		BaseMint:   baseMint,
		QuoteMint:  quoteMint,
		BaseFactor: baseFactor,
		BinStep:    binStep,
		MinFee:     minFee,
	}

	var bins []model.Bin
	if pc.Ladder != nil {
		anchor, err := parseDecimal(pc.Ladder.AnchorPrice, "ladder.anchor_price")
		if err != nil {
			return pool.Spec{}, err
		}
		perBin, err := parseDecimal(pc.Ladder.LiquidityPerBin, "ladder.liquidity_per_bin")
		if err != nil {
			return pool.Spec{}, err
		}
		bins, err = pool.Ladder(anchor, binStep, perBin, pc.Ladder.Count)
		if err != nil {
			return pool.Spec{}, err
		}
	} else {
		for _, bc := range pc.Bins {
			lower, err := parseDecimal(bc.Lower, "bin.lower")
			if err != nil {
				return pool.Spec{}, err
			}
			upper, err := parseDecimal(bc.Upper, "bin.upper")
			if err != nil {
				return pool.Spec{}, err
			}
			liquidity, err := parseDecimal(bc.Liquidity, "bin.liquidity")
			if err != nil {
				return pool.Spec{}, err
			}
			bins = append(bins, model.Bin{ID: bc.ID, Lower: lower, Upper: upper, Liquidity: liquidity})
		}
	}

	return pool.Spec{Params: params, Bins: bins}, nil
}

// buildStrategy constructs the rebalance strategy selected by config.
func buildStrategy(cfg config.StrategyConfig) (strategy.Strategy, error) {
	fraction, err := parseDecimal(cfg.Fraction, "strategy.fraction")
	if err != nil {
		return nil, err
	}

	switch cfg.Name {
	case "skim_to_widest":
		minLiquidity, err := parseDecimal(cfg.MinLiquidity, "strategy.min_liquidity")
		if err != nil {
			return nil, err
		}
		return strategy.SkimToWidest{MinLiquidity: minLiquidity, Fraction: fraction}, nil

	case "center_on_price":
		return strategy.CenterOnPrice{Fraction: fraction}, nil

	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Name)
	}
}

func parseKey(s, field string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", field, err)
	}
	return key, nil
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(db *pgxpool.Pool, svc *pool.Service, j *journal.Journal, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check database
		if err := db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		// Check pool registry
		stats := svc.Stats()
		health.Components["pools"] = map[string]interface{}{
			"count":          stats.Pools,
			"liquidity":      stats.TotalLiquidity,
			"events_emitted": stats.EventsEmitted,
			"events_dropped": stats.EventsDropped,
		}
		if stats.Pools == 0 {
			health.Status = "degraded"
		}

		health.Components["journal"] = j.Stats()

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/pools", func(w http.ResponseWriter, r *http.Request) {
		pools := svc.List()
		stats := make([]pool.PoolStats, 0, len(pools))
		for _, p := range pools {
			stats = append(stats, p.Stats())
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count": len(stats),
			"pools": stats,
		})
	})

	mux.HandleFunc("/debug/provider", func(w http.ResponseWriter, r *http.Request) {
		poolKey, err := solana.PublicKeyFromBase58(r.URL.Query().Get("pool"))
		if err != nil {
			http.Error(w, "invalid pool address", http.StatusBadRequest)
			return
		}
		provider, err := solana.PublicKeyFromBase58(r.URL.Query().Get("address"))
		if err != nil {
			http.Error(w, "invalid provider address", http.StatusBadRequest)
			return
		}

		p, err := svc.Get(poolKey)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		summary, err := p.ProviderSummary(provider)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summary)
	})

	return mux
}
