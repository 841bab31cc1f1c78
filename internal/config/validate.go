package config

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Journal.BatchSize < 1 {
		return errors.New("journal.batch_size must be >= 1")
	}
	if c.Journal.BufferSize < 1 {
		return errors.New("journal.buffer_size must be >= 1")
	}

	if err := c.Oracle.validate(); err != nil {
		return err
	}

	if len(c.Pools) == 0 {
		return errors.New("at least one pool is required")
	}
	for i := range c.Pools {
		if err := c.Pools[i].validate(fmt.Sprintf("pools[%d]", i)); err != nil {
			return err
		}
	}

	if err := c.Strategy.validate(); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (o *OracleConfig) validate() error {
	switch o.Volatility.Mode {
	case "static":
		if o.Volatility.Static < 0 {
			return errors.New("oracle.volatility.static must be >= 0")
		}
	case "random":
		if o.Volatility.Random.Min < 0 {
			return errors.New("oracle.volatility.random.min must be >= 0")
		}
		if o.Volatility.Random.Max <= o.Volatility.Random.Min {
			return errors.New("oracle.volatility.random.max must exceed min")
		}
	case "stream":
		if o.Volatility.Stream.URL == "" {
			return errors.New("oracle.volatility.stream.url is required")
		}
		if e := o.Volatility.Stream.Estimator; e != "atr" && e != "stddev" {
			return fmt.Errorf("oracle.volatility.stream.estimator must be atr or stddev, got %q", e)
		}
		if o.Volatility.Stream.Window < 2 {
			return errors.New("oracle.volatility.stream.window must be >= 2")
		}
	default:
		return fmt.Errorf("oracle.volatility.mode must be one of static, random, stream, got %q", o.Volatility.Mode)
	}

	switch o.Price.Mode {
	case "none":
	case "static":
		px, err := decimal.NewFromString(o.Price.Static)
		if err != nil {
			return fmt.Errorf("oracle.price.static is not a valid decimal: %v", err)
		}
		if !px.IsPositive() {
			return errors.New("oracle.price.static must be positive")
		}
	case "jupiter":
		if _, err := solana.PublicKeyFromBase58(o.Price.Jupiter.Mint); err != nil {
			return fmt.Errorf("oracle.price.jupiter.mint is not a valid address: %v", err)
		}
		if _, err := solana.PublicKeyFromBase58(o.Price.Jupiter.VsToken); err != nil {
			return fmt.Errorf("oracle.price.jupiter.vs_token is not a valid address: %v", err)
		}
	default:
		return fmt.Errorf("oracle.price.mode must be one of none, static, jupiter, got %q", o.Price.Mode)
	}

	return nil
}

func (p *PoolConfig) validate(prefix string) error {
	if _, err := solana.PublicKeyFromBase58(p.Address); err != nil {
		return fmt.Errorf("%s.address is not a valid address: %v", prefix, err)
	}
	if _, err := solana.PublicKeyFromBase58(p.BaseMint); err != nil {
		return fmt.Errorf("%s.base_mint is not a valid address: %v", prefix, err)
	}
	if _, err := solana.PublicKeyFromBase58(p.QuoteMint); err != nil {
		return fmt.Errorf("%s.quote_mint is not a valid address: %v", prefix, err)
	}

	if err := requirePositiveDecimal(p.BaseFactor, prefix+".base_factor"); err != nil {
		return err
	}
	if err := requirePositiveDecimal(p.BinStep, prefix+".bin_step"); err != nil {
		return err
	}
	minFee, err := decimal.NewFromString(p.MinFee)
	if err != nil {
		return fmt.Errorf("%s.min_fee is not a valid decimal: %v", prefix, err)
	}
	if minFee.IsNegative() {
		return fmt.Errorf("%s.min_fee must be >= 0", prefix)
	}

	hasBins := len(p.Bins) > 0
	hasLadder := p.Ladder != nil
	if hasBins == hasLadder {
		return fmt.Errorf("%s: exactly one of bins or ladder must be set", prefix)
	}

	for j := range p.Bins {
		if err := p.Bins[j].validate(fmt.Sprintf("%s.bins[%d]", prefix, j)); err != nil {
			return err
		}
	}

	if hasLadder {
		if err := requirePositiveDecimal(p.Ladder.AnchorPrice, prefix+".ladder.anchor_price"); err != nil {
			return err
		}
		if p.Ladder.Count < 1 {
			return fmt.Errorf("%s.ladder.count must be >= 1", prefix)
		}
		liq, err := decimal.NewFromString(p.Ladder.LiquidityPerBin)
		if err != nil {
			return fmt.Errorf("%s.ladder.liquidity_per_bin is not a valid decimal: %v", prefix, err)
		}
		if liq.IsNegative() {
			return fmt.Errorf("%s.ladder.liquidity_per_bin must be >= 0", prefix)
		}
	}

	return nil
}

func (b *BinConfig) validate(prefix string) error {
	lower, err := decimal.NewFromString(b.Lower)
	if err != nil {
		return fmt.Errorf("%s.lower is not a valid decimal: %v", prefix, err)
	}
	upper, err := decimal.NewFromString(b.Upper)
	if err != nil {
		return fmt.Errorf("%s.upper is not a valid decimal: %v", prefix, err)
	}
	if upper.Cmp(lower) <= 0 {
		return fmt.Errorf("%s.upper must exceed lower", prefix)
	}
	liq, err := decimal.NewFromString(b.Liquidity)
	if err != nil {
		return fmt.Errorf("%s.liquidity is not a valid decimal: %v", prefix, err)
	}
	if liq.IsNegative() {
		return fmt.Errorf("%s.liquidity must be >= 0", prefix)
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if s.Name != "skim_to_widest" && s.Name != "center_on_price" {
		return fmt.Errorf("strategy.name must be skim_to_widest or center_on_price, got %q", s.Name)
	}
	if s.Concurrency < 1 {
		return errors.New("strategy.concurrency must be >= 1")
	}
	minLiquidity, err := decimal.NewFromString(s.MinLiquidity)
	if err != nil {
		return fmt.Errorf("strategy.min_liquidity is not a valid decimal: %v", err)
	}
	if minLiquidity.IsNegative() {
		return errors.New("strategy.min_liquidity must be >= 0")
	}
	fraction, err := decimal.NewFromString(s.Fraction)
	if err != nil {
		return fmt.Errorf("strategy.fraction is not a valid decimal: %v", err)
	}
	if !fraction.IsPositive() || fraction.Cmp(decimal.NewFromInt(1)) > 0 {
		return errors.New("strategy.fraction must be in (0, 1]")
	}
	return nil
}

func requirePositiveDecimal(s, field string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%s is not a valid decimal: %v", field, err)
	}
	if !d.IsPositive() {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}
