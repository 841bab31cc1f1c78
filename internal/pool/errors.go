package pool

import "errors"

// Errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrNegativeLiquidity     = errors.New("liquidity cannot be negative")
	ErrNoBinForPrice         = errors.New("no bin covers price")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity in bin")
	ErrFeeExceedsAmount      = errors.New("fee exceeds swap amount")
	ErrVolatilityUnavailable = errors.New("volatility unavailable")
	ErrUnknownBin            = errors.New("unknown bin")
	ErrUnknownProvider       = errors.New("unknown provider")
	ErrInsufficientShares    = errors.New("insufficient shares in bin")
	ErrDuplicateBin          = errors.New("duplicate bin id")
	ErrBinOverlap            = errors.New("bin overlaps existing bin")
	ErrInvalidBounds         = errors.New("bin bounds invalid")
	ErrInvalidMove           = errors.New("invalid rebalance move")
	ErrPoolExists            = errors.New("pool already exists")
	ErrPoolNotFound          = errors.New("pool not found")
)
