// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle normalizes external price feeds to 18-decimal fixed-point
// answers. A PriceOracle wraps a single feed with staleness and inversion
// handling; a PriceConverterOracle composes two normalized oracles into a
// synthetic cross-rate. Answers are never persisted: every read recomputes
// from the underlying feed.
package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

// Precision is the fixed-point scale of every normalized answer.
var Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var (
	ErrStalePrice      = errors.New("stale price")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrNoOracle        = errors.New("oracle not set")
	ErrInvalidDecimals = errors.New("feed decimals exceed 18")
	ErrZeroHeartbeat   = errors.New("heartbeat must be non-zero")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Aggregator is the external price feed consumed by a PriceOracle.
type Aggregator interface {
	// LatestRoundData returns the raw feed answer and its update timestamp.
	LatestRoundData() (answer *big.Int, updatedAt uint64, err error)
	// Decimals returns the feed's fixed decimal count.
	Decimals() uint8
}

// Oracle yields an 18-decimal price for the current moment.
type Oracle interface {
	LatestAnswer(now uint64) (*big.Int, error)
}

// PriceOracle normalizes one aggregator feed to 18 decimals.
type PriceOracle struct {
	mu sync.RWMutex

	owner     common.Address
	agg       Aggregator
	isInverse bool
	heartbeat uint64 // seconds
	decimals  uint8  // cached from the aggregator
}

// NewPriceOracle wraps an aggregator feed. Construction fails fast on
// configuration errors: nil feed, zero heartbeat, or decimals above 18.
func NewPriceOracle(owner common.Address, agg Aggregator, isInverse bool, heartbeat uint64) (*PriceOracle, error) {
	if agg == nil {
		return nil, ErrNoOracle
	}
	if heartbeat == 0 {
		return nil, ErrZeroHeartbeat
	}
	decimals := agg.Decimals()
	if decimals > 18 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}
	return &PriceOracle{
		owner:     owner,
		agg:       agg,
		isInverse: isInverse,
		heartbeat: heartbeat,
		decimals:  decimals,
	}, nil
}

// LatestAnswer reads the feed and normalizes it to 18 decimals.
// A reading older than the heartbeat is stale; a non-positive raw price, or
// a zero inverted result, is invalid.
func (o *PriceOracle) LatestAnswer(now uint64) (*big.Int, error) {
	o.mu.RLock()
	agg, isInverse, heartbeat, decimals := o.agg, o.isInverse, o.heartbeat, o.decimals
	o.mu.RUnlock()

	price, updatedAt, err := agg.LatestRoundData()
	if err != nil {
		return nil, err
	}
	if now > updatedAt && now-updatedAt > heartbeat {
		return nil, fmt.Errorf("%w: age %ds, heartbeat %ds", ErrStalePrice, now-updatedAt, heartbeat)
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}

	if !isInverse {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil)
		return new(big.Int).Mul(price, scale), nil
	}

	numerator := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18+int(decimals))), nil)
	answer := numerator.Div(numerator, price)
	if answer.Sign() == 0 {
		return nil, fmt.Errorf("%w: inverse of %s is zero", ErrInvalidPrice, price)
	}
	return answer, nil
}

// SetAggregator replaces the feed. Owner only.
func (o *PriceOracle) SetAggregator(caller common.Address, agg Aggregator) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if caller != o.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	if agg == nil {
		return ErrNoOracle
	}
	decimals := agg.Decimals()
	if decimals > 18 {
		return fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}
	o.agg = agg
	o.decimals = decimals
	return nil
}

// Aggregator returns the wrapped feed.
func (o *PriceOracle) Aggregator() Aggregator {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.agg
}

// IsInverse reports whether the feed is inverted on read.
func (o *PriceOracle) IsInverse() bool {
	return o.isInverse
}

// Heartbeat returns the feed's validity window in seconds.
func (o *PriceOracle) Heartbeat() uint64 {
	return o.heartbeat
}

// Decimals returns the cached feed decimals.
func (o *PriceOracle) Decimals() uint8 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.decimals
}

// PriceConverterOracle composes two normalized oracles into a cross-rate:
// answer = base * quote / 1e18.
type PriceConverterOracle struct {
	mu sync.RWMutex

	owner common.Address
	base  Oracle
	quote Oracle
}

// NewPriceConverterOracle composes two oracle legs. Either leg may be set
// later by the owner, but reads fail until both are present.
func NewPriceConverterOracle(owner common.Address, base, quote Oracle) *PriceConverterOracle {
	return &PriceConverterOracle{owner: owner, base: base, quote: quote}
}

// LatestAnswer returns base*quote/1e18, both legs already 18-decimal.
func (c *PriceConverterOracle) LatestAnswer(now uint64) (*big.Int, error) {
	c.mu.RLock()
	base, quote := c.base, c.quote
	c.mu.RUnlock()

	if base == nil || quote == nil {
		return nil, ErrNoOracle
	}

	baseAnswer, err := base.LatestAnswer(now)
	if err != nil {
		return nil, err
	}
	quoteAnswer, err := quote.LatestAnswer(now)
	if err != nil {
		return nil, err
	}

	answer := new(big.Int).Mul(baseAnswer, quoteAnswer)
	answer.Div(answer, Precision)
	if answer.Sign() == 0 {
		return nil, fmt.Errorf("%w: cross-rate %s * %s truncates to zero", ErrInvalidPrice, baseAnswer, quoteAnswer)
	}
	if answer.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("%w: cross-rate overflows", ErrInvalidPrice)
	}
	return answer, nil
}

// SetBaseOracle replaces the base leg. Owner only.
func (c *PriceConverterOracle) SetBaseOracle(caller common.Address, base Oracle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	c.base = base
	return nil
}

// SetQuoteOracle replaces the quote leg. Owner only.
func (c *PriceConverterOracle) SetQuoteOracle(caller common.Address, quote Oracle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	c.quote = quote
	return nil
}

// BaseOracle returns the base leg.
func (c *PriceConverterOracle) BaseOracle() Oracle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base
}

// QuoteOracle returns the quote leg.
func (c *PriceConverterOracle) QuoteOracle() Oracle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.quote
}
