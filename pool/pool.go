// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements the oracle-priced liquidity pool backing fast
// stakes. Unlike a ratio-priced AMM, swaps are priced from an external
// oracle; the pool holds the receipt asset and keeps an explicit ledger of
// the base asset accumulated from swaps, which the sender later migrates to
// the execution chain.
package pool

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/liquidstake/oracle"
	"github.com/luxfi/liquidstake/token"
)

var (
	ErrOnlySender            = errors.New("caller is not the sender")
	ErrOnlyOwner             = errors.New("caller is not the owner")
	ErrZeroAmountIn          = errors.New("zero amount in")
	ErrOracleNotSet          = errors.New("oracle not set")
	ErrPriceDecreased        = errors.New("price decreased below last swap price")
	ErrInsufficientAmountOut = errors.New("insufficient amount out")
	ErrInsufficientTokenOut  = errors.New("insufficient token out balance")
	ErrInsufficientTokenIn   = errors.New("insufficient token in reserve")
	ErrCannotPullTokenOut    = errors.New("cannot pull token out")
	ErrCannotSweepPoolToken  = errors.New("cannot sweep pool tokens")
	ErrFeeTooHigh            = errors.New("fee exceeds 1e18")
)

// OraclePool prices swaps from an oracle and restricts every ledger-mutating
// call to one hardcoded sender, eliminating cross-caller races by
// construction.
type OraclePool struct {
	mu sync.RWMutex

	address common.Address // the pool's own token-holding account
	sender  common.Address // only authorized caller of swap/pull
	owner   common.Address

	tokenIn  common.Address // base asset accepted for swaps
	tokenOut common.Address // receipt asset paid out

	priceOracle oracle.Oracle
	fee         *big.Int // 1e18 fixed point, <= 1e18

	// lastPrice is monotonic non-decreasing: a swap priced below it is
	// rejected, since a yield-accruing exchange rate never falls.
	lastPrice *big.Int

	// reserve counts the base asset accumulated from swaps. It is
	// decremented by TransferQuoteToken/Pull and never exceeds the pool's
	// actual token-in balance.
	reserve *big.Int
}

// New creates an oracle pool. The fee is 1e18 fixed point and must not
// exceed 1e18.
func New(address, sender, owner, tokenIn, tokenOut common.Address, priceOracle oracle.Oracle, fee *big.Int) (*OraclePool, error) {
	if fee.Sign() < 0 || fee.Cmp(oracle.Precision) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrFeeTooHigh, fee)
	}
	return &OraclePool{
		address:     address,
		sender:      sender,
		owner:       owner,
		tokenIn:     tokenIn,
		tokenOut:    tokenOut,
		priceOracle: priceOracle,
		fee:         new(big.Int).Set(fee),
		lastPrice:   big.NewInt(0),
		reserve:     big.NewInt(0),
	}, nil
}

// Swap exchanges amountIn of the base asset, already delivered to the pool,
// for the receipt asset at the current oracle price:
//
//	feeAmount = amountIn * fee / 1e18
//	amountOut = (amountIn - feeAmount) * 1e18 / price
//
// with truncating division. The receipt asset is paid to recipient directly.
func (p *OraclePool) Swap(state token.StateDB, caller, recipient common.Address, amountIn, minAmountOut *big.Int, now uint64) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.sender {
		return nil, fmt.Errorf("%w: %s", ErrOnlySender, caller)
	}
	if amountIn.Sign() <= 0 {
		return nil, ErrZeroAmountIn
	}
	if p.priceOracle == nil {
		return nil, ErrOracleNotSet
	}

	price, err := p.priceOracle.LatestAnswer(now)
	if err != nil {
		return nil, err
	}
	if price.Cmp(p.lastPrice) < 0 {
		return nil, fmt.Errorf("%w: current %s, last %s", ErrPriceDecreased, price, p.lastPrice)
	}

	feeAmount := new(big.Int).Mul(amountIn, p.fee)
	feeAmount.Div(feeAmount, oracle.Precision)

	amountOut := new(big.Int).Sub(amountIn, feeAmount)
	amountOut.Mul(amountOut, oracle.Precision)
	amountOut.Div(amountOut, price)

	if amountOut.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("%w: min %s, actual %s", ErrInsufficientAmountOut, minAmountOut, amountOut)
	}
	balance := token.BalanceOf(state, p.tokenOut, p.address)
	if balance.Cmp(amountOut) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientTokenOut, balance, amountOut)
	}

	p.reserve.Add(p.reserve, amountIn)
	p.lastPrice.Set(price)

	if err := token.Transfer(state, p.tokenOut, p.address, recipient, amountOut); err != nil {
		return nil, err
	}
	return amountOut, nil
}

// TransferQuoteToken sends amount of the accumulated base asset to a
// recipient, decrementing the reserve ledger. Sender only.
func (p *OraclePool) TransferQuoteToken(state token.StateDB, caller, to common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.sender {
		return fmt.Errorf("%w: %s", ErrOnlySender, caller)
	}
	if p.reserve.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientTokenIn, p.reserve, amount)
	}
	p.reserve.Sub(p.reserve, amount)
	return token.Transfer(state, p.tokenIn, p.address, to, amount)
}

// Pull transfers amount of tok to the sender. The receipt asset cannot be
// pulled; pulling the base asset goes through the reserve ledger.
func (p *OraclePool) Pull(state token.StateDB, caller, tok common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.sender {
		return fmt.Errorf("%w: %s", ErrOnlySender, caller)
	}
	if tok == p.tokenOut {
		return ErrCannotPullTokenOut
	}
	if tok == p.tokenIn {
		if p.reserve.Cmp(amount) < 0 {
			return fmt.Errorf("%w: have %s, need %s", ErrInsufficientTokenIn, p.reserve, amount)
		}
		p.reserve.Sub(p.reserve, amount)
	}
	return token.Transfer(state, tok, p.address, caller, amount)
}

// Sweep recovers unrelated tokens stuck in the pool without touching the
// reserve ledger. Pool tokens are not sweepable. Owner only.
func (p *OraclePool) Sweep(state token.StateDB, caller, tok, to common.Address, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.owner {
		return fmt.Errorf("%w: %s", ErrOnlyOwner, caller)
	}
	if tok == p.tokenIn || tok == p.tokenOut {
		return fmt.Errorf("%w: %s", ErrCannotSweepPoolToken, tok)
	}
	return token.Transfer(state, tok, p.address, to, amount)
}

// SetOracle replaces the price oracle and resets the monotonic guard, since
// prices from a different oracle are not comparable. Owner only.
func (p *OraclePool) SetOracle(caller common.Address, priceOracle oracle.Oracle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.owner {
		return fmt.Errorf("%w: %s", ErrOnlyOwner, caller)
	}
	p.priceOracle = priceOracle
	p.lastPrice = big.NewInt(0)
	return nil
}

// SetFee updates the swap fee. Owner only.
func (p *OraclePool) SetFee(caller common.Address, fee *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.owner {
		return fmt.Errorf("%w: %s", ErrOnlyOwner, caller)
	}
	if fee.Sign() < 0 || fee.Cmp(oracle.Precision) > 0 {
		return fmt.Errorf("%w: %s", ErrFeeTooHigh, fee)
	}
	p.fee = new(big.Int).Set(fee)
	return nil
}

// Address returns the pool's token-holding account.
func (p *OraclePool) Address() common.Address { return p.address }

// Sender returns the single authorized caller.
func (p *OraclePool) Sender() common.Address { return p.sender }

// TokenIn returns the base asset accepted for swaps.
func (p *OraclePool) TokenIn() common.Address { return p.tokenIn }

// TokenOut returns the receipt asset paid out.
func (p *OraclePool) TokenOut() common.Address { return p.tokenOut }

// Oracle returns the price oracle.
func (p *OraclePool) Oracle() oracle.Oracle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.priceOracle
}

// Fee returns the swap fee in 1e18 fixed point.
func (p *OraclePool) Fee() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.fee)
}

// LastPrice returns the highest price seen by a successful swap.
func (p *OraclePool) LastPrice() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.lastPrice)
}

// QuoteReserve returns the base-asset reserve ledger.
func (p *OraclePool) QuoteReserve() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.reserve)
}
