// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package receiver implements the execution-chain side of the settlement
// protocol: it accepts routed messages from trusted senders, stakes the
// delivered base asset, and bridges the minted receipt tokens back to the
// origin chain through a per-chain adapter.
package receiver

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/liquidstake/oracle"
	"github.com/luxfi/liquidstake/token"
)

var (
	ErrZeroRate        = errors.New("zero exchange rate")
	ErrZeroStake       = errors.New("zero stake amount")
	ErrUntrustedSender = errors.New("untrusted sender")
	ErrNoAdapter       = errors.New("no bridge adapter")
	ErrShortDelivery   = errors.New("delivered amount below packet amount")
)

// Staker turns the base asset into receipt tokens.
type Staker interface {
	// Stake locks amount of the base asset held by from and mints the
	// receipt token to from, returning the minted amount.
	Stake(state token.StateDB, from common.Address, amount *big.Int) (*big.Int, error)
}

// FixedRateStaker mints receipt tokens at a fixed exchange rate:
// receipt = amount * 1e18 / rate, truncating. The rate is the price of one
// receipt token in the base asset, 1e18 fixed point.
type FixedRateStaker struct {
	vault   common.Address // locked base asset accumulates here
	asset   common.Address
	receipt common.Address
	rate    *big.Int
}

var _ Staker = (*FixedRateStaker)(nil)

// NewFixedRateStaker creates a staker minting at the given rate.
func NewFixedRateStaker(vault, asset, receipt common.Address, rate *big.Int) (*FixedRateStaker, error) {
	if rate.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrZeroRate, rate)
	}
	return &FixedRateStaker{
		vault:   vault,
		asset:   asset,
		receipt: receipt,
		rate:    new(big.Int).Set(rate),
	}, nil
}

func (s *FixedRateStaker) Stake(state token.StateDB, from common.Address, amount *big.Int) (*big.Int, error) {
	if amount.Sign() <= 0 {
		return nil, ErrZeroStake
	}
	if err := token.Transfer(state, s.asset, from, s.vault, amount); err != nil {
		return nil, err
	}
	minted := new(big.Int).Mul(amount, oracle.Precision)
	minted.Div(minted, s.rate)
	if err := token.Mint(state, s.receipt, from, minted); err != nil {
		return nil, err
	}
	return minted, nil
}

// Rate returns the staker's fixed exchange rate.
func (s *FixedRateStaker) Rate() *big.Int {
	return new(big.Int).Set(s.rate)
}

// Receipt returns the receipt token address.
func (s *FixedRateStaker) Receipt() common.Address {
	return s.receipt
}
