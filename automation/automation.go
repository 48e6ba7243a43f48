// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package automation triggers pool syncs from an upkeep loop. A keeper polls
// CheckUpkeep and calls PerformUpkeep when the pool has accumulated enough
// base asset and the cooldown since the last sync has passed.
package automation

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/liquidstake/sender"
	"github.com/luxfi/liquidstake/token"
)

var (
	ErrUpkeepNotNeeded = errors.New("upkeep not needed")
	ErrOnlyOwner       = errors.New("caller is not the owner")
	ErrBadAmounts      = errors.New("min amount exceeds max amount")
)

// SyncAutomation batches pool reserves into periodic syncs. Its account must
// hold native to front the routing fees and must carry the sender's sync
// role.
type SyncAutomation struct {
	mu sync.Mutex

	address common.Address
	owner   common.Address
	sender  *sender.CustomSender
	log     log.Logger

	destSelector uint64
	minAmount    *big.Int // reserve threshold before a sync is worthwhile
	maxAmount    *big.Int // reserve ceiling; above it syncs halt for operator attention
	delay        uint64   // seconds between syncs
	feeOtoD      []byte
	feeDtoO      []byte

	lastExecution uint64
}

// New creates the automation. minAmount and maxAmount bound the reserve
// window within which a sync dispatches; delay is the cooldown in seconds.
func New(address, owner common.Address, s *sender.CustomSender, destSelector uint64, minAmount, maxAmount *big.Int, delay uint64, logger log.Logger) (*SyncAutomation, error) {
	if minAmount.Cmp(maxAmount) > 0 {
		return nil, fmt.Errorf("%w: min %s, max %s", ErrBadAmounts, minAmount, maxAmount)
	}
	return &SyncAutomation{
		address:      address,
		owner:        owner,
		sender:       s,
		log:          logger,
		destSelector: destSelector,
		minAmount:    new(big.Int).Set(minAmount),
		maxAmount:    new(big.Int).Set(maxAmount),
		delay:        delay,
	}, nil
}

// SetFeeData configures the fee payloads attached to the next syncs. Owner
// only, since stale fee estimates would strand syncs.
func (a *SyncAutomation) SetFeeData(caller common.Address, feeOtoD, feeDtoO []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if caller != a.owner {
		return fmt.Errorf("%w: %s", ErrOnlyOwner, caller)
	}
	a.feeOtoD = append([]byte(nil), feeOtoD...)
	a.feeDtoO = append([]byte(nil), feeDtoO...)
	return nil
}

// SetBounds updates the reserve window and cooldown. Owner only.
func (a *SyncAutomation) SetBounds(caller common.Address, minAmount, maxAmount *big.Int, delay uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if caller != a.owner {
		return fmt.Errorf("%w: %s", ErrOnlyOwner, caller)
	}
	if minAmount.Cmp(maxAmount) > 0 {
		return fmt.Errorf("%w: min %s, max %s", ErrBadAmounts, minAmount, maxAmount)
	}
	a.minAmount = new(big.Int).Set(minAmount)
	a.maxAmount = new(big.Int).Set(maxAmount)
	a.delay = delay
	return nil
}

// CheckUpkeep reports whether a sync is due (the cooldown has elapsed and
// the pool reserve sits within [min, max]) and the amount the next upkeep
// would sync.
func (a *SyncAutomation) CheckUpkeep(now uint64) (bool, *big.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.upkeepNeeded(now) {
		return false, nil
	}
	return true, a.sender.Pool().QuoteReserve()
}

func (a *SyncAutomation) upkeepNeeded(now uint64) bool {
	if now < a.lastExecution+a.delay {
		return false
	}
	p := a.sender.Pool()
	if p == nil {
		return false
	}
	// A reserve above the ceiling signals an anomaly (a mispriced fee
	// estimate or a stuck lane); syncs halt until an operator widens the
	// window rather than pushing a partial amount through.
	reserve := p.QuoteReserve()
	return reserve.Cmp(a.minAmount) >= 0 && reserve.Cmp(a.maxAmount) <= 0
}

// PerformUpkeep syncs the full pool reserve and starts the cooldown.
func (a *SyncAutomation) PerformUpkeep(state token.StateDB, now uint64) (common.Hash, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.upkeepNeeded(now) {
		return common.Hash{}, ErrUpkeepNotNeeded
	}
	amount := a.sender.Pool().QuoteReserve()

	id, err := a.sender.Sync(state, a.address, a.destSelector, amount, a.feeOtoD, a.feeDtoO)
	if err != nil {
		return common.Hash{}, err
	}
	a.lastExecution = now
	a.log.Info("pool synced", "amount", amount, "message", id, "at", now)
	return id, nil
}

// LastExecution returns the timestamp of the last successful upkeep.
func (a *SyncAutomation) LastExecution() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastExecution
}

// Address returns the automation's fee-funding account.
func (a *SyncAutomation) Address() common.Address { return a.address }
