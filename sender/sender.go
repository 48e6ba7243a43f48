// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sender implements the origin-chain entry point of the settlement
// protocol. A CustomSender fills fast stakes from the oracle pool, escrows
// slow stakes toward the execution chain, and migrates the pool's
// accumulated base asset when a sync is triggered.
package sender

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/liquidstake/feecodec"
	"github.com/luxfi/liquidstake/pool"
	"github.com/luxfi/liquidstake/router"
	"github.com/luxfi/liquidstake/token"
)

// Roles gating privileged operations.
const (
	DefaultAdminRole = "admin"
	SyncRole         = "sync"
)

var (
	ErrOraclePoolNotSet          = errors.New("oracle pool not set")
	ErrInvalidToken              = errors.New("invalid token")
	ErrZeroAmount                = errors.New("zero amount")
	ErrInsufficientNativeBalance = errors.New("insufficient native balance")
	ErrReceiverNotSet            = errors.New("receiver not set")
	ErrPoolInsufficientToken     = errors.New("pool reserve insufficient")
	ErrMaxFeeExceeded            = errors.New("routing fee exceeds max fee")
	ErrMissingRole               = errors.New("missing role")
)

// Referral records a fast stake attributed to a referrer.
type Referral struct {
	Referrer  common.Address
	Staker    common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
}

// ReceiverUpdate records an admin change to the receiver registry.
type ReceiverUpdate struct {
	Admin    common.Address
	Selector uint64
	Receiver common.Address
}

// CustomSender is the user-facing contract on a liquidity chain.
type CustomSender struct {
	mu sync.RWMutex

	address common.Address // the sender's own token-holding account
	wnative common.Address
	link    common.Address

	pool   *pool.OraclePool
	router router.Router
	log    log.Logger

	// receivers maps a destination chain selector to the receiver contract
	// trusted on that chain.
	receivers map[uint64]common.Address

	roles           map[string]map[common.Address]bool
	referrals       []Referral
	receiverUpdates []ReceiverUpdate
}

// New creates a sender. The admin receives DefaultAdminRole and may grant
// further roles.
func New(address, wnative, link, admin common.Address, p *pool.OraclePool, r router.Router, logger log.Logger) *CustomSender {
	s := &CustomSender{
		address:   address,
		wnative:   wnative,
		link:      link,
		pool:      p,
		router:    r,
		log:       logger,
		receivers: make(map[uint64]common.Address),
		roles:     make(map[string]map[common.Address]bool),
	}
	s.grant(DefaultAdminRole, admin)
	return s
}

func (s *CustomSender) grant(role string, account common.Address) {
	if s.roles[role] == nil {
		s.roles[role] = make(map[common.Address]bool)
	}
	s.roles[role][account] = true
}

// HasRole reports whether account holds role.
func (s *CustomSender) HasRole(role string, account common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles[role][account]
}

// GrantRole gives account the role. Admin only.
func (s *CustomSender) GrantRole(caller common.Address, role string, account common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.roles[DefaultAdminRole][caller] {
		return fmt.Errorf("%w: %s needs %s", ErrMissingRole, caller, DefaultAdminRole)
	}
	s.grant(role, account)
	return nil
}

// RevokeRole removes the role from account. Admin only.
func (s *CustomSender) RevokeRole(caller common.Address, role string, account common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.roles[DefaultAdminRole][caller] {
		return fmt.Errorf("%w: %s needs %s", ErrMissingRole, caller, DefaultAdminRole)
	}
	delete(s.roles[role], account)
	return nil
}

// SetReceiver registers the receiver contract trusted on a destination
// chain. Admin only.
func (s *CustomSender) SetReceiver(caller common.Address, destSelector uint64, receiver common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.roles[DefaultAdminRole][caller] {
		return fmt.Errorf("%w: %s needs %s", ErrMissingRole, caller, DefaultAdminRole)
	}
	s.receivers[destSelector] = receiver
	s.receiverUpdates = append(s.receiverUpdates, ReceiverUpdate{
		Admin:    caller,
		Selector: destSelector,
		Receiver: receiver,
	})
	s.log.Info("receiver set", "admin", caller, "dest", destSelector, "receiver", receiver)
	return nil
}

// GetReceiver returns the receiver registered for a destination chain.
func (s *CustomSender) GetReceiver(destSelector uint64) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receiver, ok := s.receivers[destSelector]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: selector %d", ErrReceiverNotSet, destSelector)
	}
	return receiver, nil
}

// FastStake swaps tok against the oracle pool for an immediate receipt-token
// fill. tok must be the wrapped native token, or the zero address to stake
// raw native, which is wrapped on the way in.
func (s *CustomSender) FastStake(state token.StateDB, caller common.Address, tok common.Address, amountIn, minAmountOut *big.Int, now uint64) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fastStake(state, caller, tok, amountIn, minAmountOut, now)
}

// FastStakeReferral is FastStake with the fill attributed to a referrer.
func (s *CustomSender) FastStakeReferral(state token.StateDB, caller common.Address, tok common.Address, amountIn, minAmountOut *big.Int, referrer common.Address, now uint64) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amountOut, err := s.fastStake(state, caller, tok, amountIn, minAmountOut, now)
	if err != nil {
		return nil, err
	}
	s.referrals = append(s.referrals, Referral{
		Referrer:  referrer,
		Staker:    caller,
		AmountIn:  new(big.Int).Set(amountIn),
		AmountOut: new(big.Int).Set(amountOut),
	})
	s.log.Info("fast stake referred", "staker", caller, "referrer", referrer, "amountOut", amountOut)
	return amountOut, nil
}

func (s *CustomSender) fastStake(state token.StateDB, caller common.Address, tok common.Address, amountIn, minAmountOut *big.Int, now uint64) (*big.Int, error) {
	if s.pool == nil {
		return nil, ErrOraclePoolNotSet
	}
	if amountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if err := s.collectBase(state, caller, tok, amountIn, s.pool.Address()); err != nil {
		return nil, err
	}

	amountOut, err := s.pool.Swap(state, s.address, caller, amountIn, minAmountOut, now)
	if err != nil {
		return nil, err
	}
	s.log.Info("fast stake", "staker", caller, "amountIn", amountIn, "amountOut", amountOut)
	return amountOut, nil
}

// collectBase moves amount of the base asset from caller to dst, wrapping
// raw native when tok is the zero address.
func (s *CustomSender) collectBase(state token.StateDB, caller, tok common.Address, amount *big.Int, dst common.Address) error {
	switch tok {
	case s.wnative:
		return token.Transfer(state, s.wnative, caller, dst, amount)
	case common.Address{}:
		if err := token.WrapNative(state, s.wnative, caller, amount); err != nil {
			if errors.Is(err, token.ErrInsufficientNative) {
				return fmt.Errorf("%w: need %s, have %s",
					ErrInsufficientNativeBalance, amount, state.GetBalance(caller))
			}
			return err
		}
		return token.Transfer(state, s.wnative, caller, dst, amount)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidToken, tok)
	}
}

// SlowStake escrows tok toward the execution chain. feeOtoD encodes the
// origin-to-destination routing fee parameters; feeDtoO prepays the
// destination-to-origin return bridge and rides along as wrapped native.
// The staked amount, the return fee, and the routing fee are collected from
// the caller; the routing fee must not exceed the encoded max fee.
func (s *CustomSender) SlowStake(state token.StateDB, caller common.Address, destSelector uint64, tok common.Address, amount *big.Int, feeOtoD, feeDtoO []byte) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount.Sign() <= 0 {
		return common.Hash{}, ErrZeroAmount
	}
	packet, err := feecodec.PackPacket(caller, amount, feeDtoO)
	if err != nil {
		return common.Hash{}, err
	}

	id, err := s.dispatch(state, caller, destSelector, tok, amount, feeOtoD, feeDtoO, packet)
	if err != nil {
		return common.Hash{}, err
	}
	s.log.Info("slow stake", "staker", caller, "dest", destSelector, "amount", amount, "message", id)
	return id, nil
}

// Sync migrates amount of the pool's accumulated base asset to the
// execution chain to be staked for the pool's own account. SyncRole only.
func (s *CustomSender) Sync(state token.StateDB, caller common.Address, destSelector uint64, amount *big.Int, feeOtoD, feeDtoO []byte) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roles[SyncRole][caller] {
		return common.Hash{}, fmt.Errorf("%w: %s needs %s", ErrMissingRole, caller, SyncRole)
	}
	if s.pool == nil {
		return common.Hash{}, ErrOraclePoolNotSet
	}
	if amount.Sign() <= 0 {
		return common.Hash{}, ErrZeroAmount
	}
	if reserve := s.pool.QuoteReserve(); reserve.Cmp(amount) < 0 {
		return common.Hash{}, fmt.Errorf("%w: reserve %s, requested %s", ErrPoolInsufficientToken, reserve, amount)
	}

	// The receipt tokens minted on the execution chain return to the pool.
	packet, err := feecodec.PackPacket(s.pool.Address(), amount, feeDtoO)
	if err != nil {
		return common.Hash{}, err
	}
	if err := s.pool.TransferQuoteToken(state, s.address, s.address, amount); err != nil {
		return common.Hash{}, err
	}

	// The keeper fronts the routing and return fees; the migrated amount is
	// already held by the sender.
	rt, err := s.routingFor(destSelector, feeOtoD, feeDtoO)
	if err != nil {
		return common.Hash{}, err
	}
	id, err := s.dispatchHeld(state, caller, destSelector, amount, rt, packet)
	if err != nil {
		return common.Hash{}, err
	}
	s.log.Info("sync", "caller", caller, "dest", destSelector, "amount", amount, "message", id)
	return id, nil
}

// routing carries the resolved parameters of one cross-chain dispatch: the
// trusted receiver, the decoded origin-to-destination fee parameters, and
// the return-leg fee amount.
type routing struct {
	receiver  common.Address
	feeParams feecodec.FeeCCIP
	returnFee *big.Int
}

// routingFor resolves and validates the routing parameters for destSelector.
// Callers must hold s.mu.
func (s *CustomSender) routingFor(destSelector uint64, feeOtoD, feeDtoO []byte) (routing, error) {
	receiver, ok := s.receivers[destSelector]
	if !ok {
		return routing{}, fmt.Errorf("%w: selector %d", ErrReceiverNotSet, destSelector)
	}
	feeParams, err := feecodec.DecodeCCIP(feeOtoD)
	if err != nil {
		return routing{}, err
	}
	returnFee, _, err := feecodec.DecodeFeeAmount(feeDtoO)
	if err != nil {
		return routing{}, err
	}
	return routing{receiver: receiver, feeParams: feeParams, returnFee: returnFee}, nil
}

// dispatch collects the staked amount from caller and routes it with the
// packet attached. Routing parameters are resolved before any funds move.
func (s *CustomSender) dispatch(state token.StateDB, caller common.Address, destSelector uint64, tok common.Address, amount *big.Int, feeOtoD, feeDtoO []byte, packet []byte) (common.Hash, error) {
	rt, err := s.routingFor(destSelector, feeOtoD, feeDtoO)
	if err != nil {
		return common.Hash{}, err
	}
	if err := s.collectBase(state, caller, tok, amount, s.address); err != nil {
		return common.Hash{}, err
	}
	return s.dispatchHeld(state, caller, destSelector, amount, rt, packet)
}

// dispatchHeld routes amount of wrapped native already held by the sender,
// collecting the return fee and routing fee from caller.
func (s *CustomSender) dispatchHeld(state token.StateDB, caller common.Address, destSelector uint64, amount *big.Int, rt routing, packet []byte) (common.Hash, error) {
	// The return fee rides along as extra wrapped native, carved out of the
	// caller's raw native.
	if rt.returnFee.Sign() > 0 {
		if err := s.collectBase(state, caller, common.Address{}, rt.returnFee, s.address); err != nil {
			return common.Hash{}, err
		}
	}
	attached := new(big.Int).Add(amount, rt.returnFee)

	feeToken := common.Address{}
	if rt.feeParams.PayInLink {
		feeToken = s.link
	}
	msg := router.Message{
		Receiver: rt.receiver.Bytes(),
		Data:     packet,
		Token:    s.wnative,
		Amount:   attached,
		FeeToken: feeToken,
		GasLimit: rt.feeParams.GasLimit,
	}

	fee, err := s.router.GetFee(destSelector, msg)
	if err != nil {
		return common.Hash{}, err
	}
	if fee.Cmp(rt.feeParams.MaxFee) > 0 {
		return common.Hash{}, fmt.Errorf("%w: fee %s, max %s", ErrMaxFeeExceeded, fee, rt.feeParams.MaxFee)
	}

	// Only the quoted fee is collected; the headroom up to MaxFee stays with
	// the caller.
	if fee.Sign() > 0 {
		if rt.feeParams.PayInLink {
			if err := token.Transfer(state, s.link, caller, s.address, fee); err != nil {
				return common.Hash{}, err
			}
		} else {
			if err := token.MoveNative(state, caller, s.address, fee); err != nil {
				if errors.Is(err, token.ErrInsufficientNative) {
					return common.Hash{}, fmt.Errorf("%w: need %s, have %s",
						ErrInsufficientNativeBalance, fee, state.GetBalance(caller))
				}
				return common.Hash{}, err
			}
		}
	}
	return s.router.Send(state, s.address, destSelector, msg)
}

// GetFee quotes the routing fee for a slow stake or sync of amount toward
// destSelector, using the same message shape the dispatch path builds.
func (s *CustomSender) GetFee(destSelector uint64, amount *big.Int, feeOtoD, feeDtoO []byte) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, err := s.routingFor(destSelector, feeOtoD, feeDtoO)
	if err != nil {
		return nil, err
	}

	feeToken := common.Address{}
	if rt.feeParams.PayInLink {
		feeToken = s.link
	}
	return s.router.GetFee(destSelector, router.Message{
		Receiver: rt.receiver.Bytes(),
		Token:    s.wnative,
		Amount:   new(big.Int).Add(amount, rt.returnFee),
		FeeToken: feeToken,
		GasLimit: rt.feeParams.GasLimit,
	})
}

// Referrals returns the recorded referral fills.
func (s *CustomSender) Referrals() []Referral {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Referral, len(s.referrals))
	copy(out, s.referrals)
	return out
}

// ReceiverUpdates returns the recorded receiver-registry changes.
func (s *CustomSender) ReceiverUpdates() []ReceiverUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ReceiverUpdate, len(s.receiverUpdates))
	copy(out, s.receiverUpdates)
	return out
}

// Pool returns the attached oracle pool.
func (s *CustomSender) Pool() *pool.OraclePool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool
}

// Address returns the sender's token-holding account.
func (s *CustomSender) Address() common.Address { return s.address }
