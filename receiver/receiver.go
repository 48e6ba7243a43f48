// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package receiver

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/liquidstake/feecodec"
	"github.com/luxfi/liquidstake/router"
	"github.com/luxfi/liquidstake/token"
)

// Receiver consumes routed settlement messages. For each delivery it
// verifies the message came from the sender trusted for its source chain,
// stakes the packet amount, and bridges the minted receipt tokens back
// through the adapter configured for that chain. The delivery surplus above
// the packet amount funds the return bridge.
type Receiver struct {
	mu sync.RWMutex

	address common.Address // token-holding account credited by the router
	wnative common.Address
	owner   common.Address

	staker Staker
	log    log.Logger

	// trusted maps a source chain selector to the sender bytes accepted
	// from it.
	trusted map[uint64][]byte

	adapters map[uint64]BridgeAdapter
}

var _ router.MessageHandler = (*Receiver)(nil)

// New creates a receiver bound to its staking backend.
func New(address, wnative, owner common.Address, staker Staker, logger log.Logger) *Receiver {
	return &Receiver{
		address:  address,
		wnative:  wnative,
		owner:    owner,
		staker:   staker,
		log:      logger,
		trusted:  make(map[uint64][]byte),
		adapters: make(map[uint64]BridgeAdapter),
	}
}

// SetTrustedSender registers the only sender accepted from a source chain.
// Owner only.
func (r *Receiver) SetTrustedSender(caller common.Address, sourceSelector uint64, sender []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return fmt.Errorf("unauthorized: %s", caller)
	}
	r.trusted[sourceSelector] = bytes.Clone(sender)
	return nil
}

// SetAdapter registers the bridge adapter returning receipt tokens to a
// chain. Owner only.
func (r *Receiver) SetAdapter(caller common.Address, selector uint64, adapter BridgeAdapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return fmt.Errorf("unauthorized: %s", caller)
	}
	r.adapters[selector] = adapter
	return nil
}

// HandleMessage processes one delivery. The router has already credited the
// attached funds to the receiver's account.
func (r *Receiver) HandleMessage(state token.StateDB, d router.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trusted, ok := r.trusted[d.SourceSelector]
	if !ok || !bytes.Equal(trusted, d.Sender.Bytes()) {
		return fmt.Errorf("%w: %s from selector %d", ErrUntrustedSender, d.Sender, d.SourceSelector)
	}
	adapter, ok := r.adapters[d.SourceSelector]
	if !ok {
		return fmt.Errorf("%w: selector %d", ErrNoAdapter, d.SourceSelector)
	}

	recipient, amount, feeDtoO, err := feecodec.UnpackPacket(d.Message.Data)
	if err != nil {
		return err
	}
	if d.Message.Amount.Cmp(amount) < 0 {
		return fmt.Errorf("%w: delivered %s, packet %s", ErrShortDelivery, d.Message.Amount, amount)
	}

	minted, err := r.staker.Stake(state, r.address, amount)
	if err != nil {
		return err
	}

	// The surplus prepays the return bridge, converted back to raw native
	// because bridges charge their fees in it.
	returnFee := new(big.Int).Sub(d.Message.Amount, amount)
	if returnFee.Sign() > 0 {
		if err := token.UnwrapNative(state, r.wnative, r.address, returnFee); err != nil {
			return err
		}
	}
	if err := adapter.BridgeToken(state, r.address, recipient, minted, feeDtoO); err != nil {
		return err
	}

	r.log.Info("stake settled",
		"message", d.ID,
		"source", d.SourceSelector,
		"recipient", recipient,
		"staked", amount,
		"minted", minted,
	)
	return nil
}

// Address returns the receiver's token-holding account.
func (r *Receiver) Address() common.Address { return r.address }
