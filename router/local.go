// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package router

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/liquidstake/token"
)

// LaneConfig prices routing toward one destination chain:
// fee = BaseFee + FeePerGas * GasLimit, denominated in the fee token.
type LaneConfig struct {
	BaseFee   *big.Int
	FeePerGas *big.Int
}

// LocalRouter is an in-process message lane. Outbound messages escrow their
// funds and fee, land in a durable journal, and are pushed to the registered
// handler by Deliver. Delivery order follows send order.
type LocalRouter struct {
	mu sync.Mutex

	localSelector uint64
	escrow        common.Address
	journal       database.Database
	log           log.Logger

	lanes    map[uint64]LaneConfig
	handlers map[uint64]map[common.Address]MessageHandler

	pending []common.Hash
	nonce   uint64
}

var _ Router = (*LocalRouter)(nil)

// NewLocalRouter creates a router for the given local chain selector. The
// escrow account holds attached funds between Send and Deliver; the journal
// persists in-flight messages.
func NewLocalRouter(localSelector uint64, escrow common.Address, journal database.Database, logger log.Logger) *LocalRouter {
	return &LocalRouter{
		localSelector: localSelector,
		escrow:        escrow,
		journal:       journal,
		log:           logger,
		lanes:         make(map[uint64]LaneConfig),
		handlers:      make(map[uint64]map[common.Address]MessageHandler),
	}
}

// SetLane opens or reprices a lane toward a destination chain.
func (r *LocalRouter) SetLane(destSelector uint64, cfg LaneConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lanes[destSelector] = cfg
}

// RegisterHandler binds the handler serving an account on a chain.
func (r *LocalRouter) RegisterHandler(selector uint64, account common.Address, h MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers[selector] == nil {
		r.handlers[selector] = make(map[common.Address]MessageHandler)
	}
	r.handlers[selector][account] = h
}

// GetFee quotes the routing fee toward a destination.
func (r *LocalRouter) GetFee(destSelector uint64, msg Message) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.laneFee(destSelector, msg.GasLimit)
}

func (r *LocalRouter) laneFee(destSelector uint64, gasLimit uint64) (*big.Int, error) {
	lane, ok := r.lanes[destSelector]
	if !ok {
		return nil, fmt.Errorf("%w: selector %d", ErrUnknownDestination, destSelector)
	}
	fee := new(big.Int).Mul(lane.FeePerGas, new(big.Int).SetUint64(gasLimit))
	return fee.Add(fee, lane.BaseFee), nil
}

// Send escrows the message's funds and fee and appends it to the journal.
// The returned id is stable across restarts of the same send sequence.
func (r *LocalRouter) Send(state token.StateDB, caller common.Address, destSelector uint64, msg Message) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(msg.Receiver) != common.AddressLength {
		return common.Hash{}, fmt.Errorf("%w: %d bytes", ErrInvalidReceiver, len(msg.Receiver))
	}
	fee, err := r.laneFee(destSelector, msg.GasLimit)
	if err != nil {
		return common.Hash{}, err
	}

	if fee.Sign() > 0 {
		if token.IsNative(msg.FeeToken) {
			err = token.MoveNative(state, caller, r.escrow, fee)
		} else {
			err = token.Transfer(state, msg.FeeToken, caller, r.escrow, fee)
		}
		if err != nil {
			return common.Hash{}, err
		}
	}
	if msg.Amount != nil && msg.Amount.Sign() > 0 {
		if err := token.Transfer(state, msg.Token, caller, r.escrow, msg.Amount); err != nil {
			return common.Hash{}, err
		}
	}

	id := r.messageID(caller, destSelector, msg)
	d := Delivery{
		ID:             id,
		SourceSelector: r.localSelector,
		DestSelector:   destSelector,
		Sender:         caller,
		Message:        msg,
	}
	raw, err := marshalDelivery(d)
	if err != nil {
		return common.Hash{}, err
	}
	if err := r.journal.Put(id[:], raw); err != nil {
		return common.Hash{}, fmt.Errorf("journal message: %w", err)
	}
	r.pending = append(r.pending, id)
	r.nonce++

	r.log.Info("message sent",
		"id", id,
		"dest", destSelector,
		"sender", caller,
		"amount", msg.Amount,
		"fee", fee,
	)
	return id, nil
}

func (r *LocalRouter) messageID(caller common.Address, destSelector uint64, msg Message) common.Hash {
	h := blake3.New()
	var sel [8]byte
	binary.BigEndian.PutUint64(sel[:], r.localSelector)
	h.Write(sel[:])
	binary.BigEndian.PutUint64(sel[:], destSelector)
	h.Write(sel[:])
	h.Write(caller[:])
	binary.BigEndian.PutUint64(sel[:], r.nonce)
	h.Write(sel[:])
	h.Write(msg.Receiver)
	h.Write(msg.Data)
	return common.Hash(h.Sum(nil)[:32])
}

// PendingIDs returns the ids of journaled, undelivered messages in send
// order.
func (r *LocalRouter) PendingIDs() []common.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]common.Hash, len(r.pending))
	copy(out, r.pending)
	return out
}

// Deliver hands a journaled message to the handler registered for its
// receiver, crediting attached funds first. The message leaves the journal
// only on success, so a failed delivery can be retried.
func (r *LocalRouter) Deliver(state token.StateDB, id common.Hash) error {
	r.mu.Lock()
	raw, err := r.journal.Get(id[:])
	if err == database.ErrNotFound {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownMessage, id)
	}
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("read journal: %w", err)
	}
	d, err := unmarshalDelivery(raw)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	receiver := common.BytesToAddress(d.Message.Receiver)
	handler, ok := r.handlers[d.DestSelector][receiver]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: selector %d, receiver %s", ErrNoHandler, d.DestSelector, receiver)
	}

	if d.Message.Amount != nil && d.Message.Amount.Sign() > 0 {
		if err := token.Transfer(state, d.Message.Token, r.escrow, receiver, d.Message.Amount); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	// The handler may route further messages through us, so the lock is
	// released for the call.
	r.mu.Unlock()
	if err := handler.HandleMessage(state, d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.journal.Delete(id[:]); err != nil {
		return fmt.Errorf("prune journal: %w", err)
	}
	for i, p := range r.pending {
		if p == id {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			break
		}
	}
	r.log.Info("message delivered", "id", id, "dest", d.DestSelector, "receiver", receiver)
	return nil
}

// DeliverAll delivers every pending message in send order, stopping at the
// first failure.
func (r *LocalRouter) DeliverAll(state token.StateDB) error {
	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.mu.Unlock()
			return nil
		}
		id := r.pending[0]
		r.mu.Unlock()
		if err := r.Deliver(state, id); err != nil {
			return err
		}
	}
}
