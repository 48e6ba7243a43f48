// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package receiver

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/liquidstake/feecodec"
	"github.com/luxfi/liquidstake/router"
	"github.com/luxfi/liquidstake/token"
)

// BridgeAdapter returns receipt tokens to an origin chain. feeData is the
// opaque fee schedule carried in the packet; each adapter enforces its own
// layout.
type BridgeAdapter interface {
	BridgeToken(state token.StateDB, from, to common.Address, amount *big.Int, feeData []byte) error
}

// ArbitrumLegacyAdapter bridges through an Arbitrum retryable ticket. The
// ticket is funded from the caller's native balance per the decoded fee
// schedule.
type ArbitrumLegacyAdapter struct {
	receipt common.Address
	inbox   common.Address // native funding for tickets accumulates here
}

var _ BridgeAdapter = (*ArbitrumLegacyAdapter)(nil)

func NewArbitrumLegacyAdapter(receipt, inbox common.Address) *ArbitrumLegacyAdapter {
	return &ArbitrumLegacyAdapter{receipt: receipt, inbox: inbox}
}

func (a *ArbitrumLegacyAdapter) BridgeToken(state token.StateDB, from, to common.Address, amount *big.Int, feeData []byte) error {
	fee, err := feecodec.DecodeArbitrum(feeData)
	if err != nil {
		return err
	}
	if fee.FeeAmount.Sign() > 0 {
		if err := token.MoveNative(state, from, a.inbox, fee.FeeAmount); err != nil {
			return fmt.Errorf("fund retryable ticket: %w", err)
		}
	}
	return token.Transfer(state, a.receipt, from, to, amount)
}

// OptimismStandardAdapter bridges through the Optimism standard bridge,
// which charges no fee; feeData only carries the L2 gas limit.
type OptimismStandardAdapter struct {
	receipt common.Address
}

var _ BridgeAdapter = (*OptimismStandardAdapter)(nil)

func NewOptimismStandardAdapter(receipt common.Address) *OptimismStandardAdapter {
	return &OptimismStandardAdapter{receipt: receipt}
}

func (a *OptimismStandardAdapter) BridgeToken(state token.StateDB, from, to common.Address, amount *big.Int, feeData []byte) error {
	if _, err := feecodec.DecodeOptimism(feeData); err != nil {
		return err
	}
	return token.Transfer(state, a.receipt, from, to, amount)
}

// BaseStandardAdapter bridges through the Base standard bridge. Base runs
// the Optimism bridge contracts, so only the fee layout name differs.
type BaseStandardAdapter struct {
	receipt common.Address
}

var _ BridgeAdapter = (*BaseStandardAdapter)(nil)

func NewBaseStandardAdapter(receipt common.Address) *BaseStandardAdapter {
	return &BaseStandardAdapter{receipt: receipt}
}

func (a *BaseStandardAdapter) BridgeToken(state token.StateDB, from, to common.Address, amount *big.Int, feeData []byte) error {
	if _, err := feecodec.DecodeBase(feeData); err != nil {
		return err
	}
	return token.Transfer(state, a.receipt, from, to, amount)
}

// GenericMessagingAdapter bridges by routing the receipt tokens back through
// a message lane to a payout account on the origin chain.
type GenericMessagingAdapter struct {
	receipt      common.Address
	link         common.Address
	router       router.Router
	destSelector uint64 // the origin chain, from this side's view
	payout       common.Address
}

var _ BridgeAdapter = (*GenericMessagingAdapter)(nil)

func NewGenericMessagingAdapter(receipt, link common.Address, r router.Router, destSelector uint64, payout common.Address) *GenericMessagingAdapter {
	return &GenericMessagingAdapter{
		receipt:      receipt,
		link:         link,
		router:       r,
		destSelector: destSelector,
		payout:       payout,
	}
}

func (a *GenericMessagingAdapter) BridgeToken(state token.StateDB, from, to common.Address, amount *big.Int, feeData []byte) error {
	fee, err := feecodec.DecodeCCIP(feeData)
	if err != nil {
		return err
	}
	packet, err := feecodec.PackPacket(to, amount, nil)
	if err != nil {
		return err
	}

	feeToken := common.Address{}
	if fee.PayInLink {
		feeToken = a.link
	}
	msg := router.Message{
		Receiver: a.payout.Bytes(),
		Data:     packet,
		Token:    a.receipt,
		Amount:   amount,
		FeeToken: feeToken,
		GasLimit: fee.GasLimit,
	}
	quoted, err := a.router.GetFee(a.destSelector, msg)
	if err != nil {
		return err
	}
	if quoted.Cmp(fee.MaxFee) > 0 {
		return fmt.Errorf("routing fee %s exceeds max %s", quoted, fee.MaxFee)
	}
	_, err = a.router.Send(state, from, a.destSelector, msg)
	return err
}

// PayoutHandler terminates the return leg on the origin chain: it forwards
// the delivered receipt tokens to the packet recipient.
type PayoutHandler struct {
	address common.Address
}

var _ router.MessageHandler = (*PayoutHandler)(nil)

func NewPayoutHandler(address common.Address) *PayoutHandler {
	return &PayoutHandler{address: address}
}

// Address returns the payout account the router credits.
func (h *PayoutHandler) Address() common.Address { return h.address }

func (h *PayoutHandler) HandleMessage(state token.StateDB, d router.Delivery) error {
	recipient, amount, _, err := feecodec.UnpackPacket(d.Message.Data)
	if err != nil {
		return err
	}
	return token.Transfer(state, d.Message.Token, h.address, recipient, amount)
}
