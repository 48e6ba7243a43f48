// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package feecodec

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Cross-chain packet layout, fixed-offset:
//
//	recipient:20 ‖ amount:32 ‖ feeDtoO:variable
//
// The feeDtoO tail is the return-bridge fee schedule, passed through opaquely
// so only the execution chain interprets it. Its denomination is independent
// of the bridged asset.
const (
	packetRecipientEnd = 20
	packetAmountEnd    = 52
)

var (
	ErrInvalidPacketLength = errors.New("invalid packet length")
	ErrAmountOverflow      = errors.New("packet amount exceeds 256 bits")
)

// PackPacket encodes the cross-chain settlement packet.
func PackPacket(recipient common.Address, amount *big.Int, feeDtoO []byte) ([]byte, error) {
	if amount.Sign() < 0 || amount.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %s", ErrAmountOverflow, amount)
	}
	data := make([]byte, packetAmountEnd+len(feeDtoO))
	copy(data[:packetRecipientEnd], recipient.Bytes())
	amount.FillBytes(data[packetRecipientEnd:packetAmountEnd])
	copy(data[packetAmountEnd:], feeDtoO)
	return data, nil
}

// UnpackPacket is the exact dual of PackPacket.
func UnpackPacket(data []byte) (common.Address, *big.Int, []byte, error) {
	if len(data) < packetAmountEnd {
		return common.Address{}, nil, nil, fmt.Errorf("%w: got %d, want at least %d", ErrInvalidPacketLength, len(data), packetAmountEnd)
	}
	recipient := common.BytesToAddress(data[:packetRecipientEnd])
	amount := new(big.Int).SetBytes(data[packetRecipientEnd:packetAmountEnd])
	feeDtoO := make([]byte, len(data)-packetAmountEnd)
	copy(feeDtoO, data[packetAmountEnd:])
	return recipient, amount, feeDtoO, nil
}
