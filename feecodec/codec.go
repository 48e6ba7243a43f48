// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package feecodec implements the fixed-layout byte encoding for cross-chain
// messaging fees. The layouts are the canonical wire format shared between
// the origin chain, the execution chain, and any off-chain estimator: a fee
// payload crosses chains as opaque bytes and only the consuming side
// interprets it, so the layout is contractually fixed rather than a generic
// serialization format.
//
// Every layout starts with the same 17-byte prefix (feeAmount:16 ‖
// payInLink:1) so the funding amount can be read without knowing the variant.
//
//	CCIP:           maxFee:16        ‖ payInLink:1 ‖ gasLimit:4               = 21 bytes
//	ArbitrumBridge: feeAmount:16     ‖ payInLink:1 ‖ maxGas:4 ‖ gasPriceBid:8 = 29 bytes
//	Optimism/Base:  feeAmount:16(=0) ‖ payInLink:1 ‖ l2Gas:4                  = 21 bytes
//
// where the Arbitrum feeAmount is derived: maxSubmissionCost + gasPriceBid*maxGas.
package feecodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// FeeType tags which layout a fee payload uses. The tag never travels on the
// wire; each consumer knows its layout from the lane it serves.
type FeeType uint8

const (
	FeeTypeCCIP FeeType = iota + 1
	FeeTypeArbitrumBridge
	FeeTypeOptimismBridge
	FeeTypeBaseBridge
)

// Length returns the fixed payload size for the layout.
func (t FeeType) Length() int {
	if t == FeeTypeArbitrumBridge {
		return ArbitrumLength
	}
	return CCIPLength
}

func (t FeeType) String() string {
	switch t {
	case FeeTypeCCIP:
		return "ccip"
	case FeeTypeArbitrumBridge:
		return "arbitrum-bridge"
	case FeeTypeOptimismBridge:
		return "optimism-bridge"
	case FeeTypeBaseBridge:
		return "base-bridge"
	default:
		return "unknown"
	}
}

// Layout sizes in bytes.
const (
	CCIPLength           = 21
	ArbitrumLength       = 29
	StandardBridgeLength = 21

	feeAmountWidth = 16
	prefixLength   = feeAmountWidth + 1
)

var (
	ErrFeeOverflow      = errors.New("fee amount exceeds 128 bits")
	ErrGasLimitOverflow = errors.New("gas limit exceeds 32 bits")
	ErrGasPriceOverflow = errors.New("gas price bid exceeds 64 bits")
	ErrInvalidLength    = errors.New("invalid fee data length")
)

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxUint32  = uint64(1<<32 - 1)
)

// FeeCCIP is the fee schedule for a CCIP message.
type FeeCCIP struct {
	MaxFee    *big.Int
	PayInLink bool
	GasLimit  uint64
}

// FeeArbitrum is the fee schedule for an Arbitrum retryable-ticket bridge leg.
// FeeAmount is the derived total: maxSubmissionCost + gasPriceBid*maxGas.
type FeeArbitrum struct {
	FeeAmount   *big.Int
	MaxGas      uint64
	GasPriceBid *big.Int
}

// MaxSubmissionCost recovers the submission cost from the derived fee amount.
func (f FeeArbitrum) MaxSubmissionCost() *big.Int {
	execution := new(big.Int).Mul(f.GasPriceBid, new(big.Int).SetUint64(f.MaxGas))
	return new(big.Int).Sub(f.FeeAmount, execution)
}

// FeeStandardBridge is the fee schedule for an Optimism- or Base-style
// standard bridge leg. The bridge itself is free; only the L2 gas limit
// travels in the payload.
type FeeStandardBridge struct {
	L2Gas uint64
}

// EncodeCCIP encodes a CCIP fee schedule into its 21-byte layout.
// Fails if maxFee exceeds 128 bits or gasLimit exceeds 32 bits.
func EncodeCCIP(maxFee *big.Int, payInLink bool, gasLimit uint64) ([]byte, error) {
	if maxFee.Sign() < 0 || maxFee.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrFeeOverflow, maxFee)
	}
	if gasLimit > maxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrGasLimitOverflow, gasLimit)
	}

	data := make([]byte, CCIPLength)
	maxFee.FillBytes(data[:feeAmountWidth])
	if payInLink {
		data[feeAmountWidth] = 1
	}
	binary.BigEndian.PutUint32(data[prefixLength:], uint32(gasLimit))
	return data, nil
}

// DecodeCCIP is the exact dual of EncodeCCIP.
func DecodeCCIP(data []byte) (FeeCCIP, error) {
	if len(data) != CCIPLength {
		return FeeCCIP{}, fmt.Errorf("%w: got %d, want %d", ErrInvalidLength, len(data), CCIPLength)
	}
	return FeeCCIP{
		MaxFee:    new(big.Int).SetBytes(data[:feeAmountWidth]),
		PayInLink: data[feeAmountWidth] != 0,
		GasLimit:  uint64(binary.BigEndian.Uint32(data[prefixLength:])),
	}, nil
}

// EncodeArbitrum encodes an Arbitrum bridge fee schedule into its 29-byte
// layout. The fee amount is derived as maxSubmissionCost + gasPriceBid*maxGas
// and must fit in 128 bits; maxGas must fit in 32 bits and gasPriceBid in 64.
func EncodeArbitrum(maxSubmissionCost *big.Int, maxGas uint64, gasPriceBid *big.Int) ([]byte, error) {
	if maxGas > maxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrGasLimitOverflow, maxGas)
	}
	if gasPriceBid.Sign() < 0 || gasPriceBid.BitLen() > 64 {
		return nil, fmt.Errorf("%w: %s", ErrGasPriceOverflow, gasPriceBid)
	}

	feeAmount := new(big.Int).Mul(gasPriceBid, new(big.Int).SetUint64(maxGas))
	feeAmount.Add(feeAmount, maxSubmissionCost)
	if feeAmount.Sign() < 0 || feeAmount.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrFeeOverflow, feeAmount)
	}

	data := make([]byte, ArbitrumLength)
	feeAmount.FillBytes(data[:feeAmountWidth])
	// payInLink byte stays zero: native bridges cannot pay in LINK.
	binary.BigEndian.PutUint32(data[prefixLength:prefixLength+4], uint32(maxGas))
	binary.BigEndian.PutUint64(data[prefixLength+4:], gasPriceBid.Uint64())
	return data, nil
}

// DecodeArbitrum is the exact dual of EncodeArbitrum.
func DecodeArbitrum(data []byte) (FeeArbitrum, error) {
	if len(data) != ArbitrumLength {
		return FeeArbitrum{}, fmt.Errorf("%w: got %d, want %d", ErrInvalidLength, len(data), ArbitrumLength)
	}
	return FeeArbitrum{
		FeeAmount:   new(big.Int).SetBytes(data[:feeAmountWidth]),
		MaxGas:      uint64(binary.BigEndian.Uint32(data[prefixLength : prefixLength+4])),
		GasPriceBid: new(big.Int).SetUint64(binary.BigEndian.Uint64(data[prefixLength+4:])),
	}, nil
}

// EncodeOptimism encodes an Optimism standard-bridge fee schedule.
func EncodeOptimism(l2Gas uint64) ([]byte, error) {
	return encodeStandardBridge(l2Gas)
}

// EncodeBase encodes a Base standard-bridge fee schedule. Base uses the
// Optimism bridge contracts, so the layout is identical.
func EncodeBase(l2Gas uint64) ([]byte, error) {
	return encodeStandardBridge(l2Gas)
}

func encodeStandardBridge(l2Gas uint64) ([]byte, error) {
	if l2Gas > maxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrGasLimitOverflow, l2Gas)
	}
	data := make([]byte, StandardBridgeLength)
	binary.BigEndian.PutUint32(data[prefixLength:], uint32(l2Gas))
	return data, nil
}

// DecodeOptimism is the exact dual of EncodeOptimism.
func DecodeOptimism(data []byte) (FeeStandardBridge, error) {
	return decodeStandardBridge(data)
}

// DecodeBase is the exact dual of EncodeBase.
func DecodeBase(data []byte) (FeeStandardBridge, error) {
	return decodeStandardBridge(data)
}

func decodeStandardBridge(data []byte) (FeeStandardBridge, error) {
	if len(data) != StandardBridgeLength {
		return FeeStandardBridge{}, fmt.Errorf("%w: got %d, want %d", ErrInvalidLength, len(data), StandardBridgeLength)
	}
	return FeeStandardBridge{
		L2Gas: uint64(binary.BigEndian.Uint32(data[prefixLength:])),
	}, nil
}

// DecodeFeeAmount reads the shared 17-byte prefix of any fee layout: the
// amount that must be funded and whether it is paid in LINK. Callers that
// only need to budget a fee use this instead of the variant decoder.
func DecodeFeeAmount(data []byte) (*big.Int, bool, error) {
	if len(data) < prefixLength {
		return nil, false, fmt.Errorf("%w: got %d, want at least %d", ErrInvalidLength, len(data), prefixLength)
	}
	return new(big.Int).SetBytes(data[:feeAmountWidth]), data[feeAmountWidth] != 0, nil
}
