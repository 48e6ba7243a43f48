// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package feecodec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestEncodeCCIP_KnownBytes(t *testing.T) {
	// maxFee=1e18, payInLink=false, gasLimit=1000000
	data, err := EncodeCCIP(e18(1), false, 1_000_000)
	require.NoError(t, err)
	require.Len(t, data, CCIPLength)

	// 1e18 = 0x0de0b6b3a7640000, left-padded to 16 bytes.
	expected := []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x0d, 0xe0, 0xb6, 0xb3, 0xa7, 0x64, 0x00, 0x00,
		0x00,                   // payInLink
		0x00, 0x0f, 0x42, 0x40, // gasLimit = 1000000
	}
	require.Equal(t, expected, data)
}

func TestCCIP_RoundTrip(t *testing.T) {
	cases := []FeeCCIP{
		{MaxFee: big.NewInt(0), PayInLink: false, GasLimit: 0},
		{MaxFee: e18(1), PayInLink: true, GasLimit: 200_000},
		{MaxFee: new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)), PayInLink: false, GasLimit: 1<<32 - 1},
	}
	for _, c := range cases {
		data, err := EncodeCCIP(c.MaxFee, c.PayInLink, c.GasLimit)
		require.NoError(t, err)

		decoded, err := DecodeCCIP(data)
		require.NoError(t, err)
		require.Zero(t, c.MaxFee.Cmp(decoded.MaxFee))
		require.Equal(t, c.PayInLink, decoded.PayInLink)
		require.Equal(t, c.GasLimit, decoded.GasLimit)
	}
}

func TestEncodeCCIP_WidthViolations(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err := EncodeCCIP(tooBig, false, 1)
	require.ErrorIs(t, err, ErrFeeOverflow)

	_, err = EncodeCCIP(big.NewInt(1), false, 1<<32)
	require.ErrorIs(t, err, ErrGasLimitOverflow)
}

func TestArbitrum_Derivation(t *testing.T) {
	maxSubmissionCost := e18(1)
	gasPriceBid := big.NewInt(2_000_000_000) // 2 gwei
	maxGas := uint64(100_000)

	data, err := EncodeArbitrum(maxSubmissionCost, maxGas, gasPriceBid)
	require.NoError(t, err)
	require.Len(t, data, ArbitrumLength)

	decoded, err := DecodeArbitrum(data)
	require.NoError(t, err)

	// feeAmount = maxSubmissionCost + gasPriceBid*maxGas
	expected := new(big.Int).Mul(gasPriceBid, new(big.Int).SetUint64(maxGas))
	expected.Add(expected, maxSubmissionCost)
	require.Zero(t, expected.Cmp(decoded.FeeAmount))
	require.Equal(t, maxGas, decoded.MaxGas)
	require.Zero(t, gasPriceBid.Cmp(decoded.GasPriceBid))

	// The submission cost is recoverable from the derived total.
	require.Zero(t, maxSubmissionCost.Cmp(decoded.MaxSubmissionCost()))
}

func TestEncodeArbitrum_WidthViolations(t *testing.T) {
	// Derived feeAmount overflows 128 bits.
	huge := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err := EncodeArbitrum(huge, 1, big.NewInt(1))
	require.ErrorIs(t, err, ErrFeeOverflow)

	_, err = EncodeArbitrum(big.NewInt(1), 1<<32, big.NewInt(1))
	require.ErrorIs(t, err, ErrGasLimitOverflow)

	bid := new(big.Int).Lsh(big.NewInt(1), 64)
	_, err = EncodeArbitrum(big.NewInt(1), 1, bid)
	require.ErrorIs(t, err, ErrGasPriceOverflow)
}

func TestStandardBridge_RoundTrip(t *testing.T) {
	data, err := EncodeOptimism(200_000)
	require.NoError(t, err)
	require.Len(t, data, StandardBridgeLength)

	decoded, err := DecodeOptimism(data)
	require.NoError(t, err)
	require.Equal(t, uint64(200_000), decoded.L2Gas)

	// Base shares the Optimism layout byte for byte.
	baseData, err := EncodeBase(200_000)
	require.NoError(t, err)
	require.Equal(t, data, baseData)

	baseDecoded, err := DecodeBase(baseData)
	require.NoError(t, err)
	require.Equal(t, decoded, baseDecoded)

	// feeAmount prefix is zero: the bridge itself is free.
	amount, payInLink, err := DecodeFeeAmount(data)
	require.NoError(t, err)
	require.Zero(t, amount.Sign())
	require.False(t, payInLink)

	_, err = EncodeOptimism(1 << 32)
	require.ErrorIs(t, err, ErrGasLimitOverflow)
}

func TestFeeType(t *testing.T) {
	require.Equal(t, ArbitrumLength, FeeTypeArbitrumBridge.Length())
	require.Equal(t, CCIPLength, FeeTypeCCIP.Length())
	require.Equal(t, StandardBridgeLength, FeeTypeOptimismBridge.Length())
	require.Equal(t, "base-bridge", FeeTypeBaseBridge.String())
	require.Equal(t, "unknown", FeeType(0).String())
}

func TestDecode_LengthViolations(t *testing.T) {
	_, err := DecodeCCIP(make([]byte, 20))
	require.ErrorIs(t, err, ErrInvalidLength)

	_, err = DecodeArbitrum(make([]byte, CCIPLength))
	require.ErrorIs(t, err, ErrInvalidLength)

	_, err = DecodeOptimism(make([]byte, 22))
	require.ErrorIs(t, err, ErrInvalidLength)

	_, _, err = DecodeFeeAmount(make([]byte, 16))
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestDecodeFeeAmount_SharedPrefix(t *testing.T) {
	ccip, err := EncodeCCIP(e18(2), true, 300_000)
	require.NoError(t, err)

	amount, payInLink, err := DecodeFeeAmount(ccip)
	require.NoError(t, err)
	require.Zero(t, e18(2).Cmp(amount))
	require.True(t, payInLink)

	arb, err := EncodeArbitrum(e18(1), 100_000, big.NewInt(1_000_000_000))
	require.NoError(t, err)

	amount, payInLink, err = DecodeFeeAmount(arb)
	require.NoError(t, err)
	require.False(t, payInLink)

	decoded, err := DecodeArbitrum(arb)
	require.NoError(t, err)
	require.Zero(t, amount.Cmp(decoded.FeeAmount))
}
