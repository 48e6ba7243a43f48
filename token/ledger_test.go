// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var (
	testToken  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testAlice  = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testBob    = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	testSender = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

func TestMintTransferBurn(t *testing.T) {
	state := NewMockStateDB()

	require.NoError(t, Mint(state, testToken, testAlice, big.NewInt(1000)))
	require.Zero(t, BalanceOf(state, testToken, testAlice).Cmp(big.NewInt(1000)))
	require.Zero(t, TotalSupply(state, testToken).Cmp(big.NewInt(1000)))

	require.NoError(t, Transfer(state, testToken, testAlice, testBob, big.NewInt(400)))
	require.Zero(t, BalanceOf(state, testToken, testAlice).Cmp(big.NewInt(600)))
	require.Zero(t, BalanceOf(state, testToken, testBob).Cmp(big.NewInt(400)))

	err := Transfer(state, testToken, testAlice, testBob, big.NewInt(601))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	require.NoError(t, Burn(state, testToken, testBob, big.NewInt(400)))
	require.Zero(t, TotalSupply(state, testToken).Cmp(big.NewInt(600)))

	err = Burn(state, testToken, testBob, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestTransferFrom_Allowance(t *testing.T) {
	state := NewMockStateDB()
	require.NoError(t, Mint(state, testToken, testAlice, big.NewInt(1000)))

	err := TransferFrom(state, testToken, testAlice, testSender, testBob, big.NewInt(100))
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, Approve(state, testToken, testAlice, testSender, big.NewInt(250)))
	require.NoError(t, TransferFrom(state, testToken, testAlice, testSender, testBob, big.NewInt(100)))
	require.Zero(t, Allowance(state, testToken, testAlice, testSender).Cmp(big.NewInt(150)))
	require.Zero(t, BalanceOf(state, testToken, testBob).Cmp(big.NewInt(100)))

	err = TransferFrom(state, testToken, testAlice, testSender, testBob, big.NewInt(200))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
}

func TestWrapUnwrapNative(t *testing.T) {
	state := NewMockStateDB()
	wrapped := common.HexToAddress("0x2000000000000000000000000000000000000002")

	state.AddBalance(testAlice, uint256.NewInt(1000))

	require.NoError(t, WrapNative(state, wrapped, testAlice, big.NewInt(600)))
	require.Zero(t, BalanceOf(state, wrapped, testAlice).Cmp(big.NewInt(600)))
	require.Equal(t, uint64(400), state.GetBalance(testAlice).Uint64())

	err := WrapNative(state, wrapped, testAlice, big.NewInt(401))
	require.ErrorIs(t, err, ErrInsufficientNative)

	require.NoError(t, UnwrapNative(state, wrapped, testAlice, big.NewInt(600)))
	require.Equal(t, uint64(1000), state.GetBalance(testAlice).Uint64())
	require.Zero(t, BalanceOf(state, wrapped, testAlice).Sign())
}

func TestMoveNative(t *testing.T) {
	state := NewMockStateDB()
	state.AddBalance(testAlice, uint256.NewInt(100))

	require.NoError(t, MoveNative(state, testAlice, testBob, big.NewInt(40)))
	require.Equal(t, uint64(60), state.GetBalance(testAlice).Uint64())
	require.Equal(t, uint64(40), state.GetBalance(testBob).Uint64())

	err := MoveNative(state, testAlice, testBob, big.NewInt(61))
	require.ErrorIs(t, err, ErrInsufficientNative)
}

func TestIsNative(t *testing.T) {
	require.True(t, IsNative(common.Address{}))
	require.False(t, IsNative(testToken))
}
