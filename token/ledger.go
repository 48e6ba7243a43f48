// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token implements the fungible-token ledger the settlement
// contracts move assets through. Balances and allowances live in contract
// storage under blake3-derived keys; the native coin is handled through the
// account balance directly, with WrapNative bridging the two.
package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// StateDB is the subset of EVM state the settlement contracts need.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
}

// Storage key prefixes for ledger state.
var (
	balancePrefix   = []byte("token/bal")
	allowancePrefix = []byte("token/alw")
	supplyPrefix    = []byte("token/sup")
)

var (
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
	ErrInsufficientNative    = errors.New("insufficient native balance")
	ErrAmountTooLarge        = errors.New("amount exceeds 256 bits")
)

// Native is the zero address, denoting the unwrapped native coin.
var Native = common.Address{}

// IsNative returns true if addr denotes the native coin.
func IsNative(addr common.Address) bool {
	return addr == Native
}

func makeStorageKey(prefix []byte, ids ...[]byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	for _, id := range ids {
		h.Write(id)
	}
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

func balanceKey(token, holder common.Address) common.Hash {
	return makeStorageKey(balancePrefix, token.Bytes(), holder.Bytes())
}

func allowanceKey(token, owner, spender common.Address) common.Hash {
	return makeStorageKey(allowancePrefix, token.Bytes(), owner.Bytes(), spender.Bytes())
}

func supplyKey(token common.Address) common.Hash {
	return makeStorageKey(supplyPrefix, token.Bytes())
}

func readAmount(state StateDB, token common.Address, key common.Hash) *big.Int {
	value := state.GetState(token, key)
	return new(big.Int).SetBytes(value[:])
}

func writeAmount(state StateDB, token common.Address, key common.Hash, amount *big.Int) {
	var value common.Hash
	amount.FillBytes(value[:])
	state.SetState(token, key, value)
}

// BalanceOf returns holder's balance of token.
func BalanceOf(state StateDB, token, holder common.Address) *big.Int {
	return readAmount(state, token, balanceKey(token, holder))
}

// TotalSupply returns the minted supply of token.
func TotalSupply(state StateDB, token common.Address) *big.Int {
	return readAmount(state, token, supplyKey(token))
}

// Allowance returns the amount spender may move from owner.
func Allowance(state StateDB, token, owner, spender common.Address) *big.Int {
	return readAmount(state, token, allowanceKey(token, owner, spender))
}

// Approve sets spender's allowance over owner's balance of token.
func Approve(state StateDB, token, owner, spender common.Address, amount *big.Int) error {
	if amount.BitLen() > 256 {
		return fmt.Errorf("%w: %s", ErrAmountTooLarge, amount)
	}
	writeAmount(state, token, allowanceKey(token, owner, spender), amount)
	return nil
}

// Transfer moves amount of token from one holder to another.
func Transfer(state StateDB, token, from, to common.Address, amount *big.Int) error {
	fromKey := balanceKey(token, from)
	balance := readAmount(state, token, fromKey)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}
	writeAmount(state, token, fromKey, new(big.Int).Sub(balance, amount))

	toKey := balanceKey(token, to)
	writeAmount(state, token, toKey, new(big.Int).Add(readAmount(state, token, toKey), amount))
	return nil
}

// TransferFrom moves amount from owner to recipient, spending spender's
// allowance.
func TransferFrom(state StateDB, token, owner, spender, to common.Address, amount *big.Int) error {
	key := allowanceKey(token, owner, spender)
	allowance := readAmount(state, token, key)
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientAllowance, allowance, amount)
	}
	if err := Transfer(state, token, owner, to, amount); err != nil {
		return err
	}
	writeAmount(state, token, key, new(big.Int).Sub(allowance, amount))
	return nil
}

// Mint credits amount of token to holder and grows the supply.
func Mint(state StateDB, token, holder common.Address, amount *big.Int) error {
	if amount.BitLen() > 256 {
		return fmt.Errorf("%w: %s", ErrAmountTooLarge, amount)
	}
	key := balanceKey(token, holder)
	writeAmount(state, token, key, new(big.Int).Add(readAmount(state, token, key), amount))
	writeAmount(state, token, supplyKey(token), new(big.Int).Add(TotalSupply(state, token), amount))
	return nil
}

// Burn debits amount of token from holder and shrinks the supply.
func Burn(state StateDB, token, holder common.Address, amount *big.Int) error {
	key := balanceKey(token, holder)
	balance := readAmount(state, token, key)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}
	writeAmount(state, token, key, new(big.Int).Sub(balance, amount))
	writeAmount(state, token, supplyKey(token), new(big.Int).Sub(TotalSupply(state, token), amount))
	return nil
}

// WrapNative moves amount of holder's native balance into the wrapped token.
func WrapNative(state StateDB, wrapped, holder common.Address, amount *big.Int) error {
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return fmt.Errorf("%w: %s", ErrAmountTooLarge, amount)
	}
	if state.GetBalance(holder).Cmp(value) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientNative, state.GetBalance(holder), amount)
	}
	state.SubBalance(holder, value)
	return Mint(state, wrapped, holder, amount)
}

// UnwrapNative burns amount of holder's wrapped balance back into native.
func UnwrapNative(state StateDB, wrapped, holder common.Address, amount *big.Int) error {
	if err := Burn(state, wrapped, holder, amount); err != nil {
		return err
	}
	value, _ := uint256.FromBig(amount)
	state.AddBalance(holder, value)
	return nil
}

// MoveNative transfers native balance between accounts, failing on shortfall.
func MoveNative(state StateDB, from, to common.Address, amount *big.Int) error {
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return fmt.Errorf("%w: %s", ErrAmountTooLarge, amount)
	}
	if state.GetBalance(from).Cmp(value) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientNative, state.GetBalance(from), amount)
	}
	state.SubBalance(from, value)
	state.AddBalance(to, value)
	return nil
}
