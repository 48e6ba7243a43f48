// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package automation

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/liquidstake/feecodec"
	"github.com/luxfi/liquidstake/oracle"
	"github.com/luxfi/liquidstake/pool"
	"github.com/luxfi/liquidstake/receiver"
	"github.com/luxfi/liquidstake/registry"
	"github.com/luxfi/liquidstake/router"
	"github.com/luxfi/liquidstake/sender"
	"github.com/luxfi/liquidstake/token"
)

var (
	automationAddr = registry.SyncAutomation
	senderAddr     = registry.CustomSender
	poolAddr       = registry.OraclePool
	receiverAddr   = registry.Receiver
	escrowAddr     = registry.Router
	wnative        = registry.WNative
	linkAddr       = registry.Link
	vaultAddr      = common.HexToAddress("0x0000000000000000000000000000000000009145")
	ownerAddr      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	userAddr       = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	receiptAddr    = common.HexToAddress("0x0000000000000000000000000000000000009105")
)

const (
	originSelector = registry.SelectorEthereum
	destSelector   = registry.SelectorArbitrum
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// newFixture wires the full stack and an automation with min=2e18, max=5e18,
// delay=600s.
func newFixture(t *testing.T) (*SyncAutomation, *sender.CustomSender, *token.MockStateDB, *router.LocalRouter) {
	t.Helper()

	agg := oracle.NewMockAggregator(18)
	agg.Set(e18(1), 1000)
	priceOracle, err := oracle.NewPriceOracle(ownerAddr, agg, false, 3600)
	require.NoError(t, err)

	p, err := pool.New(poolAddr, senderAddr, ownerAddr, wnative, receiptAddr, priceOracle, big.NewInt(0))
	require.NoError(t, err)

	r := router.NewLocalRouter(originSelector, escrowAddr, memdb.New(), log.NewTestLogger(log.InfoLevel))
	r.SetLane(destSelector, router.LaneConfig{BaseFee: big.NewInt(1000), FeePerGas: big.NewInt(2)})

	s := sender.New(senderAddr, wnative, linkAddr, ownerAddr, p, r, log.NewTestLogger(log.InfoLevel))
	require.NoError(t, s.SetReceiver(ownerAddr, destSelector, receiverAddr))

	staker, err := receiver.NewFixedRateStaker(vaultAddr, wnative, receiptAddr, e18(1))
	require.NoError(t, err)
	recv := receiver.New(receiverAddr, wnative, ownerAddr, staker, log.NewTestLogger(log.InfoLevel))
	require.NoError(t, recv.SetTrustedSender(ownerAddr, originSelector, senderAddr.Bytes()))
	require.NoError(t, recv.SetAdapter(ownerAddr, originSelector, receiver.NewOptimismStandardAdapter(receiptAddr)))
	r.RegisterHandler(destSelector, receiverAddr, recv)

	a, err := New(automationAddr, ownerAddr, s, destSelector, e18(2), e18(5), 600, log.NewTestLogger(log.InfoLevel))
	require.NoError(t, err)
	require.NoError(t, s.GrantRole(ownerAddr, sender.SyncRole, automationAddr))

	feeOtoD, err := feecodec.EncodeCCIP(e18(1), false, 500)
	require.NoError(t, err)
	feeDtoO, err := feecodec.EncodeOptimism(200_000)
	require.NoError(t, err)
	require.NoError(t, a.SetFeeData(ownerAddr, feeOtoD, feeDtoO))

	state := token.NewMockStateDB()
	require.NoError(t, token.Mint(state, receiptAddr, poolAddr, e18(1000)))
	state.AddBalance(automationAddr, uint256.NewInt(1_000_000))
	return a, s, state, r
}

// fill pushes amount of native through a fast stake so the pool reserve
// grows.
func fill(t *testing.T, s *sender.CustomSender, state *token.MockStateDB, amount *big.Int, now uint64) {
	t.Helper()
	state.AddBalance(userAddr, uint256.MustFromBig(amount))
	_, err := s.FastStake(state, userAddr, common.Address{}, amount, big.NewInt(0), now)
	require.NoError(t, err)
}

func TestNew_BadAmounts(t *testing.T) {
	_, err := New(automationAddr, ownerAddr, nil, destSelector, e18(5), e18(2), 600, log.NewTestLogger(log.InfoLevel))
	require.ErrorIs(t, err, ErrBadAmounts)
}

func TestCheckUpkeep_Gating(t *testing.T) {
	a, s, state, _ := newFixture(t)

	// Reserve below the minimum.
	fill(t, s, state, e18(1), 1000)
	needed, _ := a.CheckUpkeep(1000)
	require.False(t, needed)

	// Reserve reaches the minimum.
	fill(t, s, state, e18(1), 1000)
	needed, amount := a.CheckUpkeep(1000)
	require.True(t, needed)
	require.Zero(t, amount.Cmp(e18(2)))

	// After an upkeep the cooldown gates further syncs.
	_, err := a.PerformUpkeep(state, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), a.LastExecution())

	fill(t, s, state, e18(2), 1000)
	needed, _ = a.CheckUpkeep(1599)
	require.False(t, needed)
	needed, _ = a.CheckUpkeep(1600)
	require.True(t, needed)

	// A reserve above the ceiling halts syncs entirely.
	fill(t, s, state, e18(7), 1000)
	needed, _ = a.CheckUpkeep(1600)
	require.False(t, needed)

	// Widening the window resumes them, with the full reserve reported.
	require.NoError(t, a.SetBounds(ownerAddr, e18(2), e18(20), 600))
	needed, amount = a.CheckUpkeep(1600)
	require.True(t, needed)
	require.Zero(t, amount.Cmp(e18(9)))
}

func TestPerformUpkeep(t *testing.T) {
	a, s, state, r := newFixture(t)

	_, err := a.PerformUpkeep(state, 1000)
	require.ErrorIs(t, err, ErrUpkeepNotNeeded)

	// A reserve above the ceiling is never pushed through piecemeal.
	fill(t, s, state, e18(8), 1000)
	_, err = a.PerformUpkeep(state, 1000)
	require.ErrorIs(t, err, ErrUpkeepNotNeeded)
	require.Zero(t, s.Pool().QuoteReserve().Cmp(e18(8)))

	// Once the owner widens the window, the full reserve syncs.
	require.NoError(t, a.SetBounds(ownerAddr, e18(2), e18(10), 600))
	id, err := a.PerformUpkeep(state, 1000)
	require.NoError(t, err)
	require.Zero(t, s.Pool().QuoteReserve().Sign())

	// The sync lands receipt tokens back in the pool.
	before := token.BalanceOf(state, receiptAddr, poolAddr)
	require.NoError(t, r.Deliver(state, id))
	after := token.BalanceOf(state, receiptAddr, poolAddr)
	require.Zero(t, new(big.Int).Sub(after, before).Cmp(e18(8)))

	// Cooldown blocks an immediate second upkeep even with reserve waiting.
	fill(t, s, state, e18(3), 1000)
	_, err = a.PerformUpkeep(state, 1100)
	require.ErrorIs(t, err, ErrUpkeepNotNeeded)

	// Past the cooldown, it syncs.
	_, err = a.PerformUpkeep(state, 1600)
	require.NoError(t, err)
	require.Zero(t, s.Pool().QuoteReserve().Sign())
}

func TestSetters_OwnerOnly(t *testing.T) {
	a, _, _, _ := newFixture(t)

	require.ErrorIs(t, a.SetFeeData(userAddr, nil, nil), ErrOnlyOwner)
	require.ErrorIs(t, a.SetBounds(userAddr, e18(1), e18(2), 60), ErrOnlyOwner)
	require.ErrorIs(t, a.SetBounds(ownerAddr, e18(3), e18(2), 60), ErrBadAmounts)
	require.NoError(t, a.SetBounds(ownerAddr, e18(1), e18(2), 60))
}
