// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestSettlementRange_Contains(t *testing.T) {
	require.True(t, SettlementRange.Contains(OraclePool))
	require.True(t, SettlementRange.Contains(CustomSender))
	require.True(t, SettlementRange.Contains(SyncAutomation))
	require.False(t, SettlementRange.Contains(common.HexToAddress("0x0000000000000000000000000000000000009200")))
	require.False(t, SettlementRange.Contains(common.HexToAddress("0x0000000000000000000000000000000000000001")))
}

func TestRegisterModule(t *testing.T) {
	Reset()

	err := RegisterModule(Module{Address: OraclePool, Version: 1})
	require.NoError(t, err)

	// Duplicate address rejected.
	err = RegisterModule(Module{Address: OraclePool, Version: 2})
	require.ErrorIs(t, err, ErrModuleExists)

	// Out-of-range address rejected.
	err = RegisterModule(Module{Address: common.HexToAddress("0xdead"), Version: 1})
	require.ErrorIs(t, err, ErrAddressOutOfRange)

	m, ok := GetModule(OraclePool)
	require.True(t, ok)
	require.Equal(t, uint32(1), m.Version)
}

func TestUpgradeModule(t *testing.T) {
	Reset()

	require.NoError(t, RegisterModule(Module{Address: CustomSender, Version: 1}))

	// Version must strictly increase.
	err := UpgradeModule(CustomSender, 1, nil)
	require.ErrorIs(t, err, ErrStaleVersion)

	require.NoError(t, UpgradeModule(CustomSender, 2, nil))
	m, ok := GetModule(CustomSender)
	require.True(t, ok)
	require.Equal(t, uint32(2), m.Version)

	// Unknown address.
	err = UpgradeModule(Receiver, 2, nil)
	require.ErrorIs(t, err, ErrModuleNotFound)
}

func TestRegisteredModules_SortedByAddress(t *testing.T) {
	Reset()

	require.NoError(t, RegisterModule(Module{Address: SyncAutomation, Version: 1}))
	require.NoError(t, RegisterModule(Module{Address: WNative, Version: 1}))
	require.NoError(t, RegisterModule(Module{Address: Receiver, Version: 1}))

	modules := RegisteredModules()
	require.Len(t, modules, 3)
	require.Equal(t, WNative, modules[0].Address)
	require.Equal(t, Receiver, modules[1].Address)
	require.Equal(t, SyncAutomation, modules[2].Address)
}
