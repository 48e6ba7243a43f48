// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/luxfi/geth/common"
)

// AddressRange represents a continuous range of addresses.
type AddressRange struct {
	Start common.Address
	End   common.Address
}

// Contains returns true iff addr is contained within the (inclusive)
// range of addresses defined by a.
func (a *AddressRange) Contains(addr common.Address) bool {
	addrBytes := addr.Bytes()
	return bytes.Compare(addrBytes, a.Start[:]) >= 0 && bytes.Compare(addrBytes, a.End[:]) <= 0
}

// SettlementRange is the reserved address range for liquid-staking
// settlement contracts (LP-91xx).
var SettlementRange = AddressRange{
	Start: common.HexToAddress("0x0000000000000000000000000000000000009100"),
	End:   common.HexToAddress("0x00000000000000000000000000000000000091ff"),
}

// Module binds a settlement contract to its address. Contracts are versioned:
// upgrades are explicit state transitions through UpgradeModule rather than
// code replacement behind a proxy.
type Module struct {
	Address  common.Address
	Version  uint32
	Contract interface{}
}

var (
	ErrAddressOutOfRange = errors.New("module address outside settlement range")
	ErrModuleExists      = errors.New("module already registered")
	ErrModuleNotFound    = errors.New("module not registered")
	ErrStaleVersion      = errors.New("upgrade version must increase")
)

var (
	registryMu sync.RWMutex

	// registeredModules preserves insertion order for deterministic iteration.
	registeredModules = make([]Module, 0)
)

// RegisterModule registers a settlement module at its address. The address
// must lie within SettlementRange and must not already be taken.
func RegisterModule(m Module) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if !SettlementRange.Contains(m.Address) {
		return fmt.Errorf("%w: %s", ErrAddressOutOfRange, m.Address)
	}
	for _, registered := range registeredModules {
		if registered.Address == m.Address {
			return fmt.Errorf("%w: %s", ErrModuleExists, m.Address)
		}
	}
	registeredModules = append(registeredModules, m)
	return nil
}

// UpgradeModule replaces the logic registered at addr with a newer version.
// The version must strictly increase; the transition is explicit rather than
// an in-place code swap.
func UpgradeModule(addr common.Address, version uint32, contract interface{}) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	for i, registered := range registeredModules {
		if registered.Address != addr {
			continue
		}
		if version <= registered.Version {
			return fmt.Errorf("%w: have v%d, got v%d", ErrStaleVersion, registered.Version, version)
		}
		registeredModules[i] = Module{Address: addr, Version: version, Contract: contract}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrModuleNotFound, addr)
}

// GetModule returns the module registered at addr.
func GetModule(addr common.Address) (Module, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, registered := range registeredModules {
		if registered.Address == addr {
			return registered, true
		}
	}
	return Module{}, false
}

// RegisteredModules returns all registered modules sorted by address.
func RegisteredModules() []Module {
	registryMu.RLock()
	defer registryMu.RUnlock()

	modules := make([]Module, len(registeredModules))
	copy(modules, registeredModules)
	sort.Slice(modules, func(i, j int) bool {
		return bytes.Compare(modules[i].Address[:], modules[j].Address[:]) < 0
	})
	return modules
}

// Reset clears the registry. Intended for tests.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()

	registeredModules = registeredModules[:0]
}
