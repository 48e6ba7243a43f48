// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry defines the contract addresses and chain selectors used by
// the liquid-staking settlement protocol, plus the versioned module registry
// every settlement contract registers with.
package registry

import "github.com/luxfi/geth/common"

// ============================================================================
// SETTLEMENT CONTRACT ADDRESS SCHEME
// ============================================================================
//
// All settlement contracts use trailing-significant 20-byte addresses in the
// LP-91xx range (Liquid Staking Settlement):
//   Format: 0x00000000000000000000000000000000000091II
//
//   II = 0x0x → shared infrastructure (tokens, router)
//   II = 0x1x → oracles
//   II = 0x2x → pools
//   II = 0x3x → senders
//   II = 0x4x → receivers and bridge adapters
//   II = 0x5x → automation
const (
	// Shared infrastructure
	WNativeAddress = "0x0000000000000000000000000000000000009101" // wrapped native (base asset)
	LinkAddress    = "0x0000000000000000000000000000000000009102" // messaging fee token
	RouterAddress  = "0x0000000000000000000000000000000000009103" // cross-chain message router

	// Oracles
	PriceOracleAddress          = "0x0000000000000000000000000000000000009110"
	PriceConverterOracleAddress = "0x0000000000000000000000000000000000009111"

	// Pools
	OraclePoolAddress = "0x0000000000000000000000000000000000009120"

	// Senders
	CustomSenderAddress = "0x0000000000000000000000000000000000009130"

	// Receivers and adapters
	ReceiverAddress         = "0x0000000000000000000000000000000000009140"
	ArbitrumAdapterAddress  = "0x0000000000000000000000000000000000009141"
	OptimismAdapterAddress  = "0x0000000000000000000000000000000000009142"
	BaseAdapterAddress      = "0x0000000000000000000000000000000000009143"
	MessagingAdapterAddress = "0x0000000000000000000000000000000000009144"

	// Automation
	SyncAutomationAddress = "0x0000000000000000000000000000000000009150"
)

// Chain selectors identify source/destination chains in the messaging layer.
// Selectors are messaging-layer identifiers, not EVM chain IDs.
const (
	SelectorEthereum uint64 = 5009297550715157269
	SelectorArbitrum uint64 = 4949039107694359620
	SelectorOptimism uint64 = 3734403246176062136
	SelectorBase     uint64 = 15971525489660198786
	SelectorLux      uint64 = 9636996369963699636
	SelectorHanzo    uint64 = 3696336963369633696
)

// Gas costs for settlement operations
const (
	GasFastStake      uint64 = 30_000 // local swap against pool liquidity
	GasSlowStake      uint64 = 90_000 // cross-chain dispatch
	GasSync           uint64 = 80_000 // reserve migration dispatch
	GasSwap           uint64 = 15_000 // pool swap
	GasOracleRead     uint64 = 3_000  // normalized price read
	GasReceiverHandle uint64 = 60_000 // message receipt + stake + bridge back
	GasAdapterBridge  uint64 = 40_000 // adapter return leg
)

// Well-known contract addresses, parsed once.
var (
	WNative          = common.HexToAddress(WNativeAddress)
	Link             = common.HexToAddress(LinkAddress)
	Router           = common.HexToAddress(RouterAddress)
	PriceOracle      = common.HexToAddress(PriceOracleAddress)
	OraclePool       = common.HexToAddress(OraclePoolAddress)
	CustomSender     = common.HexToAddress(CustomSenderAddress)
	Receiver         = common.HexToAddress(ReceiverAddress)
	ArbitrumAdapter  = common.HexToAddress(ArbitrumAdapterAddress)
	OptimismAdapter  = common.HexToAddress(OptimismAdapterAddress)
	BaseAdapter      = common.HexToAddress(BaseAdapterAddress)
	MessagingAdapter = common.HexToAddress(MessagingAdapterAddress)
	SyncAutomation   = common.HexToAddress(SyncAutomationAddress)
)
