// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"math/big"
	"sync"
)

// MockAggregator is a settable in-memory feed used in tests and local
// simulation.
type MockAggregator struct {
	mu sync.RWMutex

	answer    *big.Int
	updatedAt uint64
	decimals  uint8
	err       error
}

var _ Aggregator = (*MockAggregator)(nil)

// NewMockAggregator creates a feed with a fixed decimal count.
func NewMockAggregator(decimals uint8) *MockAggregator {
	return &MockAggregator{answer: big.NewInt(0), decimals: decimals}
}

// Set updates the feed's answer and timestamp.
func (m *MockAggregator) Set(answer *big.Int, updatedAt uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answer = new(big.Int).Set(answer)
	m.updatedAt = updatedAt
}

// Fail makes every subsequent read return err.
func (m *MockAggregator) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockAggregator) LatestRoundData() (*big.Int, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	return new(big.Int).Set(m.answer), m.updatedAt, nil
}

func (m *MockAggregator) Decimals() uint8 {
	return m.decimals
}
