// Package store provides audit.Log implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/deal-engine/audit"
)

// =============================================================================
// MEMORY LOG - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	byDeal map[string][]audit.Record
	byCalc map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		byDeal: make(map[string][]audit.Record),
		byCalc: make(map[string]bool),
	}
}

// Append adds a record. Append-only; a duplicate calculation ID is
// rejected rather than overwritten.
func (m *Memory) Append(_ context.Context, rec audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byCalc[rec.CalculationID] {
		return audit.ErrDuplicateCalculationID
	}
	m.byCalc[rec.CalculationID] = true
	m.byDeal[rec.DealID] = append(m.byDeal[rec.DealID], rec)
	return nil
}

// History returns the records for a deal in append order.
func (m *Memory) History(_ context.Context, dealID string) ([]audit.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]audit.Record, len(m.byDeal[dealID]))
	copy(records, m.byDeal[dealID])
	return records, nil
}
