/*
Package audit proves that a historical calculation can be replayed and
justified.

PURPOSE:
  Two responsibilities: independently re-derive the engine's invariants
  (validator.go), and snapshot every calculation's inputs, outputs, and
  rules version into an immutable, append-only log (this file).

KEY CONCEPTS IN THIS FILE (record.go):
  - Record: One calculation's snapshot; created once, never updated
  - Log: Append-only persistence contract - Append and History, no
    Update, no Delete. Ever.

REPLAY CONTRACT:
  A Record pins the engine version and rules version alongside full
  input/output snapshots. Feeding InputsSnapshot back through the same
  engine and rules version must reproduce OutputsSnapshot byte for
  byte. History is a pure read path: it never feeds into or mutates a
  live calculation.

SEE ALSO:
  - validator.go: Invariant re-derivation
  - store/memory.go: In-memory Log for tests
  - ../store/sqlite: Durable Log implementation
*/
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateCalculationID is returned when a record with the same
// calculation ID already exists. Expected behavior for retries.
var ErrDuplicateCalculationID = errors.New("duplicate calculation id")

// =============================================================================
// RECORD - Immutable calculation snapshot
// =============================================================================

// Record is the append-only snapshot of one calculation. Immutable
// after creation; corrections are new calculations with new records.
type Record struct {
	CalculationID string
	DealID        string
	CalculatedAt  time.Time
	CalculatedBy  string
	EngineVersion string
	RulesVersion  string

	// Snapshots hold the canonical JSON serialization of the request
	// and result, with all decimals as strings.
	InputsSnapshot  json.RawMessage
	OutputsSnapshot json.RawMessage
}

// NewRecord builds a record for a completed calculation. The inputs and
// outputs must already be serialized to their canonical JSON form.
func NewRecord(dealID, actor, engineVersion, rulesVersion string, inputs, outputs json.RawMessage) Record {
	return Record{
		CalculationID:   uuid.NewString(),
		DealID:          dealID,
		CalculatedAt:    time.Now().UTC(),
		CalculatedBy:    actor,
		EngineVersion:   engineVersion,
		RulesVersion:    rulesVersion,
		InputsSnapshot:  inputs,
		OutputsSnapshot: outputs,
	}
}

// =============================================================================
// LOG - Append-only persistence contract
// =============================================================================

// Log stores audit records. IMPORTANT: append-only. No Update, no
// Delete. Concurrent appends need no coordination beyond what the
// underlying storage provides.
type Log interface {
	// Append persists a record. The record must never change afterwards.
	Append(ctx context.Context, rec Record) error

	// History returns the ordered (oldest first) record history for a
	// deal. Pure read path - must not influence a live calculation.
	History(ctx context.Context, dealID string) ([]Record, error)
}
