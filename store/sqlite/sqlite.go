/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements the append-only audit log (audit.Log) plus versioned
  rule-table persistence using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  audit.Log: Append-only calculation audit records

APPEND-ONLY ENFORCEMENT:
  The audit_records table is append-only:
  - No UPDATE statements on audit_records
  - No DELETE statements on audit_records
  - A duplicate calculation ID is rejected, never overwritten

KEY TABLES:
  audit_records: Immutable snapshots of every calculation
  rule_tables:   Versioned jurisdiction rule-table snapshots, kept so a
                 historical calculation's rules version can be replayed

INDEXES:
  idx_audit_deal:          History lookups by deal (hot path)
  idx_audit_calculated_at: Time-ordered admin views

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/deals.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - audit/record.go: Interface definition
  - audit/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/deal-engine/audit"
)

// Store implements audit.Log and rule-table persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Audit records (append-only)
	CREATE TABLE IF NOT EXISTS audit_records (
		calculation_id TEXT PRIMARY KEY,
		deal_id TEXT NOT NULL,
		calculated_at TEXT NOT NULL,
		calculated_by TEXT NOT NULL,
		engine_version TEXT NOT NULL,
		rules_version TEXT NOT NULL,
		inputs_json TEXT NOT NULL,
		outputs_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_deal
		ON audit_records(deal_id, calculated_at);
	CREATE INDEX IF NOT EXISTS idx_audit_calculated_at
		ON audit_records(calculated_at);

	-- Rule tables (versioned snapshots for replay)
	CREATE TABLE IF NOT EXISTS rule_tables (
		rules_version TEXT PRIMARY KEY,
		table_json TEXT NOT NULL,
		loaded_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// AUDIT LOG (audit.Log interface)
// =============================================================================

// Append adds an audit record. The ONLY write path into audit_records.
func (s *Store) Append(ctx context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO audit_records
		(calculation_id, deal_id, calculated_at, calculated_by, engine_version, rules_version, inputs_json, outputs_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.CalculationID,
		rec.DealID,
		rec.CalculatedAt.UTC().Format(time.RFC3339Nano),
		rec.CalculatedBy,
		rec.EngineVersion,
		rec.RulesVersion,
		string(rec.InputsSnapshot),
		string(rec.OutputsSnapshot),
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return audit.ErrDuplicateCalculationID
		}
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// History returns the ordered record history for a deal, oldest first.
func (s *Store) History(ctx context.Context, dealID string) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT calculation_id, deal_id, calculated_at, calculated_by, engine_version, rules_version, inputs_json, outputs_json
		FROM audit_records
		WHERE deal_id = ?
		ORDER BY calculated_at ASC, calculation_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []audit.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (audit.Record, error) {
	var (
		rec          audit.Record
		calculatedAt string
		inputs       string
		outputs      string
	)

	err := rows.Scan(
		&rec.CalculationID, &rec.DealID, &calculatedAt, &rec.CalculatedBy,
		&rec.EngineVersion, &rec.RulesVersion, &inputs, &outputs,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan audit record: %w", err)
	}

	rec.CalculatedAt, _ = time.Parse(time.RFC3339Nano, calculatedAt)
	rec.InputsSnapshot = []byte(inputs)
	rec.OutputsSnapshot = []byte(outputs)
	return rec, nil
}

// =============================================================================
// RULE TABLE STORE
// =============================================================================

// RuleTableRecord is a stored rule-table snapshot.
type RuleTableRecord struct {
	RulesVersion string
	TableJSON    string
	LoadedAt     time.Time
}

// SaveRuleTable persists a rule-table snapshot. Re-loading the same
// version refreshes the snapshot.
func (s *Store) SaveRuleTable(ctx context.Context, rulesVersion, tableJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rule_tables (rules_version, table_json, loaded_at)
		VALUES (?, ?, ?)
		ON CONFLICT(rules_version) DO UPDATE SET
			table_json = excluded.table_json,
			loaded_at = excluded.loaded_at
	`

	_, err := s.db.ExecContext(ctx, query,
		rulesVersion, tableJSON, time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetRuleTable retrieves a rule-table snapshot by version. Returns nil
// when the version is unknown.
func (s *Store) GetRuleTable(ctx context.Context, rulesVersion string) (*RuleTableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec RuleTableRecord
	var loadedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT rules_version, table_json, loaded_at FROM rule_tables WHERE rules_version = ?",
		rulesVersion,
	).Scan(&rec.RulesVersion, &rec.TableJSON, &loadedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.LoadedAt, _ = time.Parse(time.RFC3339, loadedAt)
	return &rec, nil
}

// ListRuleTables returns all stored rule-table versions, newest first.
func (s *Store) ListRuleTables(ctx context.Context) ([]RuleTableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT rules_version, table_json, loaded_at FROM rule_tables ORDER BY loaded_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RuleTableRecord
	for rows.Next() {
		var rec RuleTableRecord
		var loadedAt string
		if err := rows.Scan(&rec.RulesVersion, &rec.TableJSON, &loadedAt); err != nil {
			return nil, err
		}
		rec.LoadedAt, _ = time.Parse(time.RFC3339, loadedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// CountAuditRecords returns the total number of audit records.
func (s *Store) CountAuditRecords(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records").Scan(&count)
	return count, err
}
