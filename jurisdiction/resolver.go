/*
resolver.go - Postal code to jurisdiction resolution

PURPOSE:
  Maps a postal code to its tax jurisdiction plus the active rate set
  and rule set. The engine consumes this data; it never computes or
  fetches it. Rate feeds and 50-state rule authoring live in an
  external collaborator - this package only defines the lookup contract
  and a table-backed implementation fed by the factory.

LOOKUP CONTRACT:
  Resolve returns ErrJurisdictionNotFound for unknown postal codes.
  It never defaults to a guessed rate: a wrong jurisdiction produces a
  legally wrong tax figure, so "not found" must surface to the caller.

SEE ALSO:
  - cache.go: TTL cache wrapping a Resolver
  - factory/rules.go: Builds TableResolver entries from JSON
*/
package jurisdiction

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrJurisdictionNotFound is returned when a postal code resolves to no
// known jurisdiction.
var ErrJurisdictionNotFound = errors.New("jurisdiction not found")

// NotFoundError carries the postal code that failed to resolve.
type NotFoundError struct {
	PostalCode string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("jurisdiction not found for postal code %q", e.PostalCode)
}

func (e *NotFoundError) Unwrap() error { return ErrJurisdictionNotFound }

// =============================================================================
// RESOLVER - Lookup contract
// =============================================================================

// Lookup is everything the tax engine needs from a resolved postal code.
type Lookup struct {
	Jurisdiction Jurisdiction
	Rates        TaxRateSet
	Rules        RuleSet
}

// Resolver resolves a postal code to its jurisdiction, rates, and rules.
// Implementations may block on network or disk; the engine awaits them
// synchronously and owns no retry policy.
type Resolver interface {
	Resolve(ctx context.Context, postalCode string) (Lookup, error)
}

// =============================================================================
// TABLE RESOLVER - Static in-memory table
// =============================================================================

// TableResolver resolves from an in-memory table keyed by postal code.
// Entries come from the factory's JSON rule tables.
type TableResolver struct {
	mu      sync.RWMutex
	entries map[string]Lookup
}

func NewTableResolver() *TableResolver {
	return &TableResolver{entries: make(map[string]Lookup)}
}

// Put registers or replaces the entry for a postal code. The lookup is
// validated before it is accepted - a corrupt table must fail loudly at
// load time, not at calculation time.
func (tr *TableResolver) Put(l Lookup) error {
	if l.Jurisdiction.PostalCode == "" {
		return fmt.Errorf("lookup missing postal code")
	}
	if err := l.Rates.Validate(); err != nil {
		return fmt.Errorf("rates for %s: %w", l.Jurisdiction.PostalCode, err)
	}
	if err := l.Rules.Validate(); err != nil {
		return fmt.Errorf("rules for %s: %w", l.Jurisdiction.PostalCode, err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.entries[l.Jurisdiction.PostalCode] = l
	return nil
}

func (tr *TableResolver) Resolve(_ context.Context, postalCode string) (Lookup, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	l, ok := tr.entries[postalCode]
	if !ok {
		return Lookup{}, &NotFoundError{PostalCode: postalCode}
	}
	return l, nil
}

// Len reports the number of registered postal codes.
func (tr *TableResolver) Len() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.entries)
}
