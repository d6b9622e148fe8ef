// Package cache provides keyed persistence of prior stage results.
//
// Entries are addressed by a request fingerprint and partitioned by operation
// kind so discovery, analysis and aggregation results never collide. Stores
// have no expiry policy: entries stay valid until explicitly cleared, and
// staleness is a caller concern (callers force-refresh by bypassing the read).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Kind partitions the cache by pipeline operation.
type Kind string

// Cache partitions, one per pipeline stage.
const (
	KindDiscovery   Kind = "discovery"
	KindAnalysis    Kind = "analysis"
	KindAggregation Kind = "aggregation"
)

// Valid reports whether k names a known partition.
func (k Kind) Valid() bool {
	switch k {
	case KindDiscovery, KindAnalysis, KindAggregation:
		return true
	}
	return false
}

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = errors.New("cache: entry not found")

// Entry is one cached stage result. Immutable once written; Put overwrites
// the whole entry, never patches it.
type Entry struct {
	Fingerprint string          `json:"fingerprint"`
	Kind        Kind            `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store is the cache persistence contract. Implementations must make Put
// atomic per key: a failed write leaves any prior entry readable.
type Store interface {
	// Get returns the entry for fingerprint within kind, or ErrNotFound.
	Get(ctx context.Context, fingerprint string, kind Kind) (*Entry, error)
	// Put stores payload under fingerprint within kind, overwriting any
	// prior entry for that key. Last write wins.
	Put(ctx context.Context, fingerprint string, kind Kind, payload json.RawMessage) error
	// Clear removes every entry in the given kind partition.
	Clear(ctx context.Context, kind Kind) error
	// Close releases backend resources.
	Close() error
}

// newEntry builds an Entry with the write timestamp set.
func newEntry(fingerprint string, kind Kind, payload json.RawMessage) *Entry {
	return &Entry{
		Fingerprint: fingerprint,
		Kind:        kind,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
}
