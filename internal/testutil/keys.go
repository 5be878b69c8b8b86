// Package testutil provides deterministic helpers for conformance tests:
// a sequential key generator and an in-memory fake gateway implementing the
// transport contract.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialKeyGenerator returns "<prefix>-0001", "<prefix>-0002", ... so
// tests produce stable run and session keys instead of random UUIDs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialKeyGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialKeyGenerator creates a generator with the given prefix.
// An empty prefix defaults to "key".
func NewSequentialKeyGenerator(prefix string) *SequentialKeyGenerator {
	if prefix == "" {
		prefix = "key"
	}
	return &SequentialKeyGenerator{prefix: prefix}
}

// Generate returns the next key in sequence.
func (g *SequentialKeyGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
