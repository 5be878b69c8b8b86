package conformance

import "github.com/google/uuid"

// KeyGenerator produces the run ids, session keys, and idempotency keys
// scenarios embed in their fixtures. Fresh keys per invocation keep
// repeated catalog runs from colliding with state left by earlier ones.
type KeyGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 keys.
//
// UUIDv7 embeds a timestamp in the most significant bits, which keeps keys
// sortable by creation time when reading gateway logs next to a report.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
