// Package history provides SQLite-backed storage for past conformance
// runs. Each recorded run keeps the base URL it was executed against, the
// aggregate counts, and the full ordered outcome list, so a regression can
// be traced to the exact scenario and observed detail that flipped.
//
// The database is configured the same way on every open:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement (outcomes cascade with their run)
package history
