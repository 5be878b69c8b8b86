// Package conformance is the black-box oracle for the reclaw gateway. It
// encodes the expected protocol behavior (run lifecycle, idempotency,
// cancellation scoping, timeout policy, channel/account views) as a fixed,
// ordered catalog of executable scenarios reachable only through the
// transport contract.
//
// # Structure
//
//   - Transport is the four-operation capability set every scenario is
//     written against. Production (internal/transport) and fake
//     (internal/testutil) implementations are interchangeable; nothing in
//     the catalog inspects which one it got.
//   - Catalog builds the scenario list from a Config. The expected protocol
//     version is injected here, never read from global state, so tests can
//     vary it without rebuilding the catalog.
//   - Runner executes the catalog strictly sequentially against one
//     transport. Scenarios may create session-level side effects, so order
//     and isolation matter more than throughput.
//   - Report aggregates the ordered outcomes; total and failed are derived,
//     never stored independently.
//
// # Failure policy
//
// Nothing a scenario observes is fatal to the run. Transport failures and
// protocol violations alike become one failed Outcome whose detail carries
// the actual observed values; the next scenario starts from a clean
// session regardless.
package conformance
