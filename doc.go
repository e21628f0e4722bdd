// Package postgresql manages resource items in a PostgreSQL database using
// pgx v5.
//
// Invariants:
//
//   - I1: statement execution requires an active transaction in the context.
//   - I2: nested transactions are savepoints; an inner rollback preserves
//     outer work.
//   - I3: connect-path and transaction-path errors are safe to log by default.
//   - I4: codec selection is deterministic; jsonb is the catch-all column type.
//   - I5: migration/session-level operations use a direct (non-pooled) URL.
//
// This package is framework-adjacent but framework-independent: it supplies
// the storage layer that resource operations are built on, without importing
// any web framework.
package postgresql
