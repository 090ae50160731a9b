// Package store provides SQLite-backed durable storage for templates,
// teams, gamedays, games and audit records.
//
// # Transactions
//
// Store.InTx hands out a *Tx. The engines never open transactions of their
// own: the host opens one per command, passes the Tx as the engine's
// repository, and the whole call commits or rolls back as one unit.
//
// # Deterministic Query Results
//
//   - Slots: ORDER BY field, slot_order, id
//   - Games: ORDER BY scheduled, field, id
//   - Audit records: ORDER BY created_at, id
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Timestamps are stored as RFC 3339 text in UTC so that lexical order is
// chronological order.
package store
