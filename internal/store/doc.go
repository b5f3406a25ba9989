// Package store provides SQLite-backed durable storage for tested-integer
// digests and the all-time statistics record.
//
// The store holds two tables:
//   - tested: one BLOB primary key per tested integer (SHA-256 digest)
//   - stats:  key/value rows; exactly one row keyed "all_time_stats"
//
// # Critical Patterns
//
// Idempotent membership
//   - INSERT ... ON CONFLICT(hash) DO NOTHING
//   - Inserting the same integer twice never errors and never adds a row
//
// Paired commits
//   - Checkpoint writes digests and the statistics record in ONE transaction
//   - A crash leaves either the pre- or post-checkpoint state
//
// Fail-closed corruption
//   - Open runs PRAGMA quick_check and decodes the stats row
//   - Failures surface as CORRUPT_STORE; nothing is repaired in place
//
// # Database Configuration
//
//   - WAL mode
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - cache_size=-64000: 64MB page cache
//
// Two drivers are supported: github.com/mattn/go-sqlite3 (cgo, default) and
// modernc.org/sqlite (pure Go). Both read and write the same file format.
package store
