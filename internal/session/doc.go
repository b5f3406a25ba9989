// Package session drives one sampling session against a store.
//
// A session moves through these states:
//
//	INIT → SAMPLING → (DUPLICATE-SKIP | EVALUATE-AND-RECORD) → [CHECKPOINT] → FINALIZE → DONE
//
// with ABORTED replacing DONE when a store error ends the session early.
//
// # Commit discipline
//
// Newly evaluated integers are buffered in memory together with the
// in-memory all-time record. Every checkpoint interval the buffer and the
// record are written through Store.Checkpoint, which commits both in one
// transaction. A failed checkpoint keeps the buffer and is retried at the
// next interval; FINALIZE retries the last flush a bounded number of times
// and reports anything still uncommitted in Summary.Lost.
//
// # Termination
//
// The sampling loop stops at the target number of new tests, at
// target × attempt_multiplier generation attempts, or when the context is
// cancelled. The attempt cap guarantees termination when the configured
// range is nearly exhausted.
package session
