// Package record defines the durable value types shared by the stores and the
// session driver.
//
// This package contains types and pure functions only. All other internal
// packages may import record; record imports nothing internal.
//
// Key design constraints:
//   - Integers under test are *big.Int; nothing assumes a 64-bit range
//   - Digests are computed over the canonical decimal string, never over
//     a binary encoding, so stores written by other tools stay compatible
//   - Stats JSON keys are snake_case and fixed (see stats.go)
package record
