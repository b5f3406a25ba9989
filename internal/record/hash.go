package record

import (
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// DigestSize is the width of a tested-integer digest in bytes.
const DigestSize = sha256.Size

// Digest is the content-addressed key of a tested integer.
type Digest [DigestSize]byte

// DigestOf computes the digest of n: SHA-256 over the UTF-8 bytes of n's
// canonical base-10 form (no sign, no leading zeros, no separators).
//
// Two integers with the same decimal representation always map to the same
// digest. Collisions are treated as impossible.
func DigestOf(n *big.Int) Digest {
	return sha256.Sum256([]byte(n.String()))
}

// DigestsOf digests every integer in ns, preserving order.
func DigestsOf(ns []*big.Int) []Digest {
	out := make([]Digest, len(ns))
	for i, n := range ns {
		out[i] = DigestOf(n)
	}
	return out
}

// Bytes returns the digest as a byte slice for use as a storage key.
func (d Digest) Bytes() []byte {
	return d[:]
}

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
