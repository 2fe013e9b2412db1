package project

import (
	"crypto/sha256"
)

// Digest is a fixed 256-bit content hash.
type Digest [32]byte

// Combine hashes content followed by every part in order: H(content || p1 || p2 ...).
// Callers keep the order of parts deterministic.
func Combine(content Digest, parts ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range parts {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Sum hashes data.
func Sum(data []byte) Digest {
	return sha256.Sum256(data)
}

// SumString hashes s.
func SumString(s string) Digest {
	return sha256.Sum256([]byte(s))
}
