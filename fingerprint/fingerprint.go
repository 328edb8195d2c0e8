/*
Package fingerprint turns record content into fixed size comparison keys.

Two strengths are available:

* Strong: the full 256 bit SHA-256 digest. Accidental collisions are negligible at any
realistic record volume, so equality of strong fingerprints may be the sole gate for
dropping a record from a deduplicated output.

* Fast: a 64 bit xxHash. Roughly a quarter of the memory per distinct record and much
cheaper to compute, but with tens of millions of records a chance collision becomes
plausible. Use only where duplicates feed ratios, e.g. when flagging windows where
duplicates outnumber unique records, and never to split an output.

Fingerprints depend on record content only, never on record metadata.
*/
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Strong is a SHA-256 digest.
type Strong [sha256.Size]byte

func (s Strong) String() string {
	return hex.EncodeToString(s[:])
}

// Fast is a 64 bit xxHash digest.
type Fast uint64

func (f Fast) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Computer derives a fingerprint from record content. Implementations hold no state
// and are safe for concurrent use.
type Computer[K comparable] interface {
	Sum(data []byte) K
}

// SHA256 computes Strong fingerprints.
type SHA256 struct{}

func (SHA256) Sum(data []byte) Strong {
	return sha256.Sum256(data)
}

// XXHash computes Fast fingerprints.
type XXHash struct{}

func (XXHash) Sum(data []byte) Fast {
	return Fast(xxhash.Sum64(data))
}

// Strength selects a fingerprint computer.
type Strength int

const (
	StrengthFast Strength = iota
	StrengthStrong
)

func (s Strength) String() string {
	switch s {
	case StrengthStrong:
		return "strong"
	case StrengthFast:
		return "fast"
	}
	return fmt.Sprintf("strength(%d)", int(s))
}

// ParseStrength reads a strength name as used in settings and flags.
func ParseStrength(name string) (Strength, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "strong", "sha256":
		return StrengthStrong, nil
	case "fast", "xxhash":
		return StrengthFast, nil
	}
	return StrengthFast, fmt.Errorf("unknown fingerprint strength %q, expected strong or fast", name)
}
