// Package kdf implements the vault's key and filename derivation, per
// spec.md §4.3: Argon2id over (passphrase, salt, label) with fixed memory
// and time costs.
package kdf

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// Parallelism is the Argon2id lane/thread count.
	Parallelism = 4
	// MemoryKiB is the Argon2id memory cost in KiB (8192 KiB = 8 MiB).
	MemoryKiB = 8192
	// TimeCost is the Argon2id iteration count.
	TimeCost = 100
)

// Labels used for domain separation between the vault's three key classes.
const (
	LabelData  = "data"
	LabelNames = "names"
	LabelFiles = "files"
)

// DeriveKey derives outLen raw bytes from (passphrase, salt, label) using
// Argon2id. golang.org/x/crypto/argon2's IDKey does not expose a separate
// associated-data parameter (the RFC9106 "secret" and "associated data"
// inputs are both absent from its Go surface); this implementation supplies
// the label as associated data by binding it into the salt that reaches
// Argon2id — effectiveSalt = salt ‖ label. Argon2id accepts variable-length
// salts, and distinct labels therefore deterministically and provably
// produce distinct effective salts, which is the domain-separation property
// spec.md §8 property 3 requires. This resolution is recorded in
// DESIGN.md's Open Question log.
//
// passphrase is []byte rather than string deliberately: Go strings are
// immutable and can never be zeroized, so the vault carries the master
// passphrase as a secmem-backed byte slice from the terminal read onward,
// and DeriveKey accepts that representation directly rather than forcing a
// copy into an unzeroizable string.
func DeriveKey(passphrase []byte, salt []byte, label string, outLen int) []byte {
	effectiveSalt := make([]byte, 0, len(salt)+len(label))
	effectiveSalt = append(effectiveSalt, salt...)
	effectiveSalt = append(effectiveSalt, label...)

	return argon2.IDKey(passphrase, effectiveSalt, TimeCost, MemoryKiB, Parallelism, uint32(outLen))
}

// DeriveName derives a lowercase-hex string of maxChars-1 characters:
// (maxChars-1)/2 raw bytes from DeriveKey, hex-encoded. maxChars counts
// one terminator slot, so with maxChars = 65 (spec.md's FILENAME) the
// returned string is 64 hex characters.
//
// Go strings are not NUL-terminated in memory and no terminator is
// appended; the vault uses the returned string directly as a file name.
func DeriveName(passphrase []byte, salt []byte, label string, maxChars int) (string, error) {
	if maxChars < 3 || maxChars%2 != 1 {
		return "", fmt.Errorf("kdf: maxChars must be odd and at least 3 (got %d)", maxChars)
	}

	rawLen := (maxChars - 1) / 2
	raw := DeriveKey(passphrase, salt, label, rawLen)
	return hex.EncodeToString(raw), nil
}
