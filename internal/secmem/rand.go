package secmem

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Fill reads len(buf) cryptographically strong random bytes into buf. A
// short read or error is treated as fatal by callers (internal-error class,
// per spec.md §7): the vault refuses to proceed with weakened randomness
// rather than retry or fall back to a weaker source.
//
// crypto/rand.Reader never blocks on any platform Go supports, so this
// satisfies the non-blocking requirement without a custom getrandom(2)
// wrapper.
func Fill(buf []byte) error {
	n, err := io.ReadFull(rand.Reader, buf)
	if err != nil {
		return fmt.Errorf("secmem: random source failed after %d/%d bytes: %w", n, len(buf), err)
	}
	return nil
}
