// Package genpw implements the password-generation collaborator spec.md §1
// calls out as external to the core: it builds a character set from the
// vault's Config flags and draws characters from it with rejection
// sampling, so every character is uniformly distributed regardless of the
// alphabet's length.
package genpw

import (
	"fmt"

	"github.com/cryptvault/cryptvault/internal/secmem"
	"github.com/cryptvault/cryptvault/internal/vault"
)

const (
	lettersAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numbersAlphabet  = "0123456789"
	specialsAlphabet = "!@#$%^&*()-_=+[]{};:,.<>?"
)

// Generator draws passwords uniformly from the alphabet implied by a
// vault.Config. It holds no state of its own; a single value can be reused
// across calls.
type Generator struct{}

// New returns a Generator. There is nothing to configure: the alphabet and
// length come from the Config passed to Generate.
func New() *Generator {
	return &Generator{}
}

// Generate draws cfg.Length characters from the alphabet cfg selects
// (numbers, letters, specials — any combination), each drawn independently
// and uniformly via rejection sampling over secmem.Fill's random bytes.
func (g *Generator) Generate(cfg vault.Config) (string, error) {
	var alphabet string
	if cfg.UseNumbers {
		alphabet += numbersAlphabet
	}
	if cfg.UseLetters {
		alphabet += lettersAlphabet
	}
	if cfg.UseSpecials {
		alphabet += specialsAlphabet
	}
	if alphabet == "" {
		return "", fmt.Errorf("genpw: config selects no character classes")
	}

	length := int(cfg.Length)
	if length <= 0 {
		return "", fmt.Errorf("genpw: config length must be positive, got %d", length)
	}

	out := make([]byte, length)
	for i := range out {
		c, err := drawUniform(alphabet)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	return string(out), nil
}

// drawUniform draws one byte from alphabet, discarding and redrawing any
// random byte that would introduce modulo bias (the largest multiple of
// len(alphabet) that fits in a byte is the acceptance threshold).
func drawUniform(alphabet string) (byte, error) {
	n := len(alphabet)
	limit := 256 - (256 % n) // int arithmetic: 256 itself never fits in a byte

	var buf [1]byte
	for {
		if err := secmem.Fill(buf[:]); err != nil {
			return 0, fmt.Errorf("genpw: draw random byte: %w", err)
		}
		if int(buf[0]) < limit {
			return alphabet[int(buf[0])%n], nil
		}
	}
}
