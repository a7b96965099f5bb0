package genpw

import (
	"strings"
	"testing"

	"github.com/cryptvault/cryptvault/internal/vault"
)

func TestGenerateRespectsLengthAndAlphabet(t *testing.T) {
	g := New()
	cfg := vault.Config{UseNumbers: true, UseLetters: false, UseSpecials: false, Length: 20}

	pw, err := g.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(pw) != 20 {
		t.Fatalf("expected length 20, got %d", len(pw))
	}
	for _, r := range pw {
		if !strings.ContainsRune(numbersAlphabet, r) {
			t.Fatalf("unexpected character %q outside numbers alphabet", r)
		}
	}
}

func TestGenerateRejectsEmptyAlphabet(t *testing.T) {
	g := New()
	cfg := vault.Config{Length: 10}

	if _, err := g.Generate(cfg); err == nil {
		t.Fatal("expected error when no character classes are selected")
	}
}

func TestGenerateRejectsZeroLength(t *testing.T) {
	g := New()
	cfg := vault.Config{UseNumbers: true, Length: 0}

	if _, err := g.Generate(cfg); err == nil {
		t.Fatal("expected error for zero length")
	}
}
