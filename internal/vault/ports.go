package vault

// UI is the narrow interface the vault engine consumes for all interactive
// I/O, per spec.md §1's "out of scope, external collaborator" boundary.
// The term package provides the real implementation; tests supply a fake.
type UI interface {
	// ReadPassphrase reads a passphrase with echo suppressed, returning it
	// as a byte slice the caller is responsible for zeroizing.
	ReadPassphrase(prompt string) ([]byte, error)
	// ReadLine reads one line of printable text.
	ReadLine(prompt string) (string, error)
	// ReadYesNo prompts for confirmation, returning def if the user enters
	// an empty line.
	ReadYesNo(prompt string, def bool) (bool, error)
	// ReadBoundedInt prompts for an integer within [min, max] inclusive.
	ReadBoundedInt(prompt string, min, max int) (int, error)
	// Printf writes a message to the user.
	Printf(format string, args ...any)
	// BackoffDots renders n visible dots while Authenticate sleeps out a
	// backoff delay after a failed attempt.
	BackoffDots(n int)
}

// PasswordGenerator is the external password-generation collaborator,
// out of scope for the core per spec.md §1. create/update call it only when
// the user asks for an auto-generated password.
type PasswordGenerator interface {
	Generate(cfg Config) (string, error)
}
