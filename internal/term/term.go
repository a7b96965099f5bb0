// Package term implements the vault's interactive terminal collaborator:
// echo-suppressed passphrase reads, line prompts, yes/no confirmation, and
// bounded-integer prompts. Out of scope for the core per spec.md §1; this
// is the concrete adapter behind vault.UI.
package term

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Terminal reads prompts from in and writes them to out, suppressing echo
// for passphrase reads via golang.org/x/term when in is a real terminal.
type Terminal struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

// New builds a Terminal over os.Stdin/os.Stdout.
func New() *Terminal {
	fd := int(os.Stdin.Fd())
	return &Terminal{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		fd:     fd,
		isTerm: term.IsTerminal(fd),
	}
}

// ReadPassphrase prompts and reads one line with echo suppressed when
// stdin is a real terminal (falls back to a plain line read otherwise,
// e.g. when piped in tests or scripts).
func (t *Terminal) ReadPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(t.out, prompt)

	if !t.isTerm {
		line, err := t.in.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("term: read passphrase: %w", err)
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}

	raw, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return nil, fmt.Errorf("term: read passphrase: %w", err)
	}
	return raw, nil
}

// ReadLine prompts and reads one line of printable text, trimmed of its
// trailing newline.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("term: read line: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadYesNo prompts for y/n confirmation; an empty line answers def.
func (t *Terminal) ReadYesNo(prompt string, def bool) (bool, error) {
	suffix := " [y/N] "
	if def {
		suffix = " [Y/n] "
	}
	for {
		line, err := t.ReadLine(prompt + suffix)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(t.out, "Please answer y or n.")
	}
}

// ReadBoundedInt prompts for an integer in [min, max], re-prompting on a
// parse failure or an out-of-range value.
func (t *Terminal) ReadBoundedInt(prompt string, min, max int) (int, error) {
	for {
		line, err := t.ReadLine(fmt.Sprintf("%s (%d-%d): ", prompt, min, max))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < min || n > max {
			fmt.Fprintf(t.out, "Please enter an integer between %d and %d.\n", min, max)
			continue
		}
		return n, nil
	}
}

// Printf writes a message to the user.
func (t *Terminal) Printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// BackoffDots renders n visible dots, one per backoff second, while
// Authenticate sleeps out a failed-attempt delay.
func (t *Terminal) BackoffDots(n int) {
	fmt.Fprint(t.out, strings.Repeat(".", n))
	fmt.Fprintln(t.out)
}
