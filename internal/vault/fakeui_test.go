package vault

import "fmt"

// fakeUI drives the vault engine from a scripted queue of answers, standing
// in for the term package's real terminal collaborator in tests.
type fakeUI struct {
	passphrases []string
	lines       []string
	yesno       []bool
	ints        []int
	dots        []int
}

func (f *fakeUI) ReadPassphrase(prompt string) ([]byte, error) {
	if len(f.passphrases) == 0 {
		return nil, fmt.Errorf("fakeUI: no more scripted passphrases for prompt %q", prompt)
	}
	next := f.passphrases[0]
	f.passphrases = f.passphrases[1:]
	return []byte(next), nil
}

func (f *fakeUI) ReadLine(prompt string) (string, error) {
	if len(f.lines) == 0 {
		return "", fmt.Errorf("fakeUI: no more scripted lines for prompt %q", prompt)
	}
	next := f.lines[0]
	f.lines = f.lines[1:]
	return next, nil
}

func (f *fakeUI) ReadYesNo(prompt string, def bool) (bool, error) {
	if len(f.yesno) == 0 {
		return def, nil
	}
	next := f.yesno[0]
	f.yesno = f.yesno[1:]
	return next, nil
}

func (f *fakeUI) ReadBoundedInt(prompt string, min, max int) (int, error) {
	if len(f.ints) == 0 {
		return min, nil
	}
	next := f.ints[0]
	f.ints = f.ints[1:]
	return next, nil
}

func (f *fakeUI) Printf(format string, args ...any) {}

func (f *fakeUI) BackoffDots(n int) {
	f.dots = append(f.dots, n)
}

// fakeGenerator returns a fixed password, standing in for the genpw
// collaborator.
type fakeGenerator struct {
	password string
}

func (g *fakeGenerator) Generate(cfg Config) (string, error) {
	return g.password, nil
}
