package vault

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/cryptvault/cryptvault/internal/secmem"
)

func newTestVault(t *testing.T, ui *fakeUI) (*Vault, Paths) {
	t.Helper()
	dir := t.TempDir()
	paths := NewPaths(filepath.Join(dir, "store"))

	log := logrus.New()
	log.SetOutput(io.Discard)

	v := New(paths, ui, &fakeGenerator{password: "Aa1!Aa1!Aa1!Aa1!"}, &secmem.Pool{}, log)
	return v, paths
}

func initTestVault(t *testing.T, passphrase string) (*Vault, *fakeUI, Paths) {
	t.Helper()
	ui := &fakeUI{passphrases: []string{passphrase, passphrase}}
	v, paths := newTestVault(t, ui)
	if err := v.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return v, ui, paths
}

func TestInitRejectsDoubleInit(t *testing.T) {
	v, ui, _ := initTestVault(t, "correct horse battery")
	ui.passphrases = []string{"correct horse battery", "correct horse battery"}

	err := v.Init()
	verr, ok := err.(*Error)
	if !ok || verr.Class != ClassPrecondition {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestInitRejectsMismatchedPassphrase(t *testing.T) {
	ui := &fakeUI{passphrases: []string{"correct horse battery", "wrong horse battery"}}
	v, _ := newTestVault(t, ui)

	err := v.Init()
	verr, ok := err.(*Error)
	if !ok || verr.Class != ClassUserInput {
		t.Fatalf("expected user-input error, got %v", err)
	}
}

// TestScenarioS1InitCreateGet covers spec.md's S1: init, create an item,
// then get it back after re-authenticating.
func TestScenarioS1InitCreateGet(t *testing.T) {
	v, ui, _ := initTestVault(t, "correct horse battery")

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	ui.lines = []string{"alice", "Hunter2!hunter2!hunter2!A", "work account"}
	ui.yesno = []bool{false} // don't auto-generate

	if err := v.Create("github"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	item, err := v.Get("github")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item.Username != "alice" || item.Password != "Hunter2!hunter2!hunter2!A" || item.OtherInfo != "work account" {
		t.Fatalf("unexpected item: %+v", item)
	}
}

// TestScenarioS2BackoffDoublesAndCaps covers spec.md's S2: a sequence of
// wrong passphrases backs off exponentially (1, 2, 4, ... seconds) and the
// delay never exceeds maxBackoffSeconds. maxBackoffSeconds is lowered for
// the duration of the test so the cap is reachable without sleeping
// through the real 64-second ceiling.
func TestScenarioS2BackoffDoublesAndCaps(t *testing.T) {
	original := maxBackoffSeconds
	maxBackoffSeconds = 2
	defer func() { maxBackoffSeconds = original }()

	v, ui, _ := initTestVault(t, "correct horse battery")

	ui.passphrases = append(ui.passphrases,
		"wrong one", "wrong two", "wrong three", "correct horse battery")

	auth, err := v.Authenticate()
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	defer secmem.Zeroize(auth.Passphrase)

	want := []int{1, 2, 2}
	if len(ui.dots) != len(want) {
		t.Fatalf("expected %d backoff delays, got %v", len(want), ui.dots)
	}
	for i := range want {
		if ui.dots[i] != want[i] {
			t.Fatalf("expected backoff delays %v, got %v", want, ui.dots)
		}
	}
}

// TestScenarioS3UpdatePreservesName covers spec.md's S3: updating only the
// password leaves nameNonce/nameTag/nameCiphertext untouched.
func TestScenarioS3UpdatePreservesName(t *testing.T) {
	v, ui, paths := initTestVault(t, "correct horse battery")

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	ui.lines = []string{"alice", "oldpassword1", "work account"}
	ui.yesno = []bool{false}
	if err := v.Create("github"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	filename, err := deriveItemFilename([]byte("correct horse battery"), mustAuthFileSalt(t, v), "github")
	if err != nil {
		t.Fatalf("deriveItemFilename: %v", err)
	}
	itemPath := paths.ItemPath(filename)

	before, err := os.ReadFile(itemPath)
	if err != nil {
		t.Fatalf("read item before update: %v", err)
	}

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	ui.lines = []string{"p", "newpassword1", "d"}
	ui.yesno = []bool{false}
	if err := v.Update("github"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	after, err := os.ReadFile(itemPath)
	if err != nil {
		t.Fatalf("read item after update: %v", err)
	}

	namePrefixLen := 1 + 12 + 16 + 100 // version + nameNonce + nameTag + nameCiphertext
	if string(before[:namePrefixLen]) != string(after[:namePrefixLen]) {
		t.Fatal("expected name prefix to be preserved across update")
	}
	if string(before[namePrefixLen:]) == string(after[namePrefixLen:]) {
		t.Fatal("expected data fields to change across update")
	}

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	item, err := v.Get("github")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if item.Password != "newpassword1" || item.Username != "alice" || item.OtherInfo != "work account" {
		t.Fatalf("unexpected item after update: %+v", item)
	}
}

func mustAuthFileSalt(t *testing.T, v *Vault) []byte {
	t.Helper()
	ui := v.ui.(*fakeUI)
	ui.passphrases = append(ui.passphrases, "correct horse battery")
	auth, err := v.Authenticate()
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	defer secmem.Zeroize(auth.Passphrase)
	return append([]byte(nil), auth.FileSalt[:]...)
}

// TestScenarioS4ListSorted covers spec.md's S4: items created out of order
// are listed lexicographically sorted by plaintext name.
func TestScenarioS4ListSorted(t *testing.T) {
	v, ui, _ := initTestVault(t, "correct horse battery")

	for _, name := range []string{"zeta", "alpha", "mu"} {
		ui.passphrases = append(ui.passphrases, "correct horse battery")
		ui.lines = []string{"user", "Passw0rd!", "notes"}
		ui.yesno = []bool{false}
		if err := v.Create(name); err != nil {
			t.Fatalf("Create(%q): %v", name, err)
		}
	}

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	names, err := v.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []string{"alpha", "mu", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

// TestScenarioS6Tampering covers spec.md's S6: flipping a byte of
// dataCiphertext causes Get to report data corruption without revealing any
// plaintext.
func TestScenarioS6Tampering(t *testing.T) {
	v, ui, paths := initTestVault(t, "correct horse battery")

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	ui.lines = []string{"alice", "Passw0rd!", "notes"}
	ui.yesno = []bool{false}
	if err := v.Create("github"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	filename, err := deriveItemFilename([]byte("correct horse battery"), mustAuthFileSalt(t, v), "github")
	if err != nil {
		t.Fatalf("deriveItemFilename: %v", err)
	}
	itemPath := paths.ItemPath(filename)

	data, err := os.ReadFile(itemPath)
	if err != nil {
		t.Fatalf("read item: %v", err)
	}
	data[len(data)-1] ^= 0x01
	if err := os.WriteFile(itemPath, data, 0o600); err != nil {
		t.Fatalf("write tampered item: %v", err)
	}

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	_, err = v.Get("github")
	verr, ok := err.(*Error)
	if !ok || verr.Class != ClassCorruption {
		t.Fatalf("expected corruption error, got %v", err)
	}
}

// TestScenarioS5Destroy covers spec.md's S5: destroying the vault removes
// the entire storage directory, and the vault behaves exactly as it did
// before Init ever ran — Authenticate reports "not initialized" and a
// fresh Init succeeds.
func TestScenarioS5Destroy(t *testing.T) {
	v, ui, paths := initTestVault(t, "correct horse battery")

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	ui.lines = []string{"alice", "Passw0rd!", "notes"}
	ui.yesno = []bool{false}
	if err := v.Create("github"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ui.yesno = []bool{true, true}
	ui.passphrases = append(ui.passphrases, "correct horse battery")
	if err := v.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if _, err := os.Stat(paths.StorageDir); !os.IsNotExist(err) {
		t.Fatalf("expected storage directory to be removed, stat err = %v", err)
	}

	_, err := v.Authenticate()
	verr, ok := err.(*Error)
	if !ok || verr.Class != ClassPrecondition {
		t.Fatalf("expected precondition error after destroy, got %v", err)
	}

	ui.passphrases = []string{"new passphrase here", "new passphrase here"}
	if err := v.Init(); err != nil {
		t.Fatalf("Init after destroy: %v", err)
	}
}

// TestConfigRotatesSaltAndPreservesFileAndNameSalts covers spec.md's
// property 8.
func TestConfigRotatesSaltAndPreservesFileAndNameSalts(t *testing.T) {
	v, ui, paths := initTestVault(t, "correct horse battery")

	before, err := os.ReadFile(paths.SystemPath)
	if err != nil {
		t.Fatalf("read system file before config: %v", err)
	}

	ui.passphrases = append(ui.passphrases, "correct horse battery")
	ui.yesno = []bool{true, true, true}
	ui.ints = []int{20}
	if err := v.Config(); err != nil {
		t.Fatalf("Config: %v", err)
	}

	after, err := os.ReadFile(paths.SystemPath)
	if err != nil {
		t.Fatalf("read system file after config: %v", err)
	}

	// version(1) + fileSalt(32) + nameSalt(32) preserved; configSalt(32)
	// onward rotated.
	preservedLen := 1 + 32 + 32
	if string(before[:preservedLen]) != string(after[:preservedLen]) {
		t.Fatal("expected version/fileSalt/nameSalt to be preserved across config")
	}
	if string(before[preservedLen:]) == string(after[preservedLen:]) {
		t.Fatal("expected configSalt/configTag/configCiphertext to change across config")
	}
}

func TestSystemRecordFixedSize(t *testing.T) {
	_, _, paths := initTestVault(t, "correct horse battery")
	info, err := os.Stat(paths.SystemPath)
	if err != nil {
		t.Fatalf("stat system file: %v", err)
	}
	if info.Size() != 117 {
		t.Fatalf("expected system file to be 117 bytes, got %d", info.Size())
	}
}
