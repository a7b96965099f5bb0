package vault

import (
	"bytes"
	"unicode"

	"github.com/cryptvault/cryptvault/internal/vaultio"
)

const (
	maxItemName  = vaultio.MaxItemName
	maxUsername  = 100
	maxOtherInfo = 300

	// itemDataSize is ITEM_PLAINTEXT: the three joined, newline-separated
	// fields (username, password, other-info), zero-padded to this width.
	itemDataSize = 564

	minPassphraseLen = 8
	maxPassphraseLen = 63
)

// isPrintable reports whether every rune in s is printable and therefore
// safe to store unescaped alongside the '\n' and 0x00 separators the
// encoding below relies on. unicode.IsPrint already excludes '\n' and NUL.
func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ValidateItemName checks the printable/length rule from spec.md §3.
func ValidateItemName(name string) error {
	if len(name) < 1 || len(name) > maxItemName {
		return userInputErrorf("item name must be 1..%d characters, got %d", maxItemName, len(name))
	}
	if !isPrintable(name) {
		return userInputErrorf("item name must be printable")
	}
	return nil
}

// ValidatePassphrase checks the printable/length rule for the master
// passphrase from spec.md §3.
func ValidatePassphrase(passphrase []byte) error {
	n := len(passphrase)
	if n < minPassphraseLen || n > maxPassphraseLen {
		return userInputErrorf("passphrase must be %d..%d characters, got %d", minPassphraseLen, maxPassphraseLen, n)
	}
	if !isPrintable(string(passphrase)) {
		return userInputErrorf("passphrase must be printable")
	}
	return nil
}

// ValidateUsername, ValidatePassword, ValidateOtherInfo enforce the
// per-field length and printability rules that feed encodeItemData.
func ValidateUsername(s string) error {
	if len(s) > maxUsername || !isPrintable(s) {
		return userInputErrorf("username must be printable and at most %d characters", maxUsername)
	}
	return nil
}

func ValidatePassword(s string) error {
	if len(s) < minPassphraseLen || len(s) > maxPassphraseLen {
		return userInputErrorf("password must be %d..%d characters, got %d", minPassphraseLen, maxPassphraseLen, len(s))
	}
	if !isPrintable(s) {
		return userInputErrorf("password must be printable")
	}
	return nil
}

func ValidateOtherInfo(s string) error {
	if len(s) > maxOtherInfo || !isPrintable(s) {
		return userInputErrorf("other info must be printable and at most %d characters", maxOtherInfo)
	}
	return nil
}

// encodeItemData joins username, password, other-info with single newline
// separators and zero-pads the result to itemDataSize, per spec.md §3.
func encodeItemData(username, password, other string) ([itemDataSize]byte, error) {
	var out [itemDataSize]byte
	joined := username + "\n" + password + "\n" + other
	if len(joined) > itemDataSize {
		return out, userInputErrorf("joined item fields exceed %d bytes", itemDataSize)
	}
	copy(out[:], joined)
	return out, nil
}

// decodeItemData parses the username/password/other-info tokens out of a
// decrypted item-data plaintext: newline-terminated, with the final token
// ending at the first zero byte.
func decodeItemData(data []byte) (username, password, other string, err error) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return "", "", "", corruptionError("item data missing username separator", nil)
	}
	username = string(data[:i])
	rest := data[i+1:]

	j := bytes.IndexByte(rest, '\n')
	if j < 0 {
		return "", "", "", corruptionError("item data missing password separator", nil)
	}
	password = string(rest[:j])
	rest = rest[j+1:]

	k := bytes.IndexByte(rest, 0)
	if k < 0 {
		k = len(rest)
	}
	other = string(rest[:k])

	return username, password, other, nil
}

// encodeItemName zero-pads name to maxItemName bytes.
func encodeItemName(name string) ([maxItemName]byte, error) {
	var out [maxItemName]byte
	if len(name) > maxItemName {
		return out, userInputErrorf("item name exceeds %d bytes", maxItemName)
	}
	copy(out[:], name)
	return out, nil
}

// decodeItemName strips trailing zero padding from a decrypted item name.
func decodeItemName(data []byte) string {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		i = len(data)
	}
	return string(data[:i])
}
