package vault

import (
	"bytes"
	"errors"
	"os"
	"strings"

	"github.com/cryptvault/cryptvault/internal/aead"
	"github.com/cryptvault/cryptvault/internal/kdf"
	"github.com/cryptvault/cryptvault/internal/secmem"
	"github.com/cryptvault/cryptvault/internal/vaultio"
)

// NamedItem pairs a decrypted item with its plaintext name, the unit the
// archive package's Export/Import operate on (SPEC_FULL.md §10).
type NamedItem struct {
	Name string
	Item Item
}

// ExportItems walks the storage directory exactly as List does, but
// decrypts each item's data as well as its name, for the archive package's
// bulk export. auth must come from a call to Authenticate the caller still
// owns (ExportItems does not zeroize auth.Passphrase; the caller does).
func (v *Vault) ExportItems(auth *AuthResult) ([]NamedItem, error) {
	entries, err := os.ReadDir(v.paths.StorageDir)
	if err != nil {
		return nil, internalError("read storage directory", err)
	}

	nameKey := kdf.DeriveKey(auth.Passphrase, auth.NameSalt[:], kdf.LabelNames, aead.KeySize)
	defer secmem.Zeroize(nameKey)
	nameEngine, err := aead.New(nameKey)
	if err != nil {
		return nil, internalError("construct item name cipher", err)
	}

	var items []NamedItem
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := entry.Name()
		if base == "system" || strings.Contains(base, ".tmp-") {
			continue
		}

		rec, err := readItemRecord(v.paths.ItemPath(base))
		if err != nil {
			return nil, err
		}

		namePlain, err := nameEngine.Open(rec.NameNonce[:], rec.NameCiphertext[:], rec.NameTag[:])
		if err != nil {
			if errors.Is(err, aead.ErrAuthFailed) {
				return nil, corruptionError("item name failed authentication for "+base, err)
			}
			return nil, internalError("decrypt item name", err)
		}
		name := decodeItemName(namePlain)
		secmem.Zeroize(namePlain)

		item, err := v.decryptItemData(auth.Passphrase, rec)
		if err != nil {
			return nil, err
		}

		items = append(items, NamedItem{Name: name, Item: *item})
	}

	return items, nil
}

// CreateWithAuth is Create's body, reusable by the archive package's Import
// without forcing a second passphrase prompt per record: the caller
// authenticates once and imports every record under that single auth.
// A name collision is reported as a *Error with ClassUserInput; archive's
// Import counts it as skipped and continues rather than aborting the whole
// run.
func (v *Vault) CreateWithAuth(auth *AuthResult, name string, item Item) error {
	if err := ValidateItemName(name); err != nil {
		return err
	}

	filename, err := deriveItemFilename(auth.Passphrase, auth.FileSalt[:], name)
	if err != nil {
		return err
	}
	itemPath := v.paths.ItemPath(filename)

	exists, err := systemFileExists(itemPath)
	if err != nil {
		return internalError("stat item file", err)
	}
	if exists {
		return userInputErrorf("item %q already exists", name)
	}

	rec, err := v.buildItemRecord(auth, name, &item, nil)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := rec.WriteTo(&buf); err != nil {
		return internalError("serialize item record", err)
	}
	if err := vaultio.WriteFileAtomic(itemPath, buf.Bytes(), 0o600); err != nil {
		return internalError("write item file", err)
	}
	return nil
}
