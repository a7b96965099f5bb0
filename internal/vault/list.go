package vault

import (
	"bytes"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/cryptvault/cryptvault/internal/aead"
	"github.com/cryptvault/cryptvault/internal/kdf"
	"github.com/cryptvault/cryptvault/internal/secmem"
	"github.com/cryptvault/cryptvault/internal/vaultio"
)

// List authenticates, then iterates the storage directory, decrypting each
// item file's name and returning the recovered plaintext names sorted
// lexicographically. Sorting after decryption hides any correspondence
// between on-disk filename order and item-name order, per spec.md §4.6.
func (v *Vault) List() ([]string, error) {
	auth, err := v.Authenticate()
	if err != nil {
		return nil, err
	}
	defer secmem.Zeroize(auth.Passphrase)

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

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := entry.Name()
		if base == "system" || strings.Contains(base, ".tmp-") {
			continue
		}

		itemPath := v.paths.ItemPath(base)
		data, err := vaultio.ReadFile(itemPath)
		if err != nil {
			return nil, internalError("read item file", err)
		}

		var rec vaultio.ItemRecord
		if _, err := rec.ReadFrom(bytes.NewReader(data)); err != nil {
			if errors.Is(err, vaultio.ErrTruncated) || errors.Is(err, vaultio.ErrUnsupportedVersion) {
				return nil, corruptionError("item file "+base+" is malformed", err)
			}
			return nil, internalError("parse item file", err)
		}

		plain, err := nameEngine.Open(rec.NameNonce[:], rec.NameCiphertext[:], rec.NameTag[:])
		if err != nil {
			if errors.Is(err, aead.ErrAuthFailed) {
				return nil, corruptionError("item name failed authentication for "+base, err)
			}
			return nil, internalError("decrypt item name", err)
		}
		name := decodeItemName(plain)
		secmem.Zeroize(plain)

		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}
