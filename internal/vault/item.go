package vault

import (
	"bytes"
	"errors"
	"io/fs"
	"os"

	"github.com/cryptvault/cryptvault/internal/aead"
	"github.com/cryptvault/cryptvault/internal/kdf"
	"github.com/cryptvault/cryptvault/internal/secmem"
	"github.com/cryptvault/cryptvault/internal/vaultio"
)

// Item is the plaintext view of one stored credential, as returned by Get
// and consumed by Create/Update.
type Item struct {
	Username  string
	Password  string
	OtherInfo string
}

// readItemRecord loads and parses the on-disk record at path.
func readItemRecord(path string) (*vaultio.ItemRecord, error) {
	data, err := vaultio.ReadFile(path)
	if err != nil {
		return nil, internalError("read item file", err)
	}
	var rec vaultio.ItemRecord
	if _, err := rec.ReadFrom(bytes.NewReader(data)); err != nil {
		if errors.Is(err, vaultio.ErrTruncated) {
			return nil, corruptionError("item file is truncated", err)
		}
		if errors.Is(err, vaultio.ErrUnsupportedVersion) {
			return nil, corruptionError("item file has an unsupported format version", err)
		}
		return nil, internalError("parse item file", err)
	}
	return &rec, nil
}

// Create validates name, authenticates, derives the target filename
// (failing if it already exists), prompts for username/password/other-info
// (optionally auto-generating the password), and writes the new item
// record. Per spec.md §4.6, nameNonce is freshly random; dataSalt is freshly
// random.
func (v *Vault) Create(name string) error {
	if err := ValidateItemName(name); err != nil {
		return err
	}

	auth, err := v.Authenticate()
	if err != nil {
		return err
	}
	defer secmem.Zeroize(auth.Passphrase)

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

	item, err := v.promptItem(auth.Config, nil)
	if err != nil {
		return err
	}

	rec, err := v.buildItemRecord(auth, name, item, nil)
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

// Get validates name, authenticates, derives the filename, reads and
// decrypts the item, and returns its three fields.
func (v *Vault) Get(name string) (*Item, error) {
	if err := ValidateItemName(name); err != nil {
		return nil, err
	}

	auth, err := v.Authenticate()
	if err != nil {
		return nil, err
	}
	defer secmem.Zeroize(auth.Passphrase)

	filename, err := deriveItemFilename(auth.Passphrase, auth.FileSalt[:], name)
	if err != nil {
		return nil, err
	}
	itemPath := v.paths.ItemPath(filename)

	rec, err := readItemRecord(itemPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, userInputErrorf("item %q does not exist", name)
		}
		return nil, err
	}

	item, err := v.decryptItemData(auth.Passphrase, rec)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Update validates name, authenticates, re-reads the existing item,
// prompts for which fields to change, and — if anything changed —
// re-encrypts under a freshly rotated dataSalt while preserving nameNonce,
// nameTag, and nameCiphertext verbatim, writing via temp-then-rename.
func (v *Vault) Update(name string) error {
	if err := ValidateItemName(name); err != nil {
		return err
	}

	auth, err := v.Authenticate()
	if err != nil {
		return err
	}
	defer secmem.Zeroize(auth.Passphrase)

	filename, err := deriveItemFilename(auth.Passphrase, auth.FileSalt[:], name)
	if err != nil {
		return err
	}
	itemPath := v.paths.ItemPath(filename)

	rec, err := readItemRecord(itemPath)
	if err != nil {
		return err
	}

	current, err := v.decryptItemData(auth.Passphrase, rec)
	if err != nil {
		return err
	}

	updated, changed, err := v.promptUpdate(auth.Config, current)
	if err != nil {
		return err
	}
	if !changed {
		v.ui.Printf("No changes made.\n")
		return nil
	}

	newRec, err := v.buildItemRecord(auth, name, updated, rec)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := newRec.WriteTo(&buf); err != nil {
		return internalError("serialize item record", err)
	}
	if err := vaultio.WriteFileAtomic(itemPath, buf.Bytes(), 0o600); err != nil {
		return internalError("write item file", err)
	}

	return nil
}

// Delete validates name, authenticates, derives the filename, and unlinks
// the item file after confirmation.
func (v *Vault) Delete(name string) error {
	if err := ValidateItemName(name); err != nil {
		return err
	}

	auth, err := v.Authenticate()
	if err != nil {
		return err
	}
	defer secmem.Zeroize(auth.Passphrase)

	filename, err := deriveItemFilename(auth.Passphrase, auth.FileSalt[:], name)
	if err != nil {
		return err
	}
	itemPath := v.paths.ItemPath(filename)

	if exists, err := systemFileExists(itemPath); err != nil {
		return internalError("stat item file", err)
	} else if !exists {
		return userInputErrorf("item %q does not exist", name)
	}

	confirmed, err := v.ui.ReadYesNo("Delete item "+name+"?", false)
	if err != nil {
		return internalError("read confirmation", err)
	}
	if !confirmed {
		return nil
	}

	if err := os.Remove(itemPath); err != nil {
		return internalError("remove item file", err)
	}
	return nil
}

// decryptItemData derives the item's data key from its stored dataSalt and
// decrypts dataCiphertext, parsing the three plaintext fields.
func (v *Vault) decryptItemData(passphrase []byte, rec *vaultio.ItemRecord) (*Item, error) {
	dataKey := kdf.DeriveKey(passphrase, rec.DataSalt[:], kdf.LabelData, aead.KeySize)
	defer secmem.Zeroize(dataKey)

	engine, err := aead.New(dataKey)
	if err != nil {
		return nil, internalError("construct item data cipher", err)
	}

	plain, err := engine.Open(fixedDataNonce[:], rec.DataCiphertext[:], rec.DataTag[:])
	if err != nil {
		if errors.Is(err, aead.ErrAuthFailed) {
			return nil, corruptionError("item data failed authentication", err)
		}
		return nil, internalError("decrypt item data", err)
	}
	defer secmem.Zeroize(plain)

	username, password, other, err := decodeItemData(plain)
	if err != nil {
		return nil, err
	}
	return &Item{Username: username, Password: password, OtherInfo: other}, nil
}

// buildItemRecord encrypts item under a freshly drawn dataSalt. If existing
// is non-nil, its nameNonce/nameTag/nameCiphertext are preserved verbatim
// (the update path); otherwise a fresh nameNonce is drawn and the name is
// encrypted under nameSalt (the create path).
func (v *Vault) buildItemRecord(auth *AuthResult, name string, item *Item, existing *vaultio.ItemRecord) (*vaultio.ItemRecord, error) {
	dataSaltBuf, err := v.acquire(vaultio.SaltSize)
	if err != nil {
		return nil, err
	}
	defer dataSaltBuf.Release()
	if err := secmem.Fill(dataSaltBuf.Bytes); err != nil {
		return nil, internalError("draw item data salt", err)
	}

	dataKey := kdf.DeriveKey(auth.Passphrase, dataSaltBuf.Bytes, kdf.LabelData, aead.KeySize)
	defer secmem.Zeroize(dataKey)

	dataEngine, err := aead.New(dataKey)
	if err != nil {
		return nil, internalError("construct item data cipher", err)
	}

	plain, err := encodeItemData(item.Username, item.Password, item.OtherInfo)
	if err != nil {
		return nil, err
	}
	dataCiphertext, dataTag, err := dataEngine.Seal(fixedDataNonce[:], plain[:])
	if err != nil {
		return nil, internalError("encrypt item data", err)
	}

	rec := &vaultio.ItemRecord{Version: vaultio.CurrentVersion}
	copy(rec.DataSalt[:], dataSaltBuf.Bytes)
	copy(rec.DataTag[:], dataTag)
	copy(rec.DataCiphertext[:], dataCiphertext)

	if existing != nil {
		rec.NameNonce = existing.NameNonce
		rec.NameTag = existing.NameTag
		rec.NameCiphertext = existing.NameCiphertext
		return rec, nil
	}

	nameNonceBuf, err := v.acquire(vaultio.NonceSize)
	if err != nil {
		return nil, err
	}
	defer nameNonceBuf.Release()
	if err := secmem.Fill(nameNonceBuf.Bytes); err != nil {
		return nil, internalError("draw item name nonce", err)
	}

	nameKey := kdf.DeriveKey(auth.Passphrase, auth.NameSalt[:], kdf.LabelNames, aead.KeySize)
	defer secmem.Zeroize(nameKey)
	nameEngine, err := aead.New(nameKey)
	if err != nil {
		return nil, internalError("construct item name cipher", err)
	}

	namePlain, err := encodeItemName(name)
	if err != nil {
		return nil, err
	}
	nameCiphertext, nameTag, err := nameEngine.Seal(nameNonceBuf.Bytes, namePlain[:])
	if err != nil {
		return nil, internalError("encrypt item name", err)
	}

	copy(rec.NameNonce[:], nameNonceBuf.Bytes)
	copy(rec.NameTag[:], nameTag)
	copy(rec.NameCiphertext[:], nameCiphertext)

	return rec, nil
}

// promptItem collects username/password/other-info for Create. cfg governs
// password auto-generation; existing is nil for create (kept as a parameter
// to share shape with promptUpdate's per-field prompting, if ever reused).
func (v *Vault) promptItem(cfg Config, existing *Item) (*Item, error) {
	username, err := v.ui.ReadLine("Username: ")
	if err != nil {
		return nil, internalError("read username", err)
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	password, err := v.promptPassword(cfg)
	if err != nil {
		return nil, err
	}

	other, err := v.ui.ReadLine("Other info: ")
	if err != nil {
		return nil, internalError("read other info", err)
	}
	if err := ValidateOtherInfo(other); err != nil {
		return nil, err
	}

	return &Item{Username: username, Password: password, OtherInfo: other}, nil
}

func (v *Vault) promptPassword(cfg Config) (string, error) {
	auto, err := v.ui.ReadYesNo("Auto-generate password?", true)
	if err != nil {
		return "", internalError("read auto-generate choice", err)
	}
	if auto {
		if v.genpw == nil {
			return "", internalError("password generator not configured", nil)
		}
		pw, err := v.genpw.Generate(cfg)
		if err != nil {
			return "", internalError("generate password", err)
		}
		if err := ValidatePassword(pw); err != nil {
			return "", err
		}
		return pw, nil
	}

	pw, err := v.ui.ReadLine("Password: ")
	if err != nil {
		return "", internalError("read password", err)
	}
	if err := ValidatePassword(pw); err != nil {
		return "", err
	}
	return pw, nil
}

// promptUpdate lets the user pick which fields to change (case-insensitive
// single-letter or full-word: username/u, password/p, other/o, done/d).
// Returns the new Item and whether anything changed.
func (v *Vault) promptUpdate(cfg Config, current *Item) (*Item, bool, error) {
	updated := *current
	changed := false

	for {
		choice, err := v.ui.ReadLine("Change (u)sername, (p)assword, (o)ther info, or (d)one? ")
		if err != nil {
			return nil, false, internalError("read update choice", err)
		}

		switch normalizeChoice(choice) {
		case "u", "username":
			username, err := v.ui.ReadLine("New username: ")
			if err != nil {
				return nil, false, internalError("read username", err)
			}
			if err := ValidateUsername(username); err != nil {
				return nil, false, err
			}
			updated.Username = username
			changed = true
		case "p", "password":
			pw, err := v.promptPassword(cfg)
			if err != nil {
				return nil, false, err
			}
			updated.Password = pw
			changed = true
		case "o", "other":
			other, err := v.ui.ReadLine("New other info: ")
			if err != nil {
				return nil, false, internalError("read other info", err)
			}
			if err := ValidateOtherInfo(other); err != nil {
				return nil, false, err
			}
			updated.OtherInfo = other
			changed = true
		case "d", "done":
			return &updated, changed, nil
		default:
			v.ui.Printf("Unrecognized choice %q.\n", choice)
		}
	}
}

func normalizeChoice(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
