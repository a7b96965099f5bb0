// Package vault implements the cryptographic storage engine: the on-disk
// system/item layout, the salt/key/label discipline, and the vault
// operations (init, authenticate, config, create, get, update, delete,
// destroy, list) built on aead, kdf, secmem, and vaultio.
package vault

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cryptvault/cryptvault/internal/aead"
	"github.com/cryptvault/cryptvault/internal/kdf"
	"github.com/cryptvault/cryptvault/internal/secmem"
	"github.com/cryptvault/cryptvault/internal/vaultio"
)

// fixedDataNonce is the hard-coded 12-byte nonce used for every config and
// item-data encryption, per spec.md §4.5: safe only because the paired key
// is salt-rotated on every write. Its value is arbitrary; what matters is
// that every encrypt and decrypt of configCiphertext/dataCiphertext use
// this exact same constant.
var fixedDataNonce = [aead.NonceSize]byte{
	'c', 'r', 'y', 'p', 't', 'v', 'a', 'u', 'l', 't', '!', '!',
}

// Vault is the engine. One instance is constructed per process invocation
// (spec.md §5: single-threaded, one command per process).
type Vault struct {
	paths Paths
	ui    UI
	genpw PasswordGenerator
	pool  *secmem.Pool
	log   *logrus.Logger
}

// New builds a Vault bound to storageDir, using ui for interactive I/O,
// genpw for optional password auto-generation, pool for sensitive-buffer
// bookkeeping, and log for diagnostic-only logging (never secrets).
func New(paths Paths, ui UI, genpw PasswordGenerator, pool *secmem.Pool, log *logrus.Logger) *Vault {
	return &Vault{paths: paths, ui: ui, genpw: genpw, pool: pool, log: log}
}

// acquire wraps pool.Acquire, translating pool exhaustion into the vault's
// internal-error class (spec.md §7: allocator exhaustion is an internal
// error, not a user-facing retry condition).
func (v *Vault) acquire(n int) (*secmem.Buffer, error) {
	buf, err := v.pool.Acquire(n)
	if err != nil {
		return nil, internalError("sensitive-memory pool exhausted", err)
	}
	return buf, nil
}

func systemFileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Init creates the vault: fresh salts, double-confirmed passphrase, default
// config, storage directory and system file. Fails if already initialized.
func (v *Vault) Init() error {
	exists, err := systemFileExists(v.paths.SystemPath)
	if err != nil {
		return internalError("stat system file", err)
	}
	if exists {
		return preconditionErrorf("vault is already initialized at %s", v.paths.StorageDir)
	}

	fileSaltBuf, err := v.acquire(vaultio.SaltSize)
	if err != nil {
		return err
	}
	defer fileSaltBuf.Release()
	nameSaltBuf, err := v.acquire(vaultio.SaltSize)
	if err != nil {
		return err
	}
	defer nameSaltBuf.Release()
	configSaltBuf, err := v.acquire(vaultio.SaltSize)
	if err != nil {
		return err
	}
	defer configSaltBuf.Release()

	for _, b := range [][]byte{fileSaltBuf.Bytes, nameSaltBuf.Bytes, configSaltBuf.Bytes} {
		if err := secmem.Fill(b); err != nil {
			return internalError("draw random salt", err)
		}
	}

	pass1, err := v.ui.ReadPassphrase("Master passphrase: ")
	if err != nil {
		return internalError("read passphrase", err)
	}
	defer secmem.Zeroize(pass1)

	pass2, err := v.ui.ReadPassphrase("Confirm master passphrase: ")
	if err != nil {
		return internalError("read passphrase confirmation", err)
	}
	defer secmem.Zeroize(pass2)

	if !secmem.ConstantTimeEqual(pass1, pass2) {
		return userInputErrorf("passphrases do not match")
	}
	if err := ValidatePassphrase(pass1); err != nil {
		return err
	}

	cfg := DefaultConfig()
	rec, err := v.encryptSystemRecord(pass1, fileSaltBuf.Bytes, nameSaltBuf.Bytes, configSaltBuf.Bytes, cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(v.paths.StorageDir, 0o700); err != nil {
		return internalError("create storage directory", err)
	}

	var buf bytes.Buffer
	if _, err := rec.WriteTo(&buf); err != nil {
		return internalError("serialize system record", err)
	}
	if err := vaultio.WriteFileAtomic(v.paths.SystemPath, buf.Bytes(), 0o600); err != nil {
		return internalError("write system file", err)
	}

	return nil
}

func (v *Vault) encryptSystemRecord(passphrase, fileSalt, nameSalt, configSalt []byte, cfg Config) (*vaultio.SystemRecord, error) {
	configKey := kdf.DeriveKey(passphrase, configSalt, kdf.LabelData, aead.KeySize)
	defer secmem.Zeroize(configKey)

	engine, err := aead.New(configKey)
	if err != nil {
		return nil, internalError("construct config cipher", err)
	}

	cfgBytes := cfg.Encode()
	ct, tag, err := engine.Seal(fixedDataNonce[:], cfgBytes[:])
	if err != nil {
		return nil, internalError("encrypt config", err)
	}

	rec := &vaultio.SystemRecord{Version: vaultio.CurrentVersion}
	copy(rec.FileSalt[:], fileSalt)
	copy(rec.NameSalt[:], nameSalt)
	copy(rec.ConfigSalt[:], configSalt)
	copy(rec.ConfigTag[:], tag)
	copy(rec.ConfigCiphertext[:], ct)

	return rec, nil
}

// AuthResult is the set of secrets and salts an authenticated operation
// needs, handed back by Authenticate. Passphrase must be released by the
// caller via secmem.Zeroize when the operation is done with it.
type AuthResult struct {
	Passphrase []byte
	FileSalt   [vaultio.SaltSize]byte
	NameSalt   [vaultio.SaltSize]byte
	ConfigSalt [vaultio.SaltSize]byte
	Config     Config
}

// maxBackoffSeconds caps the exponential backoff so a scripted, sustained
// wrong-passphrase attempt does not leave the process sleeping indefinitely
// between prompts. A var, not a const, so tests can lower it to exercise
// the cap without sleeping through the real 64-second ceiling.
var maxBackoffSeconds = 64

// Authenticate reads the system record and repeatedly prompts for the
// master passphrase, backing off exponentially (1, 2, 4, 8, ... seconds)
// between attempts on failure, per spec.md §4.6 and §7 (authentication
// failure never terminates the process).
func (v *Vault) Authenticate() (*AuthResult, error) {
	exists, err := systemFileExists(v.paths.SystemPath)
	if err != nil {
		return nil, internalError("stat system file", err)
	}
	if !exists {
		return nil, preconditionErrorf("vault is not initialized at %s", v.paths.StorageDir)
	}

	data, err := vaultio.ReadFile(v.paths.SystemPath)
	if err != nil {
		return nil, internalError("read system file", err)
	}

	var rec vaultio.SystemRecord
	if _, err := rec.ReadFrom(bytes.NewReader(data)); err != nil {
		if errors.Is(err, vaultio.ErrTruncated) {
			return nil, corruptionError("system file is truncated", err)
		}
		if errors.Is(err, vaultio.ErrUnsupportedVersion) {
			return nil, corruptionError("system file has an unsupported format version", err)
		}
		return nil, internalError("parse system file", err)
	}

	backoff := 1
	for {
		pass, err := v.ui.ReadPassphrase("Master passphrase: ")
		if err != nil {
			return nil, internalError("read passphrase", err)
		}

		configKey := kdf.DeriveKey(pass, rec.ConfigSalt[:], kdf.LabelData, aead.KeySize)
		engine, err := aead.New(configKey)
		if err != nil {
			secmem.Zeroize(configKey)
			secmem.Zeroize(pass)
			return nil, internalError("construct config cipher", err)
		}

		plain, err := engine.Open(fixedDataNonce[:], rec.ConfigCiphertext[:], rec.ConfigTag[:])
		secmem.Zeroize(configKey)
		if err != nil {
			secmem.Zeroize(pass)
			if errors.Is(err, aead.ErrAuthFailed) {
				v.ui.BackoffDots(backoff)
				time.Sleep(time.Duration(backoff) * time.Second)
				if backoff < maxBackoffSeconds {
					backoff *= 2
				}
				continue
			}
			return nil, internalError("decrypt config", err)
		}

		var cfgBytes [4]byte
		copy(cfgBytes[:], plain)
		cfg := DecodeConfig(cfgBytes)
		secmem.Zeroize(plain)

		result := &AuthResult{
			Passphrase: pass,
			FileSalt:   rec.FileSalt,
			NameSalt:   rec.NameSalt,
			ConfigSalt: rec.ConfigSalt,
			Config:     cfg,
		}
		return result, nil
	}
}

// Config authenticates, rotates configSalt, lets the user adjust
// password-generation settings, and atomically rewrites the system record.
// fileSalt and nameSalt are preserved verbatim so existing items remain
// addressable and decryptable.
func (v *Vault) Config() error {
	auth, err := v.Authenticate()
	if err != nil {
		return err
	}
	defer secmem.Zeroize(auth.Passphrase)

	newConfigSaltBuf, err := v.acquire(vaultio.SaltSize)
	if err != nil {
		return err
	}
	defer newConfigSaltBuf.Release()
	if err := secmem.Fill(newConfigSaltBuf.Bytes); err != nil {
		return internalError("draw new config salt", err)
	}

	cfg, err := v.promptConfig(auth.Config)
	if err != nil {
		return err
	}

	rec, err := v.encryptSystemRecord(auth.Passphrase, auth.FileSalt[:], auth.NameSalt[:], newConfigSaltBuf.Bytes, cfg)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := rec.WriteTo(&buf); err != nil {
		return internalError("serialize system record", err)
	}
	if err := vaultio.WriteFileAtomic(v.paths.SystemPath, buf.Bytes(), 0o600); err != nil {
		return internalError("write system file", err)
	}

	return nil
}

func (v *Vault) promptConfig(current Config) (Config, error) {
	useNumbers, err := v.ui.ReadYesNo(fmt.Sprintf("Include numbers in generated passwords? (currently %v)", current.UseNumbers), current.UseNumbers)
	if err != nil {
		return Config{}, internalError("read config prompt", err)
	}
	useLetters, err := v.ui.ReadYesNo(fmt.Sprintf("Include letters in generated passwords? (currently %v)", current.UseLetters), current.UseLetters)
	if err != nil {
		return Config{}, internalError("read config prompt", err)
	}
	useSpecials, err := v.ui.ReadYesNo(fmt.Sprintf("Include special characters in generated passwords? (currently %v)", current.UseSpecials), current.UseSpecials)
	if err != nil {
		return Config{}, internalError("read config prompt", err)
	}
	length, err := v.ui.ReadBoundedInt("Generated password length (8-63)", 8, 63)
	if err != nil {
		return Config{}, internalError("read config prompt", err)
	}

	return Config{
		UseNumbers:  useNumbers,
		UseLetters:  useLetters,
		UseSpecials: useSpecials,
		Length:      uint8(length),
	}, nil
}

// deriveItemFilename builds the per-item label (itemName ∥ "files") and
// derives the 64-hex-character on-disk filename, per spec.md §4.5.
func deriveItemFilename(passphrase, fileSalt []byte, itemName string) (string, error) {
	label := itemName + kdf.LabelFiles
	name, err := kdf.DeriveName(passphrase, fileSalt, label, vaultio.FilenameChars)
	if err != nil {
		return "", internalError("derive item filename", err)
	}
	return name, nil
}
