// Package vaultio implements the vault's on-disk binary layout: fixed-offset
// system and item records, and atomic file replacement. Grounded on the
// teacher's file_format.go WriteTo/ReadFrom style, generalized from a
// variable-length streaming header to the vault's two fixed-width record
// types.
package vaultio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Field widths, per spec.md §3.
const (
	SaltSize  = 32
	TagSize   = 16
	NonceSize = 12

	MaxItemName  = 100
	MaxOtherInfo = 300 // folded into item plaintext; not a standalone field here
	ConfigSize   = 4

	// FilenameChars is spec.md's FILENAME: 64 hex digits plus a terminator.
	FilenameChars = 65

	// CurrentVersion is the single supported format-version byte. Readers
	// reject any other value as ErrUnsupportedVersion, per spec.md §9.
	CurrentVersion = uint8(1)

	// SystemRecordSize is version(1) + fileSalt(32) + nameSalt(32) +
	// configSalt(32) + configTag(16) + configCiphertext(4) = 117 bytes.
	SystemRecordSize = 1 + SaltSize + SaltSize + SaltSize + TagSize + ConfigSize

	// ItemRecordSize is version(1) + nameNonce(12) + nameTag(16) +
	// nameCiphertext(100) + dataSalt(32) + dataTag(16) + dataCiphertext(564)
	// = 741 bytes.
	ItemRecordSize = 1 + NonceSize + TagSize + MaxItemName + SaltSize + TagSize + itemDataCiphertextSize

	// itemDataCiphertextSize is spec.md's ITEM_PLAINTEXT (564 bytes); the
	// data cipher has no length overhead so ciphertext and plaintext are the
	// same size.
	itemDataCiphertextSize = 564
)

// ErrUnsupportedVersion is returned when a record's version byte is not
// CurrentVersion.
var ErrUnsupportedVersion = errors.New("vaultio: unsupported record format version")

// ErrTruncated is returned when a record is shorter than its fixed size.
var ErrTruncated = errors.New("vaultio: record truncated")

// SystemRecord is the fixed-offset layout of the vault's single system file.
type SystemRecord struct {
	Version           uint8
	FileSalt          [SaltSize]byte
	NameSalt          [SaltSize]byte
	ConfigSalt        [SaltSize]byte
	ConfigTag         [TagSize]byte
	ConfigCiphertext  [ConfigSize]byte
}

// WriteTo serializes r in its fixed 117-byte layout.
func (r *SystemRecord) WriteTo(w io.Writer) (int64, error) {
	buf := new(bytes.Buffer)
	buf.Grow(SystemRecordSize)

	version := r.Version
	if version == 0 {
		version = CurrentVersion
	}
	if err := binary.Write(buf, binary.LittleEndian, version); err != nil {
		return 0, fmt.Errorf("vaultio: write system version: %w", err)
	}
	if _, err := buf.Write(r.FileSalt[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write file salt: %w", err)
	}
	if _, err := buf.Write(r.NameSalt[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write name salt: %w", err)
	}
	if _, err := buf.Write(r.ConfigSalt[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write config salt: %w", err)
	}
	if _, err := buf.Write(r.ConfigTag[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write config tag: %w", err)
	}
	if _, err := buf.Write(r.ConfigCiphertext[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write config ciphertext: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFrom parses a 117-byte system record.
func (r *SystemRecord) ReadFrom(rd io.Reader) (int64, error) {
	raw := make([]byte, SystemRecordSize)
	n, err := io.ReadFull(rd, raw)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return int64(n), ErrTruncated
		}
		return int64(n), fmt.Errorf("vaultio: read system record: %w", err)
	}

	off := 0
	r.Version = raw[off]
	off++
	if r.Version != CurrentVersion {
		return int64(n), ErrUnsupportedVersion
	}
	copy(r.FileSalt[:], raw[off:off+SaltSize])
	off += SaltSize
	copy(r.NameSalt[:], raw[off:off+SaltSize])
	off += SaltSize
	copy(r.ConfigSalt[:], raw[off:off+SaltSize])
	off += SaltSize
	copy(r.ConfigTag[:], raw[off:off+TagSize])
	off += TagSize
	copy(r.ConfigCiphertext[:], raw[off:off+ConfigSize])
	off += ConfigSize

	return int64(n), nil
}

// ItemRecord is the fixed-offset layout of one item's on-disk file.
type ItemRecord struct {
	Version         uint8
	NameNonce       [NonceSize]byte
	NameTag         [TagSize]byte
	NameCiphertext  [MaxItemName]byte
	DataSalt        [SaltSize]byte
	DataTag         [TagSize]byte
	DataCiphertext  [itemDataCiphertextSize]byte
}

// WriteTo serializes r in its fixed 741-byte layout.
func (r *ItemRecord) WriteTo(w io.Writer) (int64, error) {
	buf := new(bytes.Buffer)
	buf.Grow(ItemRecordSize)

	version := r.Version
	if version == 0 {
		version = CurrentVersion
	}
	if err := binary.Write(buf, binary.LittleEndian, version); err != nil {
		return 0, fmt.Errorf("vaultio: write item version: %w", err)
	}
	if _, err := buf.Write(r.NameNonce[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write name nonce: %w", err)
	}
	if _, err := buf.Write(r.NameTag[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write name tag: %w", err)
	}
	if _, err := buf.Write(r.NameCiphertext[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write name ciphertext: %w", err)
	}
	if _, err := buf.Write(r.DataSalt[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write data salt: %w", err)
	}
	if _, err := buf.Write(r.DataTag[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write data tag: %w", err)
	}
	if _, err := buf.Write(r.DataCiphertext[:]); err != nil {
		return 0, fmt.Errorf("vaultio: write data ciphertext: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFrom parses a 741-byte item record.
func (r *ItemRecord) ReadFrom(rd io.Reader) (int64, error) {
	raw := make([]byte, ItemRecordSize)
	n, err := io.ReadFull(rd, raw)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return int64(n), ErrTruncated
		}
		return int64(n), fmt.Errorf("vaultio: read item record: %w", err)
	}

	off := 0
	r.Version = raw[off]
	off++
	if r.Version != CurrentVersion {
		return int64(n), ErrUnsupportedVersion
	}
	copy(r.NameNonce[:], raw[off:off+NonceSize])
	off += NonceSize
	copy(r.NameTag[:], raw[off:off+TagSize])
	off += TagSize
	copy(r.NameCiphertext[:], raw[off:off+MaxItemName])
	off += MaxItemName
	copy(r.DataSalt[:], raw[off:off+SaltSize])
	off += SaltSize
	copy(r.DataTag[:], raw[off:off+TagSize])
	off += TagSize
	copy(r.DataCiphertext[:], raw[off:off+itemDataCiphertextSize])
	off += itemDataCiphertextSize

	return int64(n), nil
}
