// Package archive implements the vault's supplemented backup/restore
// feature (SPEC_FULL.md §10): exporting every item to one encrypted file
// and re-importing it. It adapts the teacher's chunked/indexed file format
// and parallel worker pool, generalized from "encrypt one large file's
// chunks" to "encrypt one archive's worth of item records".
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cryptvault/cryptvault/internal/vaultio"
)

const (
	magic          = uint32(0x43565054) // ASCII "CVPT"
	formatVersion  = uint8(1)
	archiveSaltLen = vaultio.SaltSize

	// DefaultChunkSize is the plaintext budget per chunk. Item records are
	// small (a few hundred bytes each encoded), so 4096 bytes holds many
	// items per chunk — scaled down from the teacher's 64 KB default, which
	// was sized for whole-file streaming rather than small structured
	// records.
	DefaultChunkSize = 4096
)

var (
	// ErrBadMagic is returned when an archive file doesn't start with the
	// expected magic bytes.
	ErrBadMagic = errors.New("archive: not a cryptvault archive")
	// ErrUnsupportedVersion is returned for a version byte this build
	// doesn't understand.
	ErrUnsupportedVersion = errors.New("archive: unsupported archive format version")
)

// header is the archive's fixed leading section: magic, version, and the
// salt used to derive this archive's encryption key from the master
// passphrase. Grounded on the teacher's FileHeader (file_format.go),
// narrowed to the one field the archive actually needs beyond magic and
// version.
type header struct {
	Magic      uint32
	Version    uint8
	ArchiveSalt [archiveSaltLen]byte
}

func (h *header) WriteTo(w io.Writer) (int64, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, h.Magic); err != nil {
		return 0, fmt.Errorf("archive: write magic: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, h.Version); err != nil {
		return 0, fmt.Errorf("archive: write version: %w", err)
	}
	if _, err := buf.Write(h.ArchiveSalt[:]); err != nil {
		return 0, fmt.Errorf("archive: write archive salt: %w", err)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (h *header) ReadFrom(r io.Reader) (int64, error) {
	raw := make([]byte, 4+1+archiveSaltLen)
	n, err := io.ReadFull(r, raw)
	if err != nil {
		return int64(n), fmt.Errorf("archive: read header: %w", err)
	}

	h.Magic = binary.LittleEndian.Uint32(raw[0:4])
	if h.Magic != magic {
		return int64(n), ErrBadMagic
	}
	h.Version = raw[4]
	if h.Version != formatVersion {
		return int64(n), ErrUnsupportedVersion
	}
	copy(h.ArchiveSalt[:], raw[5:5+archiveSaltLen])

	return int64(n), nil
}
