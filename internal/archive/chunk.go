package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cryptvault/cryptvault/internal/aead"
)

// chunkHeader precedes each chunk's ciphertext: the chunk's own random
// nonce and its plaintext size (needed because the final chunk is usually
// shorter than DefaultChunkSize). Grounded on the teacher's
// EncryptedChunkHeader (chunk_format.go), narrowed to the fixed 12-byte
// ChaCha20-Poly1305 nonce this archive format always uses.
type chunkHeader struct {
	PlaintextSize uint32
	Nonce         [aead.NonceSize]byte
}

func (h *chunkHeader) WriteTo(w io.Writer) (int64, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, h.PlaintextSize); err != nil {
		return 0, fmt.Errorf("archive: write chunk plaintext size: %w", err)
	}
	if _, err := buf.Write(h.Nonce[:]); err != nil {
		return 0, fmt.Errorf("archive: write chunk nonce: %w", err)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (h *chunkHeader) ReadFrom(r io.Reader) (int64, error) {
	raw := make([]byte, 4+aead.NonceSize)
	n, err := io.ReadFull(r, raw)
	if err != nil {
		return int64(n), fmt.Errorf("archive: read chunk header: %w", err)
	}
	h.PlaintextSize = binary.LittleEndian.Uint32(raw[0:4])
	copy(h.Nonce[:], raw[4:])
	return int64(n), nil
}

// chunkHeaderSize is the on-disk size of a chunkHeader.
const chunkHeaderSize = 4 + aead.NonceSize

// chunkJob is one chunk's encryption/decryption unit of work, processed
// concurrently by the worker pool in parallel.go. Grounded on the
// teacher's chunkJob (parallel.go), narrowed to the archive's ChaCha20-
// Poly1305 (ciphertext, tag) split rather than a concatenated AEAD output.
type chunkJob struct {
	index      int
	plaintext  []byte
	ciphertext []byte
	tag        []byte
	nonce      [aead.NonceSize]byte
	err        error
}
