package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// indexReservedSize is the fixed space reserved for the chunk index,
// sized generously for a single-user vault (up to a few hundred chunks at
// 12 bytes each), matching the teacher's chunk_format.go pattern of a
// fixed-size reserved index so chunk data never needs to shift as the
// index grows. Adapted down from the teacher's 20 KB reservation (sized
// for ~1700 64 KB-chunk files) since an archive chunk is much smaller.
const indexReservedSize = 4 * 1024

// chunkIndex records, per chunk, its byte offset in the file and its
// plaintext size, so Import can read and decrypt each chunk independently.
// Grounded on the teacher's ChunkIndexHeader (chunk_format.go), reduced to
// the two slices Import actually consumes.
type chunkIndex struct {
	Count          uint32
	Offsets        []uint64
	PlaintextSizes []uint32
}

func (idx *chunkIndex) add(offset uint64, plaintextSize uint32) {
	idx.Offsets = append(idx.Offsets, offset)
	idx.PlaintextSizes = append(idx.PlaintextSizes, plaintextSize)
	idx.Count++
}

func (idx *chunkIndex) WriteTo(w io.Writer) (int64, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, idx.Count); err != nil {
		return 0, fmt.Errorf("archive: write chunk count: %w", err)
	}
	for _, off := range idx.Offsets {
		if err := binary.Write(buf, binary.LittleEndian, off); err != nil {
			return 0, fmt.Errorf("archive: write chunk offset: %w", err)
		}
	}
	for _, size := range idx.PlaintextSizes {
		if err := binary.Write(buf, binary.LittleEndian, size); err != nil {
			return 0, fmt.Errorf("archive: write chunk plaintext size: %w", err)
		}
	}

	if buf.Len() > indexReservedSize {
		return 0, fmt.Errorf("archive: chunk index (%d bytes) exceeds reserved space (%d bytes)", buf.Len(), indexReservedSize)
	}
	buf.Write(make([]byte, indexReservedSize-buf.Len()))

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (idx *chunkIndex) ReadFrom(r io.Reader) (int64, error) {
	raw := make([]byte, indexReservedSize)
	n, err := io.ReadFull(r, raw)
	if err != nil {
		return int64(n), fmt.Errorf("archive: read chunk index: %w", err)
	}

	rd := bytes.NewReader(raw)
	if err := binary.Read(rd, binary.LittleEndian, &idx.Count); err != nil {
		return int64(n), fmt.Errorf("archive: parse chunk count: %w", err)
	}
	idx.Offsets = make([]uint64, idx.Count)
	for i := range idx.Offsets {
		if err := binary.Read(rd, binary.LittleEndian, &idx.Offsets[i]); err != nil {
			return int64(n), fmt.Errorf("archive: parse chunk offset %d: %w", i, err)
		}
	}
	idx.PlaintextSizes = make([]uint32, idx.Count)
	for i := range idx.PlaintextSizes {
		if err := binary.Read(rd, binary.LittleEndian, &idx.PlaintextSizes[i]); err != nil {
			return int64(n), fmt.Errorf("archive: parse chunk plaintext size %d: %w", i, err)
		}
	}

	return int64(n), nil
}
