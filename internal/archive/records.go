package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cryptvault/cryptvault/internal/vault"
)

// encodeRecord serializes one NamedItem as length-prefixed fields, the
// simplest encoding that survives arbitrary printable-ASCII content
// without a separator character to escape. Grounded on the teacher's
// fixed-offset record style (file_format.go) adapted to variable-length
// fields since names, usernames and passwords vary within the spec's
// bounds rather than being fixed-width on disk the way the vault's own
// item records are.
func encodeRecord(w io.Writer, ni vault.NamedItem) error {
	fields := []string{ni.Name, ni.Item.Username, ni.Item.Password, ni.Item.OtherInfo}
	for _, f := range fields {
		if len(f) > 0xFFFF {
			return fmt.Errorf("archive: field too long to encode (%d bytes)", len(f))
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(f))); err != nil {
			return fmt.Errorf("archive: write field length: %w", err)
		}
		if _, err := io.WriteString(w, f); err != nil {
			return fmt.Errorf("archive: write field: %w", err)
		}
	}
	return nil
}

func decodeRecord(r *bytes.Reader) (vault.NamedItem, error) {
	var fields [4]string
	for i := range fields {
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return vault.NamedItem{}, fmt.Errorf("archive: read field length: %w", err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return vault.NamedItem{}, fmt.Errorf("archive: read field: %w", err)
		}
		fields[i] = string(buf)
	}
	return vault.NamedItem{
		Name: fields[0],
		Item: vault.Item{
			Username:  fields[1],
			Password:  fields[2],
			OtherInfo: fields[3],
		},
	}, nil
}

// encodedSize reports how many bytes encodeRecord would write for ni,
// used by batching to keep each chunk under DefaultChunkSize.
func encodedSize(ni vault.NamedItem) int {
	return 2 + len(ni.Name) + 2 + len(ni.Item.Username) + 2 + len(ni.Item.Password) + 2 + len(ni.Item.OtherInfo)
}

// batchRecords groups items into plaintext chunks no larger than
// DefaultChunkSize each. A single record larger than DefaultChunkSize
// still gets its own (oversized) chunk rather than being rejected, since
// the spec's size limits on item fields make this a rare, not fatal, case.
func batchRecords(items []vault.NamedItem) ([][]byte, error) {
	var chunks [][]byte
	var buf bytes.Buffer

	flush := func() {
		if buf.Len() > 0 {
			chunks = append(chunks, append([]byte(nil), buf.Bytes()...))
			buf.Reset()
		}
	}

	for _, ni := range items {
		size := encodedSize(ni)
		if buf.Len() > 0 && buf.Len()+size > DefaultChunkSize {
			flush()
		}
		if err := encodeRecord(&buf, ni); err != nil {
			return nil, err
		}
	}
	flush()

	return chunks, nil
}

// decodeChunk parses every record out of one chunk's decrypted plaintext.
func decodeChunk(plaintext []byte) ([]vault.NamedItem, error) {
	r := bytes.NewReader(plaintext)
	var items []vault.NamedItem
	for r.Len() > 0 {
		ni, err := decodeRecord(r)
		if err != nil {
			return nil, err
		}
		items = append(items, ni)
	}
	return items, nil
}
