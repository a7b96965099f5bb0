package archive

import (
	"testing"

	"github.com/cryptvault/cryptvault/internal/vault"
)

func TestEncodeDecodeRecordRoundTrip(t *testing.T) {
	items := []vault.NamedItem{
		{Name: "bank", Item: vault.Item{Username: "alice", Password: "hunter2!", OtherInfo: "note"}},
		{Name: "empty-fields", Item: vault.Item{}},
	}

	chunks, err := batchRecords(items)
	if err != nil {
		t.Fatalf("batchRecords: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for small input, got %d", len(chunks))
	}

	got, err := decodeChunk(chunks[0])
	if err != nil {
		t.Fatalf("decodeChunk: %v", err)
	}
	if len(got) != len(items) {
		t.Fatalf("expected %d records, got %d", len(items), len(got))
	}
	for i, ni := range items {
		if got[i] != ni {
			t.Fatalf("record %d mismatch: got %+v want %+v", i, got[i], ni)
		}
	}
}

func TestBatchRecordsSplitsOnSize(t *testing.T) {
	big := make([]vault.NamedItem, 0)
	for i := 0; i < 50; i++ {
		big = append(big, vault.NamedItem{
			Name: "item-with-a-longish-name-to-fill-space",
			Item: vault.Item{
				Username:  "user-with-a-longish-name-to-fill-space",
				Password:  "password-with-a-longish-value-to-fill-space",
				OtherInfo: "other-info-with-a-longish-value-to-fill-space",
			},
		})
	}

	chunks, err := batchRecords(big)
	if err != nil {
		t.Fatalf("batchRecords: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for oversized input, got %d", len(chunks))
	}

	var total []vault.NamedItem
	for _, c := range chunks {
		if len(c) > DefaultChunkSize {
			t.Fatalf("chunk exceeds DefaultChunkSize: %d bytes", len(c))
		}
		got, err := decodeChunk(c)
		if err != nil {
			t.Fatalf("decodeChunk: %v", err)
		}
		total = append(total, got...)
	}
	if len(total) != len(big) {
		t.Fatalf("expected %d records across all chunks, got %d", len(big), len(total))
	}
}
