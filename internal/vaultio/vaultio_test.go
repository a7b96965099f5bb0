package vaultio

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func fill(t *testing.T, b []byte) {
	t.Helper()
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
}

func TestSystemRecordRoundTrip(t *testing.T) {
	var want SystemRecord
	want.Version = CurrentVersion
	fill(t, want.FileSalt[:])
	fill(t, want.NameSalt[:])
	fill(t, want.ConfigSalt[:])
	fill(t, want.ConfigTag[:])
	fill(t, want.ConfigCiphertext[:])

	var buf bytes.Buffer
	if _, err := want.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if buf.Len() != SystemRecordSize {
		t.Fatalf("expected %d bytes, got %d", SystemRecordSize, buf.Len())
	}

	var got SystemRecord
	if _, err := got.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if got != want {
		t.Fatal("round trip did not preserve system record")
	}
}

func TestSystemRecordRejectsBadVersion(t *testing.T) {
	var rec SystemRecord
	rec.Version = 7

	var buf bytes.Buffer
	if _, err := rec.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var got SystemRecord
	if _, err := got.ReadFrom(&buf); err != ErrUnsupportedVersion {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestSystemRecordRejectsTruncation(t *testing.T) {
	var got SystemRecord
	if _, err := got.ReadFrom(bytes.NewReader(make([]byte, SystemRecordSize-1))); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestItemRecordRoundTrip(t *testing.T) {
	var want ItemRecord
	want.Version = CurrentVersion
	fill(t, want.NameNonce[:])
	fill(t, want.NameTag[:])
	fill(t, want.NameCiphertext[:])
	fill(t, want.DataSalt[:])
	fill(t, want.DataTag[:])
	fill(t, want.DataCiphertext[:])

	var buf bytes.Buffer
	if _, err := want.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if buf.Len() != ItemRecordSize {
		t.Fatalf("expected %d bytes, got %d", ItemRecordSize, buf.Len())
	}

	var got ItemRecord
	if _, err := got.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if got != want {
		t.Fatal("round trip did not preserve item record")
	}
}

func TestItemRecordRejectsBadVersion(t *testing.T) {
	var rec ItemRecord
	rec.Version = 9

	var buf bytes.Buffer
	if _, err := rec.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var got ItemRecord
	if _, err := got.ReadFrom(&buf); err != ErrUnsupportedVersion {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}
