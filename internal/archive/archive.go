package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/cryptvault/cryptvault/internal/aead"
	"github.com/cryptvault/cryptvault/internal/kdf"
	"github.com/cryptvault/cryptvault/internal/secmem"
	"github.com/cryptvault/cryptvault/internal/vault"
	"github.com/cryptvault/cryptvault/internal/vaultio"
)

// archiveKeyLabel is the kdf label under which an archive's own encryption
// key is derived from the vault's master passphrase, distinct from
// kdf.LabelData/LabelNames/LabelFiles so a leaked archive key can never be
// confused with the vault's own item or config keys.
const archiveKeyLabel = "archive"

// Export authenticates against v once and writes every item to path as a
// single encrypted archive file, per SPEC_FULL.md §10. The archive is
// encrypted under a key derived from the same master passphrase but a
// freshly drawn salt, so the archive file carries no key material in
// common with the vault's own on-disk records.
func Export(v *vault.Vault, path string) error {
	auth, err := v.Authenticate()
	if err != nil {
		return err
	}
	defer secmem.Zeroize(auth.Passphrase)

	items, err := v.ExportItems(auth)
	if err != nil {
		return err
	}

	var archiveSalt [archiveSaltLen]byte
	if err := secmem.Fill(archiveSalt[:]); err != nil {
		return fmt.Errorf("archive: draw archive salt: %w", err)
	}

	archiveKey := kdf.DeriveKey(auth.Passphrase, archiveSalt[:], archiveKeyLabel, aead.KeySize)
	defer secmem.Zeroize(archiveKey)
	engine, err := aead.New(archiveKey)
	if err != nil {
		return fmt.Errorf("archive: construct archive cipher: %w", err)
	}

	plaintexts, err := batchRecords(items)
	if err != nil {
		return err
	}

	jobs := make([]chunkJob, len(plaintexts))
	for i, pt := range plaintexts {
		jobs[i] = chunkJob{index: i, plaintext: pt}
		if err := secmem.Fill(jobs[i].nonce[:]); err != nil {
			return fmt.Errorf("archive: draw chunk nonce: %w", err)
		}
	}
	defer zeroizeJobs(jobs)

	if err := parallelEncryptChunks(DefaultParallelConfig(), engine, jobs); err != nil {
		return fmt.Errorf("archive: encrypt chunks: %w", err)
	}

	var body bytes.Buffer
	idx := &chunkIndex{}
	for _, job := range jobs {
		idx.add(uint64(body.Len()), uint32(len(job.plaintext)))

		h := chunkHeader{PlaintextSize: uint32(len(job.plaintext)), Nonce: job.nonce}
		if _, err := h.WriteTo(&body); err != nil {
			return err
		}
		if _, err := body.Write(job.tag); err != nil {
			return fmt.Errorf("archive: write chunk tag: %w", err)
		}
		if _, err := body.Write(job.ciphertext); err != nil {
			return fmt.Errorf("archive: write chunk ciphertext: %w", err)
		}
	}

	var out bytes.Buffer
	hdr := header{Magic: magic, Version: formatVersion, ArchiveSalt: archiveSalt}
	if _, err := hdr.WriteTo(&out); err != nil {
		return err
	}
	if _, err := idx.WriteTo(&out); err != nil {
		return err
	}
	if _, err := out.Write(body.Bytes()); err != nil {
		return fmt.Errorf("archive: assemble archive: %w", err)
	}

	if err := vaultio.WriteFileAtomic(path, out.Bytes(), 0o600); err != nil {
		return fmt.Errorf("archive: write archive file: %w", err)
	}
	return nil
}

// Import authenticates against v once and creates every record found in
// the archive at path. A record that CreateWithAuth rejects as user input
// (a name that collides with an existing item) is counted in the returned
// skipped count rather than aborting the whole import, so one colliding
// record doesn't block the rest; it is not logged. Any other error stops
// the import.
func Import(v *vault.Vault, path string) (imported int, skipped int, err error) {
	auth, err := v.Authenticate()
	if err != nil {
		return 0, 0, err
	}
	defer secmem.Zeroize(auth.Passphrase)

	data, err := vaultio.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("archive: read archive file: %w", err)
	}
	r := bytes.NewReader(data)

	var hdr header
	if _, err := hdr.ReadFrom(r); err != nil {
		return 0, 0, err
	}

	var idx chunkIndex
	if _, err := idx.ReadFrom(r); err != nil {
		return 0, 0, err
	}

	archiveKey := kdf.DeriveKey(auth.Passphrase, hdr.ArchiveSalt[:], archiveKeyLabel, aead.KeySize)
	defer secmem.Zeroize(archiveKey)
	engine, err := aead.New(archiveKey)
	if err != nil {
		return 0, 0, fmt.Errorf("archive: construct archive cipher: %w", err)
	}

	body := data[len(data)-r.Len():]

	jobs := make([]chunkJob, idx.Count)
	for i := uint32(0); i < idx.Count; i++ {
		cr := bytes.NewReader(body[idx.Offsets[i]:])

		var h chunkHeader
		if _, err := h.ReadFrom(cr); err != nil {
			return 0, 0, err
		}

		tag := make([]byte, aead.TagSize)
		if _, err := io.ReadFull(cr, tag); err != nil {
			return 0, 0, fmt.Errorf("archive: read chunk tag: %w", err)
		}
		ciphertext := make([]byte, h.PlaintextSize)
		if _, err := io.ReadFull(cr, ciphertext); err != nil {
			return 0, 0, fmt.Errorf("archive: read chunk ciphertext: %w", err)
		}

		jobs[i] = chunkJob{index: int(i), ciphertext: ciphertext, tag: tag, nonce: h.Nonce}
	}

	if err := parallelDecryptChunks(DefaultParallelConfig(), engine, jobs); err != nil {
		if err == aead.ErrAuthFailed {
			return 0, 0, fmt.Errorf("archive: chunk failed authentication, archive is corrupt or tampered: %w", err)
		}
		return 0, 0, fmt.Errorf("archive: decrypt chunks: %w", err)
	}
	defer zeroizeJobs(jobs)

	for _, job := range jobs {
		records, err := decodeChunk(job.plaintext)
		if err != nil {
			return imported, skipped, err
		}
		for _, rec := range records {
			if err := v.CreateWithAuth(auth, rec.Name, rec.Item); err != nil {
				var verr *vault.Error
				if errors.As(err, &verr) && verr.Class == vault.ClassUserInput {
					skipped++
					continue
				}
				return imported, skipped, err
			}
			imported++
		}
	}

	return imported, skipped, nil
}
