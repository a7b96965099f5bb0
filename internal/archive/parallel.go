package archive

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cryptvault/cryptvault/internal/aead"
	"github.com/cryptvault/cryptvault/internal/secmem"
)

// ParallelConfig controls parallel chunk processing during Export/Import.
// Grounded on the teacher's ParallelConfig (parallel.go).
type ParallelConfig struct {
	Enabled bool

	// MaxWorkers is the maximum number of worker goroutines. If 0,
	// defaults to runtime.NumCPU().
	MaxWorkers int

	// MinChunksForParallel is the minimum chunk count before parallel
	// processing is used; below it, chunks are processed sequentially.
	MinChunksForParallel int
}

// DefaultParallelConfig mirrors the teacher's default: parallel enabled,
// one worker per CPU, a floor of 4 chunks before bothering to parallelize.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		Enabled:              true,
		MaxWorkers:           runtime.NumCPU(),
		MinChunksForParallel: 4,
	}
}

func workerCount(cfg ParallelConfig, n int) int {
	w := cfg.MaxWorkers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	if w > n {
		w = n
	}
	return w
}

// parallelEncryptChunks fills in ciphertext and tag for every job using
// engine, falling back to sequential processing below
// cfg.MinChunksForParallel chunks or when cfg.Enabled is false. Adapted
// from the teacher's parallelEncryptChunks (parallel.go), split for the
// archive's separate ciphertext/tag fields instead of one concatenated
// AEAD output.
func parallelEncryptChunks(cfg ParallelConfig, engine *aead.Engine, jobs []chunkJob) error {
	if len(jobs) == 0 {
		return nil
	}

	if !cfg.Enabled || len(jobs) < cfg.MinChunksForParallel {
		for i := range jobs {
			ct, tag, err := engine.Seal(jobs[i].nonce[:], jobs[i].plaintext)
			if err != nil {
				return err
			}
			jobs[i].ciphertext, jobs[i].tag = ct, tag
		}
		return nil
	}

	numWorkers := workerCount(cfg, len(jobs))
	var wg sync.WaitGroup
	jobChan := make(chan int, len(jobs))
	errChan := make(chan error, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					select {
					case errChan <- fmt.Errorf("archive: panic in encryption worker: %v", r):
					default:
					}
				}
			}()
			for idx := range jobChan {
				ct, tag, err := engine.Seal(jobs[idx].nonce[:], jobs[idx].plaintext)
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					return
				}
				jobs[idx].ciphertext, jobs[idx].tag = ct, tag
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()
	close(errChan)

	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

// parallelDecryptChunks fills in plaintext for every job, mirroring
// parallelEncryptChunks. Any job whose tag fails to verify surfaces
// aead.ErrAuthFailed to the caller, which treats it as archive corruption.
func parallelDecryptChunks(cfg ParallelConfig, engine *aead.Engine, jobs []chunkJob) error {
	if len(jobs) == 0 {
		return nil
	}

	if !cfg.Enabled || len(jobs) < cfg.MinChunksForParallel {
		for i := range jobs {
			pt, err := engine.Open(jobs[i].nonce[:], jobs[i].ciphertext, jobs[i].tag)
			if err != nil {
				return err
			}
			jobs[i].plaintext = pt
		}
		return nil
	}

	numWorkers := workerCount(cfg, len(jobs))
	var wg sync.WaitGroup
	jobChan := make(chan int, len(jobs))
	errChan := make(chan error, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					select {
					case errChan <- fmt.Errorf("archive: panic in decryption worker: %v", r):
					default:
					}
				}
			}()
			for idx := range jobChan {
				pt, err := engine.Open(jobs[idx].nonce[:], jobs[idx].ciphertext, jobs[idx].tag)
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					return
				}
				jobs[idx].plaintext = pt
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()
	close(errChan)

	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

// zeroizeJobs scrubs every job's plaintext once it has been consumed
// (encoded into or decoded out of). Decrypted item data is sensitive;
// see secmem.Zeroize.
func zeroizeJobs(jobs []chunkJob) {
	for i := range jobs {
		secmem.Zeroize(jobs[i].plaintext)
	}
}
