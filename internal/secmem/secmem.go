// Package secmem implements the vault's sensitive-memory allocator: a
// fixed-capacity pool of heap buffers that are guaranteed to be zeroized on
// release, on normal process exit, and on any caught fatal signal.
package secmem

import (
	"crypto/subtle"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// Capacity is the fixed number of slots in the pool. The spec requires at
// least 100; 128 leaves headroom for the vault's deepest operation (update,
// which holds the old plaintext, the new plaintext, and both data keys at
// once) without ever growing the backing array.
const Capacity = 128

// slot is a single pool entry. It is deliberately a plain, fixed-size
// struct with no pointers-to-pointers or maps, so that ZeroizeAll can walk
// the array without allocating or taking locks that a signal handler could
// deadlock on.
type slot struct {
	buf  []byte
	used bool
}

// Pool is a process-wide bounded allocator for secret-carrying buffers.
type Pool struct {
	mu    sync.Mutex
	slots [Capacity]slot
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide singleton pool. main() owns its
// lifecycle via Init/Shutdown.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = &Pool{}
	})
	return defaultPool
}

var stopSignals func()

// Init starts the singleton pool's lifecycle: it locks the process's
// address space against paging (LockAddressSpace) and registers fatal-
// signal handling (CatchSignals) over Default(). The CLI calls this once
// at process startup; the returned stop function is also invoked by
// Shutdown, so callers need not hold onto it themselves.
func Init(log *logrus.Logger) {
	LockAddressSpace(log)
	stopSignals = CatchSignals(Default(), log)
}

// Shutdown ends the singleton pool's lifecycle: it stops signal delivery
// registered by Init and zeroizes every live buffer in Default(), so a
// normal (non-signal) process exit scrubs sensitive memory just as the
// signal path does. The CLI calls this once, deferred from main().
func Shutdown() {
	if stopSignals != nil {
		stopSignals()
	}
	Default().ZeroizeAll()
}

// Buffer is a handle to an acquired slot. Callers must call Release exactly
// once; acquiring zero-length buffers is rejected since there is nothing to
// protect.
type Buffer struct {
	pool  *Pool
	index int
	Bytes []byte
}

// ErrPoolExhausted is returned when every slot is in use.
var ErrPoolExhausted = fmt.Errorf("secmem: pool exhausted (capacity %d)", Capacity)

// ErrNotAcquired is returned when Release is asked to free a buffer the pool
// never handed out, or one already released.
var ErrNotAcquired = fmt.Errorf("secmem: release of untracked buffer")

// Acquire allocates n bytes from the pool. It fails fatally (the caller is
// expected to treat the error as an Internal error per the vault's error
// taxonomy) if no slot is free.
func (p *Pool) Acquire(n int) (*Buffer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("secmem: acquire size must be positive, got %d", n)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if !p.slots[i].used {
			p.slots[i].buf = make([]byte, n)
			p.slots[i].used = true
			return &Buffer{pool: p, index: i, Bytes: p.slots[i].buf}, nil
		}
	}
	return nil, ErrPoolExhausted
}

// Release zeroizes the buffer's backing bytes, then frees its slot.
func (b *Buffer) Release() error {
	if b == nil || b.pool == nil {
		return ErrNotAcquired
	}

	p := b.pool
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.slots[b.index]
	if !s.used {
		return ErrNotAcquired
	}

	Zeroize(s.buf)
	s.buf = nil
	s.used = false
	b.pool = nil
	b.Bytes = nil

	return nil
}

// ZeroizeAll walks every occupied slot and zeroizes its bytes without
// freeing them. It is called both from the normal-exit termination hook and
// from the signal-handling goroutine registered by CatchSignals; it must
// never allocate, lock a mutex that the signal path could already hold
// indefinitely, or call anything that is not safe to run concurrently with
// the rest of the program tearing down.
//
// The mutex here is acquired with TryLock rather than Lock: if the pool is
// mid-mutation when a fatal signal arrives, ZeroizeAll proceeds without the
// lock rather than risk hanging the termination path forever.
func (p *Pool) ZeroizeAll() {
	if !p.mu.TryLock() {
		p.zeroizeAllUnlocked()
		return
	}
	defer p.mu.Unlock()
	p.zeroizeAllUnlocked()
}

func (p *Pool) zeroizeAllUnlocked() {
	for i := range p.slots {
		if p.slots[i].used {
			Zeroize(p.slots[i].buf)
		}
	}
}

// Zeroize overwrites b with zero bytes in a way the compiler cannot elide,
// even though b is about to become unreachable.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ConstantTimeEqual reports whether a and b hold the same bytes, comparing
// in time independent of the position of the first difference. Used
// wherever secret material (derived keys, tags) is compared.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
