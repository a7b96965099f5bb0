package secmem

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// catchableSignals is the set spec.md §4.4 and §5 call out as catchable
// fatal signals: abort, term, int, hup, pipe, quit. SIGSEGV is intentionally
// excluded — Go does not support safely resuming termination logic from a
// real SIGSEGV handler, and the runtime's own fault handling already
// terminates the process; see DESIGN.md.
var catchableSignals = []os.Signal{
	syscall.SIGABRT,
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGQUIT,
	syscall.SIGPIPE,
}

var (
	stopOnce sync.Once
	stopCh   chan struct{}
)

// CatchSignals registers a handler that zeroizes every live sensitive
// buffer in p and terminates the process with non-zero status on receipt of
// any of catchableSignals. It returns a function that stops the handler
// (used by tests and by graceful shutdown paths); production code need not
// call it.
func CatchSignals(p *Pool, log *logrus.Logger) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, catchableSignals...)
	stopCh = make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			p.ZeroizeAll()
			if log != nil {
				log.WithField("signal", sig.String()).Error("terminating on signal after zeroizing sensitive memory")
			}
			os.Exit(1)
		case <-stopCh:
			return
		}
	}()

	return func() {
		stopOnce.Do(func() { close(stopCh) })
		signal.Stop(sigCh)
	}
}

// LockAddressSpace requests that the process's entire virtual address space
// be locked against paging, so secrets are never written to swap. Failure
// (most commonly because the per-process locked-memory rlimit is below the
// Argon2 working set) is logged and not treated as fatal, matching the
// documented limitation in spec.md §9.
func LockAddressSpace(log *logrus.Logger) {
	err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE)
	if err != nil && log != nil {
		log.WithError(err).Warn("failed to lock process memory against swap; secrets may be paged out")
	}
}
