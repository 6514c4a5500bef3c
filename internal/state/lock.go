package state

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/metrics"
)

const (
	staleLockAge  = 5 * time.Second
	retryInterval = 100 * time.Millisecond
	maxRetries    = 20
)

// fileLock implements single-writer mutual exclusion over the state
// document via a sibling "<path>.lock" file, created exclusively with
// content "<pid>:<unix-ms>", with stale-owner detection (age > 5s AND
// recorded PID not alive) and a bounded retry window.
type fileLock struct {
	path string
}

func newFileLock(statePath string) *fileLock {
	return &fileLock{path: statePath + ".lock"}
}

// acquire blocks (via sleep/retry) until the lock is held or the retry
// budget is exhausted, in which case it returns LockTimeout.
func (l *fileLock) acquire() error {
	start := time.Now()
	defer func() { metrics.LockWaitSeconds.Update(time.Since(start).Seconds()) }()

	for attempt := 0; attempt < maxRetries; attempt++ {
		content := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixMilli())
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, werr := f.WriteString(content)
			cerr := f.Close()
			if werr != nil {
				return fmt.Errorf("writing lock file: %w", werr)
			}
			if cerr != nil {
				return fmt.Errorf("closing lock file: %w", cerr)
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("creating lock file: %w", err)
		}

		if l.tryReapStale() {
			continue // retry immediately, no sleep
		}
		time.Sleep(retryInterval)
	}
	metrics.LockTimeouts.Inc()
	return apierr.New(apierr.KindLockTimeout, fmt.Sprintf("could not acquire lock %s after %d attempts", l.path, maxRetries))
}

// tryReapStale reads the existing lock file; if it is older than
// staleLockAge and its recorded PID is not a live process, it unlinks
// the lock and reports true so the caller can retry immediately.
func (l *fileLock) tryReapStale() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		return false // vanished between our EXCL failure and now
	}
	if time.Since(info.ModTime()) <= staleLockAge {
		return false
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return false
	}
	pid, ok := parseLockPID(string(raw))
	if !ok || isProcessAlive(pid) {
		return false
	}

	return os.Remove(l.path) == nil
}

// release unlinks the lock file; a missing file is not an error.
func (l *fileLock) release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing lock file: %w", err)
	}
	return nil
}

func parseLockPID(content string) (int, bool) {
	parts := strings.SplitN(content, ":", 2)
	if len(parts) == 0 {
		return 0, false
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	return pid, true
}

// isProcessAlive probes whether pid refers to a live process. On POSIX
// systems, sending signal 0 checks existence/permission without
// affecting the process.
func isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
