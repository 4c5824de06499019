// Package windbg is a user-mode debugger engine for Windows x86_64
// targets. Given the pid of a running process it installs hardware and
// software breakpoints, attaches as a debugger, pumps the debug event
// stream and hands each breakpoint hit to a user handler that may inspect
// and rewrite the stopped thread's general-purpose registers.
package windbg

import "sync"

var (
	currentMu sync.Mutex
	current   *Session
)

// CreateDebugger creates the process-wide session for pid, replacing any
// previous one. A session that is still running cannot be replaced.
func CreateDebugger(pid uint32) (*Session, error) {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current != nil && current.Running() {
		return nil, &BusyError{Op: "create debugger"}
	}
	current = NewSession(pid)
	return current, nil
}

// AccessDebugger returns the current process-wide session, or nil if
// CreateDebugger has not been called.
func AccessDebugger() *Session {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}
