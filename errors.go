package windbg

import "fmt"

// PrivilegeError reports that SeDebugPrivilege could not be acquired or
// released.
type PrivilegeError struct {
	Err error
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("debug privilege: %v", e.Err)
}

func (e *PrivilegeError) Unwrap() error { return e.Err }

// AttachError reports that the session could not attach to (or signal) the
// target process.
type AttachError struct {
	Pid uint32
	Err error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("attach to pid %d: %v", e.Pid, e.Err)
}

func (e *AttachError) Unwrap() error { return e.Err }

// ThreadOpError aggregates per-thread failures from a fan-out over the
// target's thread set. It is reported but treated as non-fatal: threads die
// under a live target and programming the survivors is the correct policy.
type ThreadOpError struct {
	Failed int
	Total  int
	Err    error // first cause
}

func (e *ThreadOpError) Error() string {
	return fmt.Sprintf("%d of %d threads failed: %v", e.Failed, e.Total, e.Err)
}

func (e *ThreadOpError) Unwrap() error { return e.Err }

// MemoryError reports a failed patch or restore of a target byte.
type MemoryError struct {
	Addr uint64
	Err  error
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("patch %#x: %v", e.Addr, e.Err)
}

func (e *MemoryError) Unwrap() error { return e.Err }

// SlotError reports a hardware breakpoint slot outside 0..3.
type SlotError struct {
	Slot int
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("hardware breakpoint slot %d out of range 0..3", e.Slot)
}

// BusyError reports an operation rejected because the event loop owns the
// session: breakpoint collections cannot be mutated while the loop runs,
// and a running session cannot be replaced.
type BusyError struct {
	Op string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%s: session is running", e.Op)
}
