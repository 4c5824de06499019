package windbg

import (
	"fmt"
	"sync"
)

// Session is a debugging session bound to one target process. Populate it
// with breakpoints, then Start it; Start blocks pumping debug events until
// Stop is called from another goroutine or the target exits.
//
// Breakpoint collections are owned by the event loop once Start runs:
// every mutating operation returns a BusyError until the loop has exited.
type Session struct {
	pid uint32

	mu              sync.Mutex
	hw              [4]Breakpoint // slot i mirrors Dr{i}; zero address = empty
	sw              []*Breakpoint // ordered, unique by address
	host            Host
	running         bool
	pendingBreakIns int // debugger-owned break-ins in flight
	targetExited    bool
}

// NewSession returns a session for the given process id. Most embedders
// use CreateDebugger instead, which also installs the session process-wide.
func NewSession(pid uint32) *Session {
	return &Session{pid: pid}
}

// Pid returns the target process id.
func (s *Session) Pid() uint32 {
	return s.pid
}

// SetHost installs the lock bridge of the embedding environment. The
// default is NopHost.
func (s *Session) SetHost(h Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return &BusyError{Op: "set host"}
	}
	s.host = h
	return nil
}

func (s *Session) hostBridge() Host {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host == nil {
		return NopHost{}
	}
	return s.host
}

// SetHardwareBreakpoint registers bp in the given Dr slot, replacing
// whatever the slot held.
func (s *Session) SetHardwareBreakpoint(slot int, bp Breakpoint) error {
	if slot < 0 || slot > 3 {
		return &SlotError{Slot: slot}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return &BusyError{Op: "set hardware breakpoint"}
	}
	s.hw[slot] = bp
	return nil
}

// HardwareSlot returns the breakpoint in the given Dr slot. An empty slot
// reads as a breakpoint with address zero.
func (s *Session) HardwareSlot(slot int) (Breakpoint, error) {
	if slot < 0 || slot > 3 {
		return Breakpoint{}, &SlotError{Slot: slot}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hw[slot], nil
}

// AddSoftwareBreakpoint appends bp to the software breakpoint collection.
// Addresses are unique: adding a second breakpoint at the same address is
// an error.
func (s *Session) AddSoftwareBreakpoint(bp Breakpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return &BusyError{Op: "add software breakpoint"}
	}
	for _, have := range s.sw {
		if have.Address == bp.Address {
			return fmt.Errorf("software breakpoint at %#x already exists", bp.Address)
		}
	}
	own := bp
	s.sw = append(s.sw, &own)
	return nil
}

// RemoveSoftwareBreakpoint restores the original byte if the breakpoint is
// still armed and removes it from the collection.
func (s *Session) RemoveSoftwareBreakpoint(addr uint64) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return &BusyError{Op: "remove software breakpoint"}
	}
	idx := -1
	for i, have := range s.sw {
		if have.Address == addr {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("no software breakpoint at %#x", addr)
	}
	bp := s.sw[idx]
	s.sw = append(s.sw[:idx], s.sw[idx+1:]...)
	s.mu.Unlock()

	if bp.armed && bp.captured {
		if err := restoreOriginalByte(s.pid, bp.Address, bp.originalByte); err != nil {
			return &MemoryError{Addr: bp.Address, Err: err}
		}
		bp.armed = false
	}
	return nil
}

// SoftwareBreakpoints returns a snapshot of the software breakpoint
// collection in insertion order.
func (s *Session) SoftwareBreakpoints() []Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Breakpoint, len(s.sw))
	for i, bp := range s.sw {
		out[i] = *bp
	}
	return out
}

// Running reports whether the event loop currently owns the session.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) softwareAt(addr uint64) *Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bp := range s.sw {
		if bp.Address == addr {
			return bp
		}
	}
	return nil
}

func (s *Session) hardwareAt(addr uint64) (Breakpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bp := range s.hw {
		if bp.Address != 0 && bp.Address == addr {
			return bp, true
		}
	}
	return Breakpoint{}, false
}

func (s *Session) swSnapshot() []*Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Breakpoint, len(s.sw))
	copy(out, s.sw)
	return out
}

func (s *Session) hardwareAddresses() [4]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var addrs [4]uint64
	for i, bp := range s.hw {
		addrs[i] = bp.Address
	}
	return addrs
}

func (s *Session) expectBreakIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingBreakIns++
}

func (s *Session) takeBreakIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingBreakIns == 0 {
		return false
	}
	s.pendingBreakIns--
	return true
}

func (s *Session) noteTargetExit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetExited = true
	s.running = false
}

func (s *Session) exited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetExited
}

func (s *Session) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
