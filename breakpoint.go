package windbg

import (
	"github.com/sirupsen/logrus"
)

// Handler observes and optionally rewrites the register file of a thread
// stopped on a breakpoint. Returning the input unchanged (or nil) is the
// identity operation. Handlers run on the debugger thread while the hit
// thread is stopped; the target does not resume until the handler returns.
type Handler func(Registers) Registers

// Breakpoint is a trap at one virtual address in the target. The same type
// backs both hardware breakpoints (programmed into a Dr slot) and software
// breakpoints (an INT3 byte patched over the instruction); two breakpoints
// are the same breakpoint iff their addresses are equal.
type Breakpoint struct {
	Address uint64
	Handler Handler

	// Software breakpoint state, owned by the event loop. The original
	// byte is captured the first time the breakpoint is armed and kept
	// for the life of the breakpoint.
	originalByte byte
	captured     bool
	armed        bool
}

// NewHardwareBreakpoint returns a breakpoint for one of the four Dr slots.
// A nil handler observes nothing and behaves as the identity.
func NewHardwareBreakpoint(addr uint64, h Handler) Breakpoint {
	return Breakpoint{Address: addr, Handler: h}
}

// NewSoftwareBreakpoint returns an INT3 breakpoint. The byte under addr is
// captured when the breakpoint is first armed.
func NewSoftwareBreakpoint(addr uint64, h Handler) Breakpoint {
	return Breakpoint{Address: addr, Handler: h}
}

// OriginalByte returns the byte saved from under the INT3 patch, and
// whether it has been captured yet.
func (bp *Breakpoint) OriginalByte() (byte, bool) {
	return bp.originalByte, bp.captured
}

// invokeHandler runs a breakpoint handler under the host lock. A handler
// that panics is logged and treated as the identity: the register file the
// loop writes back is the untouched snapshot, and debugging continues.
func (s *Session) invokeHandler(bp *Breakpoint, regs Registers, log *logrus.Entry) (out Registers) {
	host := s.hostBridge()
	host.AcquireLock()
	defer host.ReleaseLock()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("addr", bp.Address).Errorf("breakpoint callback panicked: %v", r)
			out = regs
		}
	}()

	if bp.Handler == nil {
		return regs
	}
	ret := bp.Handler(regs.Clone())
	if ret == nil {
		return regs
	}
	return ret
}
