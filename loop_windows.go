package windbg

import (
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"gni.dev/windbg/internal/logflags"
	"gni.dev/windbg/internal/memory"
	"gni.dev/windbg/internal/privilege"
	"gni.dev/windbg/internal/winapi"
)

// Start attaches to the target and pumps debug events until Stop is called
// or the target exits. It blocks for the lifetime of the session run.
//
// The Windows debug APIs bind the debugger to the calling thread: attach,
// wait, continue and detach must all happen on the same OS thread, so
// Start locks its goroutine to one and performs the detach itself on the
// way out. Stop only signals, clears the hardware slots and wakes the
// loop with a debugger break-in.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return &BusyError{Op: "start"}
	}
	s.running = true
	s.targetExited = false
	s.pendingBreakIns = 0
	s.mu.Unlock()

	log := logflags.DebuggerLogger()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := privilege.SetDebug(true); err != nil {
		s.abortRun()
		return &PrivilegeError{Err: err}
	}

	if err := winapi.DebugActiveProcess(s.pid); err != nil {
		s.abortRun()
		return &AttachError{Pid: s.pid, Err: err}
	}
	// Stopping must leave the target running.
	if err := winapi.DebugSetProcessKillOnExit(false); err != nil {
		log.Warnf("DebugSetProcessKillOnExit: %v", err)
	}

	// Attaching injects a break-in thread into the target; its breakpoint
	// event matches no user breakpoint and must be swallowed.
	s.expectBreakIn()

	if err := s.programDebugRegisters(); err != nil {
		log.Errorf("program hardware breakpoints: %v", err)
	}

	host := s.hostBridge()
	host.ReleaseLock()
	defer host.AcquireLock()

	s.pump(log)

	s.disarmAll(log)
	if err := applyDebugRegisters(s.pid, [4]uint64{}); err != nil && !s.exited() {
		log.Errorf("clear hardware breakpoints: %v", err)
	}
	if !s.exited() {
		if err := winapi.DebugActiveProcessStop(s.pid); err != nil {
			log.Errorf("detach from pid %d: %v", s.pid, err)
		}
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// Stop asks the event loop to exit. It zeroes the four hardware slots and
// injects a break-in so the loop does not stay parked in WaitForDebugEvent;
// the loop restores software breakpoint bytes, reprograms the cleared
// debug registers and detaches before Start returns. Stop is safe to call
// from any goroutine and is a no-op on a stopped session.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.pendingBreakIns++
	for i := range s.hw {
		s.hw[i] = Breakpoint{}
	}
	pid := s.pid
	s.mu.Unlock()

	h, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, pid)
	if err != nil {
		return &AttachError{Pid: pid, Err: err}
	}
	defer windows.CloseHandle(h)
	if err := winapi.DebugBreakProcess(h); err != nil {
		return &AttachError{Pid: pid, Err: err}
	}
	return nil
}

func (s *Session) abortRun() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Session) programDebugRegisters() error {
	return applyDebugRegisters(s.pid, s.hardwareAddresses())
}

func (s *Session) pump(log *logrus.Entry) {
	ev := new(winapi.DebugEvent)
	for s.isRunning() {
		// Re-arm every iteration: a breakpoint that was just hit had its
		// original byte restored and stays disarmed until the target has
		// executed the real instruction.
		s.armSoftwareBreakpoints(log)

		if err := winapi.WaitForDebugEvent(ev, winapi.Infinite); err != nil {
			log.Errorf("wait for debug event: %v", err)
			return
		}

		status := s.dispatch(ev, log)
		if err := winapi.ContinueDebugEvent(ev.ProcessId, ev.ThreadId, status); err != nil {
			log.Errorf("continue debug event: %v", err)
		}
		if s.exited() {
			return
		}
	}
}

func (s *Session) dispatch(ev *winapi.DebugEvent, log *logrus.Entry) uint32 {
	switch ev.DebugEventCode {
	case winapi.ExceptionDebugEvent:
		return s.dispatchException(ev, log)

	case winapi.CreateProcessDebugEvent:
		// The event carries an image file handle owned by the debugger.
		if f := ev.CreateProcess().File; f != 0 && f != windows.InvalidHandle {
			windows.CloseHandle(f)
		}
		return winapi.DbgContinue

	case winapi.LoadDllDebugEvent:
		if f := ev.LoadDll().File; f != 0 && f != windows.InvalidHandle {
			windows.CloseHandle(f)
		}
		return winapi.DbgContinue

	case winapi.ExitProcessDebugEvent:
		log.Infof("target %d exited with code %d", ev.ProcessId, ev.ExitProcess().ExitCode)
		s.noteTargetExit()
		return winapi.DbgContinue

	default:
		// Thread create/exit, DLL unload, debug strings, RIP events:
		// nothing to do, release the target.
		return winapi.DbgContinue
	}
}

func (s *Session) dispatchException(ev *winapi.DebugEvent, log *logrus.Entry) uint32 {
	rec := &ev.Exception().ExceptionRecord
	addr := uint64(rec.ExceptionAddress)

	switch rec.ExceptionCode {
	case winapi.ExceptionSingleStep:
		// Debug-register traps arrive as single-step exceptions.
		if bp, ok := s.hardwareAt(addr); ok {
			log.Debugf("hardware breakpoint hit at %#x on thread %d", addr, ev.ThreadId)
			s.handleHit(ev.ThreadId, &bp, false, log)
			return winapi.DbgContinue
		}

	case winapi.ExceptionBreakpoint:
		if bp := s.softwareAt(addr); bp != nil {
			log.Debugf("software breakpoint hit at %#x on thread %d", addr, ev.ThreadId)
			s.handleSoftwareHit(ev.ThreadId, bp, log)
			return winapi.DbgContinue
		}
		// The attach sequence and Stop both inject debugger-owned
		// break-ins; forwarding one to the target would kill it.
		if s.takeBreakIn() {
			return winapi.DbgContinue
		}

	case winapi.MsVcException:
		return winapi.DbgContinue
	}

	// Not ours: hand the exception to the target's own handlers.
	return winapi.DbgExceptionNotHandled
}

// handleSoftwareHit lifts the INT3, runs the handler, rewinds Rip over the
// trap byte and resumes. The breakpoint is re-armed at the top of the next
// pump iteration, after the restored instruction has executed.
func (s *Session) handleSoftwareHit(tid uint32, bp *Breakpoint, log *logrus.Entry) {
	if err := s.restoreBreakpointByte(bp); err != nil {
		log.Errorf("%v", &MemoryError{Addr: bp.Address, Err: err})
	}
	s.handleHit(tid, bp, true, log)
}

func (s *Session) handleHit(tid uint32, bp *Breakpoint, rewind bool, log *logrus.Entry) {
	h, err := windows.OpenThread(winapi.ThreadAllAccess, false, tid)
	if err != nil {
		log.Errorf("open thread %d: %v", tid, err)
		return
	}
	defer windows.CloseHandle(h)

	ctx := winapi.NewContext()
	ctx.ContextFlags = winapi.ContextFull
	if err := winapi.GetThreadContext(h, ctx); err != nil {
		log.Errorf("get context of thread %d: %v", tid, err)
		return
	}

	regs := newRegisters(ctx)
	out := s.invokeHandler(bp, regs, log)
	applyRegisters(ctx, out)

	if rewind {
		// INT3 left Rip one past the trap byte; rewind so the restored
		// instruction executes.
		ctx.Rip--
	}
	// The resume flag suppresses one instruction-boundary breakpoint
	// fault, so neither kind of breakpoint re-fires before the thread
	// makes progress.
	ctx.EFlags |= winapi.ResumeFlag

	if err := winapi.SetThreadContext(h, ctx); err != nil {
		log.Errorf("set context of thread %d: %v", tid, err)
	}
}

func (s *Session) armSoftwareBreakpoints(log *logrus.Entry) {
	bps := s.swSnapshot()
	if len(bps) == 0 {
		return
	}
	mlog := logflags.MemoryLogger()

	p, err := memory.Open(s.pid)
	if err != nil {
		log.Errorf("open target memory: %v", err)
		return
	}
	defer p.Close()

	for _, bp := range bps {
		if !bp.captured {
			orig, err := p.Arm(bp.Address)
			if err != nil {
				log.Errorf("%v", &MemoryError{Addr: bp.Address, Err: err})
				continue
			}
			bp.originalByte = orig
			bp.captured = true
			mlog.Debugf("armed %#x, original byte %#02x", bp.Address, orig)
		} else if err := p.WriteByte(bp.Address, memory.Int3); err != nil {
			log.Errorf("%v", &MemoryError{Addr: bp.Address, Err: err})
			continue
		}
		bp.armed = true
	}
}

func (s *Session) restoreBreakpointByte(bp *Breakpoint) error {
	if !bp.captured {
		return nil
	}
	if err := restoreOriginalByte(s.pid, bp.Address, bp.originalByte); err != nil {
		return err
	}
	bp.armed = false
	return nil
}

// disarmAll restores every armed software breakpoint, leaving the target's
// code as it was before the session ran.
func (s *Session) disarmAll(log *logrus.Entry) {
	if s.exited() {
		return
	}
	for _, bp := range s.swSnapshot() {
		if !bp.armed {
			continue
		}
		if err := s.restoreBreakpointByte(bp); err != nil {
			log.Errorf("%v", &MemoryError{Addr: bp.Address, Err: err})
		}
	}
}

func restoreOriginalByte(pid uint32, addr uint64, orig byte) error {
	p, err := memory.Open(pid)
	if err != nil {
		return err
	}
	defer p.Close()
	return p.Restore(addr, orig)
}
