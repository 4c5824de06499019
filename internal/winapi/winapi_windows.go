package winapi

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Debug event codes delivered by WaitForDebugEvent.
const (
	ExceptionDebugEvent     = 1
	CreateThreadDebugEvent  = 2
	CreateProcessDebugEvent = 3
	ExitThreadDebugEvent    = 4
	ExitProcessDebugEvent   = 5
	LoadDllDebugEvent       = 6
	UnloadDllDebugEvent     = 7
	OutputDebugStringEvent  = 8
	RipEvent                = 9
)

// Continue statuses for ContinueDebugEvent.
const (
	DbgContinue            = 0x00010002
	DbgExceptionNotHandled = 0x80010001
)

const (
	ExceptionBreakpoint = 0x80000003
	ExceptionSingleStep = 0x80000004

	// Raised by MSVC programs to name a thread; must be swallowed or the
	// debuggee may crash.
	MsVcException = 0x406D1388

	exceptionMaximumParameters = 15
)

// Infinite is the timeout value that blocks WaitForDebugEvent forever.
const Infinite = 0xFFFFFFFF

// ThreadAllAccess is THREAD_ALL_ACCESS on Vista and later.
const ThreadAllAccess = 0x1FFFFF

// ExceptionRecord tracks the _EXCEPTION_RECORD windows struct.
type ExceptionRecord struct {
	ExceptionCode        uint32
	ExceptionFlags       uint32
	ExceptionRecord      *ExceptionRecord
	ExceptionAddress     uintptr
	NumberParameters     uint32
	ExceptionInformation [exceptionMaximumParameters]uintptr
}

// ExceptionDebugInfo is the union member carried by EXCEPTION_DEBUG_EVENT.
type ExceptionDebugInfo struct {
	ExceptionRecord ExceptionRecord
	FirstChance     uint32
}

// CreateProcessDebugInfo is the union member carried by
// CREATE_PROCESS_DEBUG_EVENT. The File handle is owned by the debugger and
// must be closed.
type CreateProcessDebugInfo struct {
	File                windows.Handle
	Process             windows.Handle
	Thread              windows.Handle
	BaseOfImage         uintptr
	DebugInfoFileOffset uint32
	DebugInfoSize       uint32
	ThreadLocalBase     uintptr
	StartAddress        uintptr
	ImageName           uintptr
	Unicode             uint16
}

// LoadDllDebugInfo is the union member carried by LOAD_DLL_DEBUG_EVENT.
type LoadDllDebugInfo struct {
	File                windows.Handle
	BaseOfDll           uintptr
	DebugInfoFileOffset uint32
	DebugInfoSize       uint32
	ImageName           uintptr
	Unicode             uint16
}

// ExitProcessDebugInfo is the union member carried by
// EXIT_PROCESS_DEBUG_EVENT.
type ExitProcessDebugInfo struct {
	ExitCode uint32
}

// DebugEvent tracks the _DEBUG_EVENT windows struct. The union is kept as
// raw bytes and reinterpreted by the accessors below.
type DebugEvent struct {
	DebugEventCode uint32
	ProcessId      uint32
	ThreadId       uint32
	_              uint32 // aligns the union
	U              [160]byte
}

func (ev *DebugEvent) Exception() *ExceptionDebugInfo {
	return (*ExceptionDebugInfo)(unsafe.Pointer(&ev.U[0]))
}

func (ev *DebugEvent) CreateProcess() *CreateProcessDebugInfo {
	return (*CreateProcessDebugInfo)(unsafe.Pointer(&ev.U[0]))
}

func (ev *DebugEvent) LoadDll() *LoadDllDebugInfo {
	return (*LoadDllDebugInfo)(unsafe.Pointer(&ev.U[0]))
}

func (ev *DebugEvent) ExitProcess() *ExitProcessDebugInfo {
	return (*ExitProcessDebugInfo)(unsafe.Pointer(&ev.U[0]))
}

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procWaitForDebugEvent         = modkernel32.NewProc("WaitForDebugEvent")
	procContinueDebugEvent        = modkernel32.NewProc("ContinueDebugEvent")
	procDebugActiveProcess        = modkernel32.NewProc("DebugActiveProcess")
	procDebugActiveProcessStop    = modkernel32.NewProc("DebugActiveProcessStop")
	procDebugSetProcessKillOnExit = modkernel32.NewProc("DebugSetProcessKillOnExit")
	procDebugBreakProcess         = modkernel32.NewProc("DebugBreakProcess")
	procGetThreadContext          = modkernel32.NewProc("GetThreadContext")
	procSetThreadContext          = modkernel32.NewProc("SetThreadContext")
)

// WaitForDebugEvent blocks until the next debug event for any debuggee of
// the calling thread, or until the timeout (milliseconds) elapses.
func WaitForDebugEvent(ev *DebugEvent, timeout uint32) error {
	r1, _, e1 := procWaitForDebugEvent.Call(uintptr(unsafe.Pointer(ev)), uintptr(timeout))
	if r1 == 0 {
		return e1
	}
	return nil
}

// ContinueDebugEvent releases the thread reported by a debug event.
func ContinueDebugEvent(processID, threadID, continueStatus uint32) error {
	r1, _, e1 := procContinueDebugEvent.Call(uintptr(processID), uintptr(threadID), uintptr(continueStatus))
	if r1 == 0 {
		return e1
	}
	return nil
}

// DebugActiveProcess attaches the calling thread as the debugger of pid.
func DebugActiveProcess(pid uint32) error {
	r1, _, e1 := procDebugActiveProcess.Call(uintptr(pid))
	if r1 == 0 {
		return e1
	}
	return nil
}

// DebugActiveProcessStop detaches from pid. Must be called on the thread
// that attached.
func DebugActiveProcessStop(pid uint32) error {
	r1, _, e1 := procDebugActiveProcessStop.Call(uintptr(pid))
	if r1 == 0 {
		return e1
	}
	return nil
}

// DebugSetProcessKillOnExit controls whether the calling thread's debuggees
// are terminated when the debugger exits or detaches.
func DebugSetProcessKillOnExit(kill bool) error {
	var v uintptr
	if kill {
		v = 1
	}
	r1, _, e1 := procDebugSetProcessKillOnExit.Call(v)
	if r1 == 0 {
		return e1
	}
	return nil
}

// DebugBreakProcess injects a breakpoint exception into the target, waking
// a debugger blocked in WaitForDebugEvent.
func DebugBreakProcess(process windows.Handle) error {
	r1, _, e1 := procDebugBreakProcess.Call(uintptr(process))
	if r1 == 0 {
		return e1
	}
	return nil
}

// GetThreadContext fills ctx with the register file of a stopped thread.
// ctx.ContextFlags selects the register groups transferred.
func GetThreadContext(thread windows.Handle, ctx *Context) error {
	r1, _, e1 := procGetThreadContext.Call(uintptr(thread), uintptr(unsafe.Pointer(ctx)))
	if r1 == 0 {
		return e1
	}
	return nil
}

// SetThreadContext writes ctx back into a stopped thread.
func SetThreadContext(thread windows.Handle, ctx *Context) error {
	r1, _, e1 := procSetThreadContext.Call(uintptr(thread), uintptr(unsafe.Pointer(ctx)))
	if r1 == 0 {
		return e1
	}
	return nil
}
