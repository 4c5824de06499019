package memory

import (
	"io"

	"golang.org/x/sys/windows"
)

// Int3 is the one-byte x86 breakpoint instruction.
const Int3 = 0xCC

// Patcher writes and restores single bytes in one target process. A Patcher
// is opened for the scope of one operation and closed immediately after.
type Patcher struct {
	process windows.Handle
}

// Open acquires a process handle with the access needed for patching.
func Open(pid uint32) (*Patcher, error) {
	h, err := windows.OpenProcess(windows.PROCESS_VM_OPERATION|windows.PROCESS_VM_READ|windows.PROCESS_VM_WRITE, false, pid)
	if err != nil {
		return nil, err
	}
	return &Patcher{process: h}, nil
}

func (p *Patcher) Close() error {
	return windows.CloseHandle(p.process)
}

// ReadByte returns the byte at addr in the target.
func (p *Patcher) ReadByte(addr uint64) (byte, error) {
	var b byte
	var n uintptr
	if err := windows.ReadProcessMemory(p.process, uintptr(addr), &b, 1, &n); err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, io.ErrUnexpectedEOF
	}
	return b, nil
}

// WriteByte stores b at addr in the target.
func (p *Patcher) WriteByte(addr uint64, b byte) error {
	var n uintptr
	if err := windows.WriteProcessMemory(p.process, uintptr(addr), &b, 1, &n); err != nil {
		return err
	}
	if n != 1 {
		return io.ErrShortWrite
	}
	return nil
}

// Arm reads the original byte at addr and replaces it with INT3. The
// original is returned to the caller, who owns it from then on.
func (p *Patcher) Arm(addr uint64) (byte, error) {
	orig, err := p.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	if err := p.WriteByte(addr, Int3); err != nil {
		return 0, err
	}
	return orig, nil
}

// Restore writes the saved original byte back over the INT3.
func (p *Patcher) Restore(addr uint64, orig byte) error {
	return p.WriteByte(addr, orig)
}
