package windbg

import (
	"golang.org/x/sys/windows"

	"gni.dev/windbg/internal/logflags"
	"gni.dev/windbg/internal/threads"
	"gni.dev/windbg/internal/winapi"
)

// applyDebugRegisters programs Dr0..Dr3 and Dr7 on every current thread of
// pid. Errors on individual threads are counted, not fatal: threads may
// exit between the snapshot and the context write, and programming the
// survivors is the correct policy for a live target. A zeroed addrs array
// clears all slots and disables Dr7.
func applyDebugRegisters(pid uint32, addrs [4]uint64) error {
	log := logflags.ThreadsLogger()

	ids, err := threads.Snapshot(pid)
	if err != nil {
		return &ThreadOpError{Failed: 0, Total: 0, Err: err}
	}

	control := dr7Enable(addrs)
	failed := 0
	var first error
	for _, tid := range ids {
		if err := programThread(tid, addrs, control); err != nil {
			failed++
			if first == nil {
				first = err
			}
			log.Debugf("program debug registers on thread %d: %v", tid, err)
		}
	}
	if failed > 0 {
		return &ThreadOpError{Failed: failed, Total: len(ids), Err: first}
	}
	return nil
}

func programThread(tid uint32, addrs [4]uint64, control uint64) error {
	h, err := windows.OpenThread(winapi.ThreadAllAccess, false, tid)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)

	ctx := winapi.NewContext()
	ctx.ContextFlags = winapi.ContextDebugRegisters
	if err := winapi.GetThreadContext(h, ctx); err != nil {
		return err
	}

	ctx.Dr0 = addrs[0]
	ctx.Dr1 = addrs[1]
	ctx.Dr2 = addrs[2]
	ctx.Dr3 = addrs[3]
	ctx.Dr7 = control

	return winapi.SetThreadContext(h, ctx)
}
