package threads

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Snapshot returns the ids of all threads currently owned by pid, captured
// through a Toolhelp snapshot.
func Snapshot(pid uint32) ([]uint32, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(snap)

	var ids []uint32
	te := windows.ThreadEntry32{Size: uint32(unsafe.Sizeof(windows.ThreadEntry32{}))}
	err = windows.Thread32First(snap, &te)
	for err == nil {
		if te.OwnerProcessID == pid {
			ids = append(ids, te.ThreadID)
		}
		err = windows.Thread32Next(snap, &te)
	}
	if err == windows.ERROR_NO_MORE_FILES {
		err = nil
	}
	return ids, err
}
