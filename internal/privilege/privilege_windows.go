package privilege

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const seDebugName = "SeDebugPrivilege"

// SetDebug enables or disables SeDebugPrivilege on the current process
// token. The adjustment is idempotent; call it before any attach attempt.
func SetDebug(enable bool) error {
	var token windows.Token
	proc := windows.CurrentProcess()
	if err := windows.OpenProcessToken(proc, windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token); err != nil {
		return fmt.Errorf("open process token: %w", err)
	}
	defer token.Close()

	name, err := windows.UTF16PtrFromString(seDebugName)
	if err != nil {
		return err
	}

	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, name, &luid); err != nil {
		return fmt.Errorf("lookup %s: %w", seDebugName, err)
	}

	tp := windows.Tokenprivileges{
		PrivilegeCount: 1,
		Privileges: [1]windows.LUIDAndAttributes{
			{Luid: luid},
		},
	}
	if enable {
		tp.Privileges[0].Attributes = windows.SE_PRIVILEGE_ENABLED
	}

	if err := windows.AdjustTokenPrivileges(token, false, &tp, 0, nil, nil); err != nil {
		return fmt.Errorf("adjust %s: %w", seDebugName, err)
	}
	// AdjustTokenPrivileges succeeds even when nothing was assigned.
	if e := windows.GetLastError(); e == windows.ERROR_NOT_ALL_ASSIGNED {
		return fmt.Errorf("adjust %s: %w", seDebugName, e)
	}
	return nil
}
