// Package privilege toggles SeDebugPrivilege on the current process token.
package privilege
