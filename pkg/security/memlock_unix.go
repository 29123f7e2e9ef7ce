//go:build linux || darwin

package security

import "golang.org/x/sys/unix"

// LockMemory pins key material so it is never written to swap. Failure is
// tolerated (the process may lack CAP_IPC_LOCK); callers ignore the error
// and proceed with unpinned memory.
func LockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mlock(b)
}

// UnlockMemory releases a previous LockMemory pin.
func UnlockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}
