//go:build !windows

package kill

import "syscall"

type unixSignaler struct{}

// NewSignaler returns the platform signal implementation.
func NewSignaler() Signaler {
	return unixSignaler{}
}

func (unixSignaler) Terminate(pid int32) error {
	return syscall.Kill(int(pid), syscall.SIGTERM)
}

func (unixSignaler) Kill(pid int32) error {
	return syscall.Kill(int(pid), syscall.SIGKILL)
}

// Alive probes existence with the null signal.
func (unixSignaler) Alive(pid int32) bool {
	return syscall.Kill(int(pid), 0) == nil
}
