//go:build windows

package kill

import (
	"syscall"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

type windowsSignaler struct{}

// NewSignaler returns the platform signal implementation. Windows has no
// signal escalation; both actions terminate the process outright.
func NewSignaler() Signaler {
	return windowsSignaler{}
}

func (windowsSignaler) Terminate(pid int32) error {
	proc, err := gopsprocess.NewProcess(pid)
	if err != nil {
		return syscall.ESRCH
	}
	return proc.Terminate()
}

func (windowsSignaler) Kill(pid int32) error {
	proc, err := gopsprocess.NewProcess(pid)
	if err != nil {
		return syscall.ESRCH
	}
	return proc.Kill()
}

func (windowsSignaler) Alive(pid int32) bool {
	ok, err := gopsprocess.PidExists(pid)
	return err == nil && ok
}
