//go:build unix

package terminal

import (
	"io"
	"os/exec"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// prepareShell makes the shell survive SIGINT while its foreground job
// receives the default action.
func prepareShell(stdin io.Writer) error {
	_, err := io.WriteString(stdin, "trap 'true' INT\n")
	return err
}

func interruptGroup(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
}

func killGroup(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
