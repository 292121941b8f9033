//go:build !windows

package runner

import (
	"fmt"
	"syscall"
	"time"
)

// Start starts the child process.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := r.newCmd()
	// Own process group so Stop reaches every descendant.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting process: %w", err)
	}
	r.cmd = cmd
	r.done = make(chan struct{})
	wait(cmd, r.done)
	return nil
}

// Stop sends SIGTERM to the child's process group and force-kills it after
// a timeout.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	default:
	}

	pgid, err := syscall.Getpgid(r.cmd.Process.Pid)
	if err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGTERM)
	} else {
		_ = r.cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-r.done:
		return nil
	case <-time.After(stopTimeout):
		if err == nil {
			_ = syscall.Kill(-pgid, syscall.SIGKILL)
		} else {
			_ = r.cmd.Process.Kill()
		}
		<-r.done
		return nil
	}
}
