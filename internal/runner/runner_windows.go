//go:build windows

package runner

import (
	"fmt"
	"time"
)

// Start starts the child process.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := r.newCmd()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting process: %w", err)
	}
	r.cmd = cmd
	r.done = make(chan struct{})
	wait(cmd, r.done)
	return nil
}

// Stop kills the child process. Windows has no SIGTERM for console
// processes, so there is no graceful phase.
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

	_ = r.cmd.Process.Kill()
	select {
	case <-r.done:
	case <-time.After(stopTimeout):
		<-r.done
	}
	return nil
}
