// Package runner starts the emitted entry point as a child Node.js process
// and relays its exit code.
package runner

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// stopTimeout bounds how long Stop waits before force-killing the child.
const stopTimeout = 5 * time.Second

// Runner manages a child Node.js process.
type Runner struct {
	command string
	args    []string
	workDir string

	// Env holds KEY=VALUE entries appended to the parent environment.
	Env []string
	// DisableStdin leaves the child without standard input.
	DisableStdin bool
	Stdout       io.Writer
	Stderr       io.Writer

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New creates a new process runner.
func New(command string, args []string, workDir string) *Runner {
	return &Runner{
		command: command,
		args:    args,
		workDir: workDir,
	}
}

func (r *Runner) newCmd() *exec.Cmd {
	cmd := exec.Command(r.command, r.args...)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	cmd.Stdout = orDefault(r.Stdout, os.Stdout)
	cmd.Stderr = orDefault(r.Stderr, os.Stderr)
	if !r.DisableStdin {
		cmd.Stdin = os.Stdin
	}
	return cmd
}

func orDefault(w io.Writer, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// wait reaps cmd in the background and closes done once it exits.
func wait(cmd *exec.Cmd, done chan struct{}) {
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
}

// Run starts the child and blocks until it exits or ctx is done, in which
// case the child is stopped gracefully. It returns the child's exit code.
func (r *Runner) Run(ctx context.Context) (int, error) {
	if err := r.Start(); err != nil {
		return -1, err
	}
	select {
	case <-r.doneChan():
	case <-ctx.Done():
		if err := r.Stop(); err != nil {
			return -1, err
		}
	}
	return r.ExitCode(), nil
}

// Wait blocks until the child process exits.
func (r *Runner) Wait() {
	if done := r.doneChan(); done != nil {
		<-done
	}
}

func (r *Runner) doneChan() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Running returns true if the child process is running.
func (r *Runner) Running() bool {
	done := r.doneChan()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit code of the last child, or -1 while it is
// running or before it was started. A child ended by a signal reports 1.
func (r *Runner) ExitCode() int {
	r.mu.Lock()
	cmd, done := r.cmd, r.done
	r.mu.Unlock()
	if cmd == nil || done == nil {
		return -1
	}
	select {
	case <-done:
	default:
		return -1
	}
	if cmd.ProcessState == nil {
		return -1
	}
	if code := cmd.ProcessState.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
