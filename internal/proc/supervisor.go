// Package proc manages external processes in their own process groups so
// that a tool and any children it spawns can be torn down as a unit.
package proc

import (
	"errors"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/virtmix/virtmix/internal/types"
)

// Managed is a running external process plus its process-group id.
// Ownership is exclusive to the component that spawned it; the owner must
// call Wait (directly or through a drain goroutine) so that Terminate can
// observe process exit.
type Managed struct {
	Cmd  *exec.Cmd
	pgid int

	waitOnce sync.Once
	waitErr  error
	done     chan struct{}

	mu         sync.Mutex
	terminated bool
}

// Supervisor spawns and terminates process groups.
type Supervisor struct {
	grace time.Duration
}

// NewSupervisor returns a Supervisor with the default termination grace period.
func NewSupervisor() *Supervisor {
	return &Supervisor{grace: types.TerminateGrace}
}

// Spawn starts cmd in a new process group and returns its handle.
func (s *Supervisor) Spawn(cmd *exec.Cmd) (*Managed, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err != nil {
		// Fall back to the pid; Setpgid makes the child its own group leader.
		pgid = cmd.Process.Pid
	}

	return &Managed{
		Cmd:  cmd,
		pgid: pgid,
		done: make(chan struct{}),
	}, nil
}

// Wait reaps the process exactly once and returns its exit error.
// Safe to call from multiple goroutines.
func (m *Managed) Wait() error {
	m.waitOnce.Do(func() {
		m.waitErr = m.Cmd.Wait()
		close(m.done)
	})
	<-m.done
	return m.waitErr
}

// Done is closed once the process has been reaped.
func (m *Managed) Done() <-chan struct{} {
	return m.done
}

// Pid returns the process id of the group leader.
func (m *Managed) Pid() int {
	return m.Cmd.Process.Pid
}

// Terminate signals the whole process group: interrupt first, then escalate
// to kill after the grace period. A group that is already gone counts as
// terminated. Safe to call more than once.
func (s *Supervisor) Terminate(m *Managed) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return nil
	}
	m.terminated = true
	m.mu.Unlock()

	if err := signalGroup(m.pgid, unix.SIGINT); err != nil {
		return err
	}

	select {
	case <-m.done:
		return nil
	case <-time.After(s.grace):
	}

	slog.Warn("process group did not stop after interrupt, killing",
		"pgid", m.pgid)
	if err := signalGroup(m.pgid, unix.SIGKILL); err != nil {
		return err
	}

	select {
	case <-m.done:
	case <-time.After(s.grace):
		slog.Warn("process group still not reaped after kill", "pgid", m.pgid)
	}
	return nil
}

// signalGroup sends sig to the process group, treating an already-dead
// group as success.
func signalGroup(pgid int, sig unix.Signal) error {
	err := unix.Kill(-pgid, sig)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
