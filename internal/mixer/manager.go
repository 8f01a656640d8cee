// Package mixer provides the virtual mixer connection state machine.
// It creates and destroys the virtual device through the lifecycle
// script, supervises the monitor process, and publishes state changes
// and monitor output to the UI layer through a buffered channel.
package mixer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/virtmix/virtmix/internal/config"
	"github.com/virtmix/virtmix/internal/events"
	"github.com/virtmix/virtmix/internal/notify"
	"github.com/virtmix/virtmix/internal/pactl"
	"github.com/virtmix/virtmix/internal/proc"
	"github.com/virtmix/virtmix/internal/types"
)

// Sentinel errors for mixer operations.
var (
	ErrStateConflict = errors.New("operation not allowed in current connection state")
	ErrMixerAbsent   = errors.New("virtual mixer sink not found")
)

// updateBacklog bounds the UI event channel. Events beyond it are dropped
// rather than blocking the background workers.
const updateBacklog = 64

// Manager owns the connection state machine for the virtual mixer.
// All mutable connection fields are guarded by one mutex; background
// workers consult the shutdown flag before every state-changing step.
type Manager struct {
	cfg      *config.Config
	ctl      *pactl.Client
	sup      *proc.Supervisor
	eventLog *events.Logger

	mu         sync.Mutex
	state      types.ConnState
	lastError  string
	shutdown   bool
	monitor    *proc.Managed
	workerDone chan struct{}
	muted      bool
	muteKnown  bool

	updates chan events.MixerEvent
}

// New creates a disconnected Manager.
func New(cfg *config.Config, ctl *pactl.Client, sup *proc.Supervisor, eventLog *events.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		ctl:      ctl,
		sup:      sup,
		eventLog: eventLog,
		state:    types.StateDisconnected,
		updates:  make(chan events.MixerEvent, updateBacklog),
	}
}

// Updates returns the channel carrying state transitions and monitor
// output for the UI layer. Events are dropped when the channel is full.
func (m *Manager) Updates() <-chan events.MixerEvent {
	return m.updates
}

// State returns the current connection state.
func (m *Manager) State() types.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the current mixer status.
func (m *Manager) Status() types.MixerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.MixerStatus{
		State:     m.state,
		Muted:     m.muted,
		MuteKnown: m.muteKnown,
		LastError: m.lastError,
	}
}

// Connect starts the asynchronous connect flow: create the virtual
// device, spawn the monitor process, transition to Connected. Returns
// ErrStateConflict when a connection is already established or a
// transition is in flight.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.state != types.StateDisconnected && m.state != types.StateError {
		m.mu.Unlock()
		return ErrStateConflict
	}
	m.state = types.StateConnecting
	m.shutdown = false
	m.lastError = ""
	m.mu.Unlock()

	go m.runConnect()
	return nil
}

// Disconnect starts the asynchronous disconnect flow: terminate the
// monitor process group, join the drain worker, delete the virtual
// device. Returns ErrStateConflict while a transition is in flight.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.state != types.StateConnected && m.state != types.StateError {
		m.mu.Unlock()
		return ErrStateConflict
	}
	m.state = types.StateDisconnecting
	m.shutdown = true
	monitor := m.monitor
	m.monitor = nil
	workerDone := m.workerDone
	m.workerDone = nil
	m.mu.Unlock()

	go m.runDisconnect(monitor, workerDone)
	return nil
}

// Shutdown tears down any active connection synchronously. Used at
// process exit; safe to call in any state.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.state == types.StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	monitor := m.monitor
	m.monitor = nil
	workerDone := m.workerDone
	m.workerDone = nil
	// A connect still in flight observes the shutdown flag and cleans up
	// after itself; deleting here as well would race it.
	hadDevice := m.state != types.StateConnecting
	m.state = types.StateDisconnecting
	m.mu.Unlock()

	if monitor != nil {
		if err := m.sup.Terminate(monitor); err != nil {
			slog.Warn("failed to terminate monitor process", "error", err)
		}
	}
	if workerDone != nil {
		<-workerDone
	}
	if hadDevice {
		if err := NewScript(m.cfg.ScriptPath()).Delete(); err != nil {
			slog.Warn("failed to delete virtual device", "error", err)
		}
	}

	m.mu.Lock()
	m.state = types.StateDisconnected
	m.mu.Unlock()
}

// runConnect performs the connect flow off the caller's goroutine.
func (m *Manager) runConnect() {
	script := NewScript(m.cfg.ScriptPath())

	if err := script.Create(); err != nil {
		slog.Error("failed to create virtual device", "error", err)
		m.transition(types.StateDisconnected, err.Error())
		m.publish(events.EventError, "failed to create virtual device", err)
		return
	}

	// A disconnect may have raced the create; honor it before going further.
	if m.shutdownRequested() {
		if err := script.Delete(); err != nil {
			slog.Warn("failed to delete virtual device after aborted connect", "error", err)
		}
		m.transition(types.StateDisconnected, "")
		return
	}

	cmd := script.MonitorCmd()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		m.failConnect(script, fmt.Errorf("monitor stdout pipe: %w", err))
		return
	}

	monitor, err := m.sup.Spawn(cmd)
	if err != nil {
		m.failConnect(script, fmt.Errorf("spawn monitor: %w", err))
		return
	}

	workerDone := make(chan struct{})

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		if err := m.sup.Terminate(monitor); err != nil {
			slog.Warn("failed to terminate monitor process", "error", err)
		}
		go func() {
			_ = monitor.Wait() //nolint:errcheck // Reaping only
			close(workerDone)
		}()
		if err := script.Delete(); err != nil {
			slog.Warn("failed to delete virtual device after aborted connect", "error", err)
		}
		m.transition(types.StateDisconnected, "")
		return
	}
	m.monitor = monitor
	m.workerDone = workerDone
	m.state = types.StateConnected
	m.mu.Unlock()

	slog.Info("virtual mixer connected", "sink", types.MixerSinkName, "pid", monitor.Pid())
	m.publish(events.EventConnected, "virtual mixer connected", nil)
	m.ResyncMute()

	go m.drainMonitor(monitor, stdout, workerDone)
}

// failConnect cleans up a half-built connection and reports the error.
func (m *Manager) failConnect(script *Script, err error) {
	slog.Error("connect failed", "error", err)
	if derr := script.Delete(); derr != nil {
		slog.Warn("failed to delete virtual device after failed connect", "error", derr)
	}
	m.transition(types.StateDisconnected, err.Error())
	m.publish(events.EventError, "connect failed", err)
}

// runDisconnect performs the disconnect flow off the caller's goroutine.
func (m *Manager) runDisconnect(monitor *proc.Managed, workerDone chan struct{}) {
	if monitor != nil {
		if err := m.sup.Terminate(monitor); err != nil {
			slog.Warn("failed to terminate monitor process", "error", err)
		}
	}
	if workerDone != nil {
		<-workerDone
	}

	if err := NewScript(m.cfg.ScriptPath()).Delete(); err != nil {
		slog.Error("failed to delete virtual device", "error", err)
		m.transition(types.StateError, err.Error())
		m.publish(events.EventError, "failed to delete virtual device", err)
		return
	}

	m.mu.Lock()
	m.state = types.StateDisconnected
	m.muteKnown = false
	m.mu.Unlock()

	slog.Info("virtual mixer disconnected", "sink", types.MixerSinkName)
	m.publish(events.EventDisconnected, "virtual mixer disconnected", nil)
}

// drainMonitor relays monitor output line by line until the process
// exits or a shutdown is requested, then classifies the exit.
func (m *Manager) drainMonitor(monitor *proc.Managed, r io.Reader, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if m.shutdownRequested() {
			break
		}
		line := scanner.Text()
		slog.Debug("monitor output", "line", line)
		m.publish(events.EventMonitorOutput, line, nil)
	}

	waitErr := monitor.Wait()

	m.mu.Lock()
	if m.shutdown || m.state != types.StateConnected {
		// Expected teardown; the disconnect flow owns the transition.
		m.mu.Unlock()
		return
	}
	m.state = types.StateError
	m.lastError = "monitor stopped unexpectedly"
	m.monitor = nil
	m.workerDone = nil
	webhookURL := m.cfg.WebhookURL()
	m.mu.Unlock()

	errMsg := ""
	if waitErr != nil {
		errMsg = waitErr.Error()
	}
	slog.Error("monitor stopped unexpectedly", "sink", types.MixerSinkName, "error", waitErr)
	m.publish(events.EventError, "monitor stopped unexpectedly", waitErr)
	notify.Dispatch("webhook", func() error {
		return notify.SendMonitorStoppedWebhook(webhookURL, types.MixerSinkName, errMsg)
	})
}

// --- Direct device controls ---

// NudgeVolume adjusts the mixer sink volume by the configured step.
func (m *Manager) NudgeVolume(up bool) error {
	if !m.ctl.SinkExists(types.MixerSinkName) {
		return ErrMixerAbsent
	}
	return m.ctl.SetSinkVolume(types.MixerSinkName, pactl.Delta(m.cfg.VolumeStep(), up))
}

// SetVolume sets the mixer sink volume to an absolute percentage.
func (m *Manager) SetVolume(percent int) error {
	if !m.ctl.SinkExists(types.MixerSinkName) {
		return ErrMixerAbsent
	}
	return m.ctl.SetSinkVolume(types.MixerSinkName, pactl.Percent(percent))
}

// SetMuted sets the mixer sink mute state and resyncs the observed value.
func (m *Manager) SetMuted(muted bool) error {
	if !m.ctl.SinkExists(types.MixerSinkName) {
		return ErrMixerAbsent
	}
	if err := m.ctl.SetSinkMute(types.MixerSinkName, muted); err != nil {
		return err
	}
	m.ResyncMute()
	return nil
}

// ToggleMute flips the last observed mute state.
func (m *Manager) ToggleMute() error {
	m.mu.Lock()
	muted := m.muted
	m.mu.Unlock()
	return m.SetMuted(!muted)
}

// ResyncMute queries the sink's actual mute state and stores it. An
// unparseable answer is recorded as unknown, not as unmuted.
func (m *Manager) ResyncMute() {
	muted, known := m.ctl.SinkMuted(types.MixerSinkName)
	m.mu.Lock()
	m.muted = muted
	m.muteKnown = known
	m.mu.Unlock()
}

// --- Internal helpers ---

// transition sets the state and last error under the mutex.
func (m *Manager) transition(state types.ConnState, lastError string) {
	m.mu.Lock()
	m.state = state
	m.lastError = lastError
	m.mu.Unlock()
}

// shutdownRequested reports whether a disconnect or shutdown is pending.
func (m *Manager) shutdownRequested() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// publish appends the event to the log file and hands it to the UI
// channel without blocking.
func (m *Manager) publish(event events.EventType, message string, cause error) {
	ev := events.MixerEvent{Event: event, Message: message}
	if cause != nil {
		ev.Error = cause.Error()
	}

	if m.eventLog != nil {
		if err := m.eventLog.Log(&ev); err != nil {
			slog.Warn("failed to write event log", "error", err)
		}
	}

	select {
	case m.updates <- ev:
	default:
		slog.Debug("dropping mixer event, update channel full", "event", event)
	}
}
