// Package guard periodically re-applies a target volume and mute state to
// a device, undoing outside interference. One Enforcer guards one target;
// the mixer and microphone guards run independently.
package guard

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/virtmix/virtmix/internal/pactl"
	"github.com/virtmix/virtmix/internal/types"
)

// Controller is the slice of the device-control surface a guard needs.
type Controller interface {
	SetSinkVolume(name, value string) error
	SetSinkMute(name string, muted bool) error
	SetSourceVolume(name, value string) error
	SetSourceMute(name string, muted bool) error
}

// Kind selects which device class a guard enforces.
type Kind string

const (
	// KindSink guards a playback sink (the virtual mixer).
	KindSink Kind = "sink"
	// KindSource guards a capture source (the microphone).
	KindSource Kind = "source"
)

// Config is the target state a guard enforces.
type Config struct {
	Target   string        // device name
	Percent  int           // volume percentage, 0-150
	Interval time.Duration // enforcement period, 1-60s
}

// Enforcer arms and disarms periodic enforcement for one target.
// Enforcement passes for a target are strictly sequential: the immediate
// pass runs before the ticker starts and the ticker loop is one goroutine.
type Enforcer struct {
	kind Kind
	ctl  Controller

	mu    sync.Mutex
	cfg   Config
	armed bool
	stop  chan struct{}
	done  chan struct{}

	passes atomic.Int64
}

// New returns a disarmed Enforcer for the given device class.
func New(kind Kind, ctl Controller) *Enforcer {
	return &Enforcer{kind: kind, ctl: ctl}
}

// Arm performs one enforcement pass immediately, then schedules repeating
// passes at cfg.Interval. Arming while already armed replaces the previous
// schedule instead of stacking a second one.
func (e *Enforcer) Arm(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()

	e.cfg = cfg
	e.armed = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	e.enforce(cfg)

	go e.run(cfg, e.stop, e.done)

	slog.Info("guard armed", "kind", e.kind, "target", cfg.Target,
		"percent", cfg.Percent, "interval", cfg.Interval)
}

// Disarm cancels the repeating schedule. Safe to call when disarmed.
func (e *Enforcer) Disarm() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.armed {
		return
	}
	e.cancelLocked()
	e.armed = false
	slog.Info("guard disarmed", "kind", e.kind, "target", e.cfg.Target)
}

// cancelLocked stops the current schedule, if any. Caller holds e.mu.
func (e *Enforcer) cancelLocked() {
	if e.stop != nil {
		close(e.stop)
		<-e.done
		e.stop = nil
		e.done = nil
	}
}

// run is the repeating enforcement loop for one armed configuration.
func (e *Enforcer) run(cfg Config, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.enforce(cfg)
		}
	}
}

// enforce applies the target state unconditionally: unmute, then set the
// volume. Individual command failures are logged and swallowed; a guard
// must outlive transient control-plane errors.
func (e *Enforcer) enforce(cfg Config) {
	var muteErr, volErr error
	switch e.kind {
	case KindSource:
		muteErr = e.ctl.SetSourceMute(cfg.Target, false)
		volErr = e.ctl.SetSourceVolume(cfg.Target, pactl.Percent(cfg.Percent))
	default:
		muteErr = e.ctl.SetSinkMute(cfg.Target, false)
		volErr = e.ctl.SetSinkVolume(cfg.Target, pactl.Percent(cfg.Percent))
	}

	if muteErr != nil {
		slog.Warn("guard failed to unmute target", "kind", e.kind,
			"target", cfg.Target, "error", muteErr)
	}
	if volErr != nil {
		slog.Warn("guard failed to set target volume", "kind", e.kind,
			"target", cfg.Target, "error", volErr)
	}

	e.passes.Add(1)
}

// Armed reports whether enforcement is active.
func (e *Enforcer) Armed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.armed
}

// Status returns the guard's current status.
func (e *Enforcer) Status() types.GuardStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := types.GuardStatus{Armed: e.armed, Passes: e.passes.Load()}
	if e.armed {
		st.Target = e.cfg.Target
		st.Percent = e.cfg.Percent
		st.Interval = int(e.cfg.Interval / time.Second)
	}
	return st
}
