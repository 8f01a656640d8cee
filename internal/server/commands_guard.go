package server

import (
	"fmt"
	"time"

	"github.com/virtmix/virtmix/internal/events"
	"github.com/virtmix/virtmix/internal/guard"
	"github.com/virtmix/virtmix/internal/pactl"
	"github.com/virtmix/virtmix/internal/types"
)

// defaultGuardTarget returns the device a guard enforces when the
// request leaves the target empty.
func defaultGuardTarget(name string) string {
	if name == "mic" {
		return pactl.DefaultSource
	}
	return types.MixerSinkName
}

// handleGuardArm processes guard/mixer/arm and guard/mic/arm. The
// immediate enforcement pass issues device-control calls, so arming
// runs off the reader goroutine.
func (h *CommandHandler) handleGuardArm(cmd WSCommand, send chan<- any, name string, enf *guard.Enforcer) {
	var req GuardArmRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		// Persist the settings so the next arm starts from them.
		var err error
		if name == "mic" {
			err = h.cfg.SetMicGuard(req.Percent, req.IntervalSec)
		} else {
			err = h.cfg.SetMixerGuard(req.Percent, req.IntervalSec)
		}
		if err != nil {
			return nil, err
		}

		target := req.Target
		if target == "" {
			target = defaultGuardTarget(name)
		}

		enf.Arm(guard.Config{
			Target:   target,
			Percent:  req.Percent,
			Interval: time.Duration(req.IntervalSec) * time.Second,
		})
		h.logEvent(events.EventGuardArmed,
			fmt.Sprintf("%s guard armed on %s at %d%% every %ds", name, target, req.Percent, req.IntervalSec))
		return enf.Status(), nil
	})
}

// handleGuardDisarm processes guard/mixer/disarm and guard/mic/disarm.
func (h *CommandHandler) handleGuardDisarm(cmd WSCommand, send chan<- any, enf *guard.Enforcer) {
	wasArmed := enf.Armed()
	enf.Disarm()
	if wasArmed {
		h.logEvent(events.EventGuardDisarmed, "guard disarmed")
	}
	SendSuccess(send, cmd.Type, enf.Status())
}
