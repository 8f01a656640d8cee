package server

import (
	"github.com/virtmix/virtmix/internal/types"
)

// resolveCaptureSource returns the device the waveform should capture.
// An empty configured source selects the mixer's monitor, falling back
// to the server default when the mixer is not connected.
func (h *CommandHandler) resolveCaptureSource() string {
	if src := h.cfg.CaptureSource(); src != "" {
		return src
	}
	if h.ctl.SinkExists(types.MixerSinkName) {
		return types.MixerMonitorSource
	}
	if name, ok := h.ctl.DefaultSinkMonitor(); ok {
		return name
	}
	return types.MixerMonitorSource
}

// handleCaptureStart processes a capture/start command.
func (h *CommandHandler) handleCaptureStart(cmd WSCommand, send chan<- any) {
	HandleActionAsync(cmd, send, func() (any, error) {
		if err := h.capture.Start(h.resolveCaptureSource()); err != nil {
			return nil, err
		}
		return h.capture.Status(), nil
	})
}

// handleCaptureStop processes a capture/stop command.
func (h *CommandHandler) handleCaptureStop(cmd WSCommand, send chan<- any) {
	HandleActionAsync(cmd, send, func() (any, error) {
		if err := h.capture.Stop(); err != nil {
			return nil, err
		}
		return h.capture.Status(), nil
	})
}

// handleCaptureSetSource processes a capture/set-source command. When a
// capture session is running it is switched to the new device in place.
func (h *CommandHandler) handleCaptureSetSource(cmd WSCommand, send chan<- any) {
	var req CaptureSourceRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}
	HandleActionAsync(cmd, send, func() (any, error) {
		if err := h.cfg.SetCaptureSource(req.Source); err != nil {
			return nil, err
		}
		if h.capture.Status().Active {
			if err := h.capture.SetSource(h.resolveCaptureSource()); err != nil {
				return nil, err
			}
		}
		return h.capture.Status(), nil
	})
}
