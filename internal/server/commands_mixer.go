package server

import (
	"log/slog"
)

// --- Connection handlers ---

// handleConnect processes a mixer/connect command. The connect flow
// itself runs on a background worker inside the manager.
func (h *CommandHandler) handleConnect(cmd WSCommand, send chan<- any) {
	slog.Info("mixer/connect requested")
	if err := h.mixer.Connect(); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// handleDisconnect processes a mixer/disconnect command.
func (h *CommandHandler) handleDisconnect(cmd WSCommand, send chan<- any) {
	slog.Info("mixer/disconnect requested")
	if err := h.mixer.Disconnect(); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// --- Volume handlers ---

// handleVolumeNudge processes mixer/volume/up and mixer/volume/down.
func (h *CommandHandler) handleVolumeNudge(cmd WSCommand, send chan<- any, up bool) {
	if err := h.mixer.NudgeVolume(up); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// handleVolumeSet processes a mixer/volume/set command.
func (h *CommandHandler) handleVolumeSet(cmd WSCommand, send chan<- any) {
	HandleCommand(h, cmd, send, func(req *VolumeSetRequest) error {
		return h.mixer.SetVolume(req.Percent)
	})
}

// --- Mute handlers ---

// handleMuteToggle processes a mixer/mute/toggle command.
func (h *CommandHandler) handleMuteToggle(cmd WSCommand, send chan<- any) {
	if err := h.mixer.ToggleMute(); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

// handleMuteSet processes a mixer/mute/set command.
func (h *CommandHandler) handleMuteSet(cmd WSCommand, send chan<- any) {
	HandleCommand(h, cmd, send, func(req *MuteSetRequest) error {
		return h.mixer.SetMuted(req.Muted)
	})
}

// handleMuteResync processes a mixer/mute/resync command.
func (h *CommandHandler) handleMuteResync(cmd WSCommand, send chan<- any) {
	h.mixer.ResyncMute()
	SendSuccess(send, cmd.Type, h.mixer.Status())
}
