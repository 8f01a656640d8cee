package server

import (
	"log/slog"
)

// --- Source enumeration ---

// handleSourcesList processes a sources/list command. Enumeration runs
// external commands, so it goes through the async path.
func (h *CommandHandler) handleSourcesList(cmd WSCommand, send chan<- any) {
	HandleActionAsync(cmd, send, func() (any, error) {
		return map[string]any{
			"sources":     h.ctl.ListSources(),
			"microphones": h.ctl.ListMicrophones(),
		}, nil
	})
}

// --- Mixer settings ---

// handleVolumeStep processes a settings/volume-step command.
func (h *CommandHandler) handleVolumeStep(cmd WSCommand, send chan<- any) {
	HandleCommand(h, cmd, send, func(req *VolumeStepRequest) error {
		slog.Info("settings/volume-step: updating step", "step", req.Step)
		return h.cfg.SetVolumeStep(req.Step)
	})
}

// handleScriptPath processes a settings/script-path command.
func (h *CommandHandler) handleScriptPath(cmd WSCommand, send chan<- any) {
	HandleCommand(h, cmd, send, func(req *ScriptPathRequest) error {
		slog.Info("settings/script-path: updating path", "path", req.Path)
		return h.cfg.SetScriptPath(req.Path)
	})
}

// --- Config snapshot ---

// handleConfigGet processes a config/get command.
func (h *CommandHandler) handleConfigGet(send chan<- any) {
	snap := h.cfg.Snapshot()
	SendSuccess(send, "config/get", map[string]any{
		"panel_name":     snap.PanelName,
		"color_light":    snap.PanelColorLight,
		"color_dark":     snap.PanelColorDark,
		"volume_step":    snap.VolumeStep,
		"script_path":    snap.ScriptPath,
		"capture_source": snap.CaptureSource,
		"mixer_guard":    snap.MixerGuard,
		"mic_guard":      snap.MicGuard,
		"webhook_set":    snap.HasWebhook(),
	})
}
