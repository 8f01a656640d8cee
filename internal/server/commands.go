package server

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/virtmix/virtmix/internal/audio"
	"github.com/virtmix/virtmix/internal/config"
	"github.com/virtmix/virtmix/internal/events"
	"github.com/virtmix/virtmix/internal/guard"
	"github.com/virtmix/virtmix/internal/mixer"
	"github.com/virtmix/virtmix/internal/pactl"
)

// MaxLogEntries is the maximum number of event log entries to return.
const MaxLogEntries = 100

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg        *config.Config
	mixer      *mixer.Manager
	capture    *audio.Scheduler
	ctl        *pactl.Client
	mixerGuard *guard.Enforcer
	micGuard   *guard.Enforcer
	eventLog   *events.Logger
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(cfg *config.Config, mgr *mixer.Manager, capture *audio.Scheduler,
	ctl *pactl.Client, mixerGuard, micGuard *guard.Enforcer, eventLog *events.Logger) *CommandHandler {
	return &CommandHandler{
		cfg:        cfg,
		mixer:      mgr,
		capture:    capture,
		ctl:        ctl,
		mixerGuard: mixerGuard,
		micGuard:   micGuard,
		eventLog:   eventLog,
	}
}

// logEvent appends a lifecycle event to the mixer event log.
func (h *CommandHandler) logEvent(event events.EventType, message string) {
	ev := events.MixerEvent{Event: event, Message: message}
	if err := h.eventLog.Log(&ev); err != nil {
		slog.Warn("failed to write event log", "error", err)
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "mixer/connect", "guard/mic/arm")
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	// Parse command into namespace and action
	parts := strings.SplitN(cmd.Type, "/", 3)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	subaction := ""
	if len(parts) > 2 {
		subaction = parts[2]
	}

	switch namespace {
	case "mixer":
		h.handleMixer(action, subaction, cmd, send)
	case "capture":
		h.handleCapture(action, cmd, send)
	case "guard":
		h.handleGuard(action, subaction, cmd, send)
	case "sources":
		h.handleSources(action, cmd, send)
	case "settings":
		h.handleSettings(action, cmd, send)
	case "notifications":
		h.handleNotifications(action, subaction, cmd, send)
	case "events":
		h.handleEvents(action, send)
	case "config":
		h.handleConfig(action, send)
	case "status":
		h.handleStatus(action, send)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// --- Namespace routers ---

// handleMixer routes mixer/* commands
func (h *CommandHandler) handleMixer(action, subaction string, cmd WSCommand, send chan<- any) {
	switch action {
	case "connect":
		h.handleConnect(cmd, send)
	case "disconnect":
		h.handleDisconnect(cmd, send)
	case "volume":
		switch subaction {
		case "up":
			h.handleVolumeNudge(cmd, send, true)
		case "down":
			h.handleVolumeNudge(cmd, send, false)
		case "set":
			h.handleVolumeSet(cmd, send)
		default:
			slog.Warn("unknown mixer volume action", "subaction", subaction)
		}
	case "mute":
		switch subaction {
		case "toggle":
			h.handleMuteToggle(cmd, send)
		case "set":
			h.handleMuteSet(cmd, send)
		case "resync":
			h.handleMuteResync(cmd, send)
		default:
			slog.Warn("unknown mixer mute action", "subaction", subaction)
		}
	default:
		slog.Warn("unknown mixer action", "action", action)
	}
}

// handleCapture routes capture/* commands
func (h *CommandHandler) handleCapture(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "start":
		h.handleCaptureStart(cmd, send)
	case "stop":
		h.handleCaptureStop(cmd, send)
	case "set-source":
		h.handleCaptureSetSource(cmd, send)
	default:
		slog.Warn("unknown capture action", "action", action)
	}
}

// handleGuard routes guard/*/* commands
func (h *CommandHandler) handleGuard(action, subaction string, cmd WSCommand, send chan<- any) {
	var target *guard.Enforcer
	switch action {
	case "mixer":
		target = h.mixerGuard
	case "mic":
		target = h.micGuard
	default:
		slog.Warn("unknown guard target", "action", action)
		return
	}

	switch subaction {
	case "arm":
		h.handleGuardArm(cmd, send, action, target)
	case "disarm":
		h.handleGuardDisarm(cmd, send, target)
	default:
		slog.Warn("unknown guard action", "subaction", subaction)
	}
}

// handleSources routes sources/* commands
func (h *CommandHandler) handleSources(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "list":
		h.handleSourcesList(cmd, send)
	default:
		slog.Warn("unknown sources action", "action", action)
	}
}

// handleSettings routes settings/* commands
func (h *CommandHandler) handleSettings(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "volume-step":
		h.handleVolumeStep(cmd, send)
	case "script-path":
		h.handleScriptPath(cmd, send)
	default:
		slog.Warn("unknown settings action", "action", action)
	}
}

// handleNotifications routes notifications/*/* commands
func (h *CommandHandler) handleNotifications(action, subaction string, cmd WSCommand, send chan<- any) {
	switch action {
	case "webhook":
		switch subaction {
		case "update":
			h.handleWebhookUpdate(cmd, send)
		case "test":
			h.handleWebhookTest(send)
		case "get":
			h.handleWebhookGet(send)
		default:
			slog.Warn("unknown webhook action", "subaction", subaction)
		}
	default:
		slog.Warn("unknown notifications action", "action", action)
	}
}

// handleEvents routes events/* commands
func (h *CommandHandler) handleEvents(action string, send chan<- any) {
	switch action {
	case "view":
		h.handleViewEventLog(send)
	default:
		slog.Warn("unknown events action", "action", action)
	}
}

// handleConfig routes config/* commands
func (h *CommandHandler) handleConfig(action string, send chan<- any) {
	switch action {
	case "get":
		h.handleConfigGet(send)
	default:
		slog.Warn("unknown config action", "action", action)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string, send chan<- any) {
	switch action {
	case "get":
		// Status is sent automatically, but explicit get triggers immediate update
		slog.Debug("status/get received, status update will be triggered")
	default:
		slog.Warn("unknown status action", "action", action)
	}
}
