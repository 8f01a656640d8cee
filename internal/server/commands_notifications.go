package server

import (
	"log/slog"

	"github.com/virtmix/virtmix/internal/events"
	"github.com/virtmix/virtmix/internal/notify"
	"github.com/virtmix/virtmix/internal/types"
)

// handleWebhookUpdate processes a notifications/webhook/update command.
func (h *CommandHandler) handleWebhookUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(h, cmd, send, func(req *WebhookUpdateRequest) error {
		return h.cfg.SetWebhookURL(req.URL)
	})
}

// handleWebhookGet processes a notifications/webhook/get command.
func (h *CommandHandler) handleWebhookGet(send chan<- any) {
	SendSuccess(send, "notifications/webhook/get", map[string]string{
		"url": h.cfg.WebhookURL(),
	})
}

// handleWebhookTest executes a webhook test and sends the result to the client.
func (h *CommandHandler) handleWebhookTest(send chan<- any) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in webhook test handler", "panic", r)
			}
		}()

		result := types.WSTestResult{
			Type:     "test_result",
			TestType: "webhook",
			Success:  true,
		}

		if err := notify.SendTestWebhook(h.cfg.WebhookURL()); err != nil {
			slog.Error("webhook test failed", "error", err)
			result.Success = false
			result.Error = err.Error()
		} else {
			slog.Info("webhook test succeeded")
		}

		// Non-blocking: the client may be gone and nobody draining the channel
		select {
		case send <- result:
		default:
			slog.Warn("failed to send webhook test response: client gone or channel full")
		}
	}()
}

// WSEventLogResult is the response for events/view.
type WSEventLogResult struct {
	Type    string              `json:"type"` // "event_log_result"
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Path    string              `json:"path,omitempty"`
	Entries []events.MixerEvent `json:"entries,omitempty"`
}

// handleViewEventLog reads and returns the mixer event log contents.
func (h *CommandHandler) handleViewEventLog(send chan<- any) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in event log handler", "panic", r)
			}
		}()

		result := WSEventLogResult{
			Type:    "event_log_result",
			Success: true,
		}

		entries, err := events.ReadLast(h.eventLog.Path(), MaxLogEntries)
		if err != nil {
			result.Success = false
			result.Error = err.Error()
		} else {
			result.Entries = entries
			result.Path = h.eventLog.Path()
		}

		select {
		case send <- result:
		default:
			slog.Warn("failed to send event log response: client gone or channel full")
		}
	}()
}
