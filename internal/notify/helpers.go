package notify

import "log/slog"

// logNotifyResult logs the result of a notification attempt.
func logNotifyResult(fn func() error, notifyType string) {
	err := fn()
	if err != nil {
		slog.Error("notification failed", "type", notifyType, "error", err)
	} else {
		slog.Info("notification sent", "type", notifyType)
	}
}

// Dispatch runs a notification attempt in the background and logs its result.
func Dispatch(notifyType string, fn func() error) {
	go logNotifyResult(fn, notifyType)
}
