package util

import (
	"io"
	"log/slog"
)

// SafeCloseFunc returns a function that closes c and logs a failure
// instead of returning it. Meant for defer sites where the close error
// is not actionable.
func SafeCloseFunc(c io.Closer, name string) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close resource", "resource", name, "error", err)
		}
	}
}

// IsConfigured reports whether all given values are non-empty.
func IsConfigured(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}
