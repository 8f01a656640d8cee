package util

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapError(t *testing.T) {
	base := errors.New("no such file")
	wrapped := WrapError("run script create", base)

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should unwrap to the cause")
	}
	if got := wrapped.Error(); got != "failed to run script create: no such file" {
		t.Errorf("unexpected message: %q", got)
	}

	if WrapError("anything", nil) != nil {
		t.Error("wrapping nil should stay nil")
	}
}

func TestExtractLastError(t *testing.T) {
	stderr := "warning: something minor\n\nConnection failure: Connection refused\n\n"
	if got := ExtractLastError(stderr); got != "Connection failure: Connection refused" {
		t.Errorf("unexpected extraction: %q", got)
	}

	if got := ExtractLastError("   \n\n"); got != "" {
		t.Errorf("expected empty result for blank stderr, got %q", got)
	}
}

func TestExtractLastErrorTruncatesLongLines(t *testing.T) {
	long := strings.Repeat("x", 400)
	got := ExtractLastError(long)
	if len(got) != maxErrorLineLength+3 {
		t.Errorf("expected truncation to %d+ellipsis, got len %d", maxErrorLineLength, len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("expected ellipsis suffix")
	}
}

func TestIsConfigured(t *testing.T) {
	if !IsConfigured("a", "b") {
		t.Error("all non-empty values should be configured")
	}
	if IsConfigured("a", "") {
		t.Error("any empty value should not be configured")
	}
	if !IsConfigured() {
		t.Error("no values should count as configured")
	}
}
