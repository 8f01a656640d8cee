// Package pactl wraps the PulseAudio command-line control surface.
// Every call is synchronous, bounded by a timeout, and fallible; callers
// treat failures as transient and never crash on them.
package pactl

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/virtmix/virtmix/internal/types"
)

// DefaultSource is the PulseAudio alias for the default input device.
const DefaultSource = "@DEFAULT_SOURCE@"

// Runner executes a control command and returns its standard output.
// Injected so the client can be exercised against fakes in tests.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client issues pactl commands with a bounded timeout per call.
type Client struct {
	bin     string
	run     Runner
	timeout time.Duration
}

// New returns a Client that invokes the pactl binary at bin. An empty
// bin falls back to PATH lookup.
func New(bin string) *Client {
	c := NewWithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).Output()
	})
	if bin != "" {
		c.bin = bin
	}
	return c
}

// NewWithRunner returns a Client using the given command runner.
func NewWithRunner(run Runner) *Client {
	return &Client{
		bin:     "pactl",
		run:     run,
		timeout: types.ControlTimeout,
	}
}

func (c *Client) output(args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.run(ctx, c.bin, args...)
}

func (c *Client) exec(args ...string) error {
	_, err := c.output(args...)
	return err
}

// ListSources returns all source names, in server order. A failed or
// malformed listing yields an empty slice, never an error: "no devices"
// is not an exceptional condition for the UI.
func (c *Client) ListSources() []string {
	out, err := c.output("list", "sources", "short")
	if err != nil {
		slog.Warn("failed to list sources", "error", err)
		return nil
	}
	return parseShortList(string(out))
}

// ListMicrophones returns source names that are real inputs, filtering
// monitor streams out.
func (c *Client) ListMicrophones() []string {
	var mics []string
	for _, name := range c.ListSources() {
		if !strings.HasSuffix(name, ".monitor") {
			mics = append(mics, name)
		}
	}
	return mics
}

// DefaultSinkMonitor returns the monitor source of the default sink, or
// false when no default sink exists.
func (c *Client) DefaultSinkMonitor() (string, bool) {
	out, err := c.output("get-default-sink")
	if err != nil {
		return "", false
	}
	sink := strings.TrimSpace(string(out))
	if sink == "" {
		return "", false
	}
	return sink + ".monitor", true
}

// SinkExists reports whether a sink with the given name is active.
func (c *Client) SinkExists(name string) bool {
	out, err := c.output("list", "sinks", "short")
	if err != nil {
		slog.Warn("failed to list sinks", "error", err)
		return false
	}
	return strings.Contains(string(out), name)
}

// SetSinkVolume applies a volume value to a sink. The value is either an
// absolute percentage ("75%") or a relative nudge ("+20%", "-20%").
func (c *Client) SetSinkVolume(name, value string) error {
	return c.exec("set-sink-volume", name, value)
}

// SetSinkMute mutes or unmutes a sink.
func (c *Client) SetSinkMute(name string, muted bool) error {
	return c.exec("set-sink-mute", name, muteArg(muted))
}

// SetSourceVolume applies a volume value to a source.
func (c *Client) SetSourceVolume(name, value string) error {
	return c.exec("set-source-volume", name, value)
}

// SetSourceMute mutes or unmutes a source.
func (c *Client) SetSourceMute(name string, muted bool) error {
	return c.exec("set-source-mute", name, muteArg(muted))
}

// SinkMuted scrapes the mute flag for the named sink from the detailed
// sink listing. The second return value reports whether the flag could be
// determined at all; the free-text output format is not guaranteed across
// tool versions, so an unparseable listing is "unknown", not "unmuted".
func (c *Client) SinkMuted(name string) (muted, known bool) {
	out, err := c.output("list", "sinks")
	if err != nil {
		slog.Warn("failed to query sink mute state", "sink", name, "error", err)
		return false, false
	}
	return parseSinkMuted(string(out), name)
}

// Percent formats an absolute volume percentage for pactl.
func Percent(p int) string {
	return fmt.Sprintf("%d%%", p)
}

// Delta formats a relative volume nudge for pactl.
func Delta(step int, up bool) string {
	if up {
		return fmt.Sprintf("+%d%%", step)
	}
	return fmt.Sprintf("-%d%%", step)
}

func muteArg(muted bool) string {
	if muted {
		return "1"
	}
	return "0"
}

// parseShortList extracts device names from tab-separated short-format
// output (index \t name \t ...).
func parseShortList(output string) []string {
	var names []string
	for line := range strings.Lines(output) {
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) >= 2 && parts[1] != "" {
			names = append(names, parts[1])
		}
	}
	return names
}

// parseSinkMuted locates the named sink's block in the detailed listing and
// scans it for the mute flag. The block ends at the next device header.
func parseSinkMuted(output, name string) (muted, known bool) {
	inBlock := false
	for line := range strings.Lines(output) {
		switch {
		case strings.Contains(line, name):
			inBlock = true
		case inBlock && strings.Contains(line, "Mute:"):
			return strings.Contains(strings.ToLower(line), "yes"), true
		case inBlock && (strings.Contains(line, "Sink #") || strings.Contains(line, "Source #")):
			return false, false
		}
	}
	return false, false
}
