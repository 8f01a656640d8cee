package mixer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/virtmix/virtmix/internal/types"
	"github.com/virtmix/virtmix/internal/util"
)

// Script drives the virtual-device lifecycle shell script. The script
// accepts a single verb: create and delete are one-shot and signal
// failure by a non-zero exit; monitor is long-running and prints one
// line per connection event on stdout.
type Script struct {
	path    string
	timeout time.Duration
}

// NewScript returns a Script for the given path with the default
// one-shot command timeout.
func NewScript(path string) *Script {
	return &Script{path: path, timeout: types.ScriptTimeout}
}

// Create creates the virtual device.
func (s *Script) Create() error {
	return s.runVerb("create")
}

// Delete destroys the virtual device.
func (s *Script) Delete() error {
	return s.runVerb("delete")
}

// MonitorCmd returns the unstarted long-running monitor command.
// The caller owns its lifecycle.
func (s *Script) MonitorCmd() *exec.Cmd {
	return exec.Command("bash", s.path, "monitor")
}

// runVerb runs a one-shot script verb with a bounded timeout.
func (s *Script) runVerb(verb string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", s.path, verb)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := util.ExtractLastError(stderr.String()); msg != "" {
			return fmt.Errorf("script %s: %s: %w", verb, msg, err)
		}
		return util.WrapError("run script "+verb, err)
	}
	return nil
}
