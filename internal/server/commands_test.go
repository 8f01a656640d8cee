package server

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/virtmix/virtmix/internal/audio"
	"github.com/virtmix/virtmix/internal/config"
	"github.com/virtmix/virtmix/internal/events"
	"github.com/virtmix/virtmix/internal/guard"
	"github.com/virtmix/virtmix/internal/mixer"
	"github.com/virtmix/virtmix/internal/pactl"
	"github.com/virtmix/virtmix/internal/proc"
	"github.com/virtmix/virtmix/internal/types"
)

// stubSource is a silent capture source for scheduler wiring tests.
type stubSource struct{}

func (stubSource) ReadSamples(n int) []float64 { return make([]float64, n) }
func (stubSource) Close() error                { return nil }

// stuckSource fails to close, like a capture process that already died.
type stuckSource struct{ stubSource }

func (stuckSource) Close() error { return errors.New("parec already exited") }

// pactlFake answers queries from a canned table keyed by the joined
// argument string.
type pactlFake struct {
	mu      sync.Mutex
	calls   []string
	replies map[string]string
}

func (f *pactlFake) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	return []byte(f.replies[key]), nil
}

type testHarness struct {
	handler     *CommandHandler
	cfg         *config.Config
	mixerGuard  *guard.Enforcer
	micGuard    *guard.Enforcer
	capture     *audio.Scheduler
	eventLog    *events.Logger
	source      audio.SampleSource
	send        chan any
	statusCalls int
}

func newHarness(t *testing.T, replies map[string]string) *testHarness {
	t.Helper()
	dir := t.TempDir()

	cfg := config.New(filepath.Join(dir, "config.json"))
	if err := cfg.Load(); err != nil {
		t.Fatal(err)
	}

	eventLog, err := events.NewLogger(filepath.Join(dir, "events.log"))
	if err != nil {
		t.Fatal(err)
	}

	fake := &pactlFake{replies: replies}
	ctl := pactl.NewWithRunner(fake.run)

	h := &testHarness{
		cfg:        cfg,
		mixerGuard: guard.New(guard.KindSink, ctl),
		micGuard:   guard.New(guard.KindSource, ctl),
		eventLog:   eventLog,
		source:     stubSource{},
		send:       make(chan any, 8),
	}
	h.capture = audio.NewScheduler(func(string) (audio.SampleSource, error) { return h.source, nil })
	mgr := mixer.New(cfg, ctl, proc.NewSupervisor(), eventLog)
	h.handler = NewCommandHandler(cfg, mgr, h.capture, ctl, h.mixerGuard, h.micGuard, eventLog)

	t.Cleanup(func() {
		h.mixerGuard.Disarm()
		h.micGuard.Disarm()
		h.capture.Stop() //nolint:errcheck
		eventLog.Close() //nolint:errcheck
	})
	return h
}

func (h *testHarness) handle(t *testing.T, cmdType, data string) {
	t.Helper()
	h.handler.Handle(command(cmdType, data), h.send, func() { h.statusCalls++ })
}

func (h *testHarness) waitResponse(t *testing.T) any {
	t.Helper()
	select {
	case msg := <-h.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no response received")
		return nil
	}
}

func (h *testHarness) waitResult(t *testing.T, wantType string) map[string]any {
	t.Helper()
	resp, ok := h.waitResponse(t).(map[string]any)
	if !ok {
		t.Fatal("expected a map response")
	}
	if resp["type"] != wantType {
		t.Fatalf("expected response type %q, got %v", wantType, resp["type"])
	}
	return resp
}

func TestVolumeStepCommand(t *testing.T) {
	h := newHarness(t, nil)

	h.handle(t, "settings/volume-step", `{"step": 10}`)

	resp := h.waitResult(t, "settings/volume-step_result")
	if resp["success"] != true {
		t.Errorf("expected success, got %v", resp)
	}
	if got := h.cfg.VolumeStep(); got != 10 {
		t.Errorf("expected persisted step 10, got %d", got)
	}
	if h.statusCalls != 1 {
		t.Errorf("expected a status refresh, got %d", h.statusCalls)
	}
}

func TestVolumeStepCommandRejected(t *testing.T) {
	h := newHarness(t, nil)

	h.handle(t, "settings/volume-step", `{"step": 0}`)

	resp := h.waitResult(t, "settings/volume-step_result")
	if resp["success"] != false {
		t.Errorf("expected validation failure, got %v", resp)
	}
	if got := h.cfg.VolumeStep(); got != config.DefaultVolumeStep {
		t.Errorf("config changed on rejected input: %d", got)
	}
}

func TestGuardArmDefaultsToMixerSink(t *testing.T) {
	h := newHarness(t, nil)

	h.handle(t, "guard/mixer/arm", `{"percent": 90, "interval_sec": 2}`)

	resp := h.waitResult(t, "guard/mixer/arm_result")
	if resp["success"] != true {
		t.Fatalf("expected success, got %v", resp)
	}

	st := h.mixerGuard.Status()
	if !st.Armed || st.Target != types.MixerSinkName {
		t.Errorf("expected guard armed on %q, got %+v", types.MixerSinkName, st)
	}
	if got := h.cfg.MixerGuard(); got.Percent != 90 || got.IntervalSec != 2 {
		t.Errorf("guard settings not persisted: %+v", got)
	}

	entries, err := events.ReadLast(h.eventLog.Path(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Event != events.EventGuardArmed {
		t.Errorf("expected a guard_armed log entry, got %v", entries)
	}
}

func TestGuardArmMicDefaultsToDefaultSource(t *testing.T) {
	h := newHarness(t, nil)

	h.handle(t, "guard/mic/arm", `{"percent": 100, "interval_sec": 3}`)
	h.waitResult(t, "guard/mic/arm_result")

	if st := h.micGuard.Status(); st.Target != pactl.DefaultSource {
		t.Errorf("expected default source target, got %q", st.Target)
	}
}

func TestGuardDisarmCommand(t *testing.T) {
	h := newHarness(t, nil)

	h.handle(t, "guard/mixer/arm", `{"percent": 100, "interval_sec": 3}`)
	h.waitResult(t, "guard/mixer/arm_result")

	h.handle(t, "guard/mixer/disarm", `{}`)
	resp := h.waitResult(t, "guard/mixer/disarm_result")
	if resp["success"] != true {
		t.Errorf("expected success, got %v", resp)
	}
	if h.mixerGuard.Armed() {
		t.Error("expected guard disarmed")
	}
}

func TestMixerVolumeSetWithoutSink(t *testing.T) {
	h := newHarness(t, nil)

	h.handle(t, "mixer/volume/set", `{"percent": 50}`)

	resp := h.waitResult(t, "mixer/volume/set_result")
	if resp["success"] != false {
		t.Errorf("expected failure without the virtual sink, got %v", resp)
	}
}

func TestCaptureStartResolvesDefaultMonitor(t *testing.T) {
	h := newHarness(t, map[string]string{
		"get-default-sink": "alsa_output.speakers\n",
	})

	h.handle(t, "capture/start", `{}`)
	resp := h.waitResult(t, "capture/start_result")
	if resp["success"] != true {
		t.Fatalf("expected success, got %v", resp)
	}

	st := h.capture.Status()
	if !st.Active || st.Source != "alsa_output.speakers.monitor" {
		t.Errorf("unexpected capture status: %+v", st)
	}

	h.handle(t, "capture/stop", `{}`)
	resp = h.waitResult(t, "capture/stop_result")
	if resp["success"] != true {
		t.Errorf("expected stop success, got %v", resp)
	}
}

func TestCaptureStartPrefersMixerMonitor(t *testing.T) {
	h := newHarness(t, map[string]string{
		"list sinks short": "0\t" + types.MixerSinkName + "\tmodule\n",
	})

	h.handle(t, "capture/start", `{}`)
	h.waitResult(t, "capture/start_result")

	if st := h.capture.Status(); st.Source != types.MixerMonitorSource {
		t.Errorf("expected mixer monitor source, got %q", st.Source)
	}
}

func TestCaptureStopReportsCloseError(t *testing.T) {
	h := newHarness(t, map[string]string{
		"get-default-sink": "alsa_output.speakers\n",
	})
	h.source = stuckSource{}

	h.handle(t, "capture/start", `{}`)
	h.waitResult(t, "capture/start_result")

	h.handle(t, "capture/stop", `{}`)
	resp := h.waitResult(t, "capture/stop_result")
	if resp["success"] != false {
		t.Fatalf("expected stop to fail, got %v", resp)
	}
	if errMsg, _ := resp["error"].(string); !strings.Contains(errMsg, "parec already exited") {
		t.Errorf("expected close error in response, got %v", resp["error"])
	}
}

func TestLateResponseAfterClientGone(t *testing.T) {
	// A client's send channel outlives its connection: async actions that
	// finish after the disconnect write into the orphaned buffer, or drop
	// when it is full. Neither may panic.
	h := newHarness(t, map[string]string{
		"get-default-sink": "alsa_output.speakers\n",
	})

	// Nobody reads h.send, as after a disconnect.
	h.handle(t, "capture/start", `{}`)

	deadline := time.After(2 * time.Second)
	for len(h.send) == 0 {
		select {
		case <-deadline:
			t.Fatal("async response never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Fill the buffer, then complete another action against it.
	for len(h.send) < cap(h.send) {
		h.send <- struct{}{}
	}
	h.handle(t, "capture/stop", `{}`)
	time.Sleep(50 * time.Millisecond)
	if len(h.send) != cap(h.send) {
		t.Errorf("expected overflow response to be dropped, buffer has %d", len(h.send))
	}
}

func TestEventsViewCommand(t *testing.T) {
	h := newHarness(t, nil)

	ev := events.MixerEvent{Event: events.EventConnected, Message: "virtual mixer connected"}
	if err := h.eventLog.Log(&ev); err != nil {
		t.Fatal(err)
	}

	h.handle(t, "events/view", "")

	resp, ok := h.waitResponse(t).(WSEventLogResult)
	if !ok {
		t.Fatal("expected a WSEventLogResult")
	}
	if !resp.Success || len(resp.Entries) != 1 {
		t.Errorf("unexpected result: %+v", resp)
	}
	if resp.Entries[0].Event != events.EventConnected {
		t.Errorf("unexpected entry: %+v", resp.Entries[0])
	}
}

func TestWebhookGetCommand(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.cfg.SetWebhookURL("https://hooks.example.com/mixer"); err != nil {
		t.Fatal(err)
	}

	h.handle(t, "notifications/webhook/get", "")

	resp := h.waitResult(t, "notifications/webhook/get_result")
	data, ok := resp["data"].(map[string]string)
	if !ok {
		t.Fatalf("expected url map, got %T", resp["data"])
	}
	if data["url"] != "https://hooks.example.com/mixer" {
		t.Errorf("unexpected webhook url: %q", data["url"])
	}
}

func TestUnknownCommandStillRefreshesStatus(t *testing.T) {
	h := newHarness(t, nil)

	h.handle(t, "bogus/none", "")

	if len(h.send) != 0 {
		t.Error("unknown command should not produce a response")
	}
	if h.statusCalls != 1 {
		t.Errorf("expected a status refresh, got %d", h.statusCalls)
	}
}
