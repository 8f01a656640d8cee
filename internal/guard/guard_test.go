package guard

import (
	"sync"
	"testing"
	"time"
)

// call records one control-surface invocation.
type call struct {
	op     string
	target string
	value  string
	muted  bool
}

// fakeController records every call in order.
type fakeController struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeController) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeController) SetSinkVolume(name, value string) error {
	return f.record(call{op: "sink-volume", target: name, value: value})
}

func (f *fakeController) SetSinkMute(name string, muted bool) error {
	return f.record(call{op: "sink-mute", target: name, muted: muted})
}

func (f *fakeController) SetSourceVolume(name, value string) error {
	return f.record(call{op: "source-volume", target: name, value: value})
}

func (f *fakeController) SetSourceMute(name string, muted bool) error {
	return f.record(call{op: "source-mute", target: name, muted: muted})
}

func (f *fakeController) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestArmRunsImmediatePass(t *testing.T) {
	ctl := &fakeController{}
	e := New(KindSink, ctl)

	e.Arm(Config{Target: "AudioMixer_Virtual", Percent: 100, Interval: time.Hour})
	defer e.Disarm()

	calls := ctl.snapshot()
	if len(calls) != 2 {
		t.Fatalf("expected exactly one pass (2 calls), got %d", len(calls))
	}
	if calls[0].op != "sink-mute" || calls[0].muted {
		t.Errorf("expected unmute first, got %+v", calls[0])
	}
	if calls[1].op != "sink-volume" || calls[1].value != "100%" {
		t.Errorf("expected volume 100%% second, got %+v", calls[1])
	}
}

func TestArmThenImmediateDisarm(t *testing.T) {
	ctl := &fakeController{}
	e := New(KindSink, ctl)

	e.Arm(Config{Target: "AudioMixer_Virtual", Percent: 100, Interval: 10 * time.Millisecond})
	e.Disarm()

	before := len(ctl.snapshot())
	if before < 2 {
		t.Fatalf("expected at least the immediate pass, got %d calls", before)
	}

	// The schedule is gone; no further passes land.
	time.Sleep(50 * time.Millisecond)
	if after := len(ctl.snapshot()); after != before {
		t.Errorf("passes continued after disarm: %d -> %d calls", before, after)
	}
	if e.Armed() {
		t.Error("expected disarmed state")
	}
}

func TestPeriodicEnforcement(t *testing.T) {
	ctl := &fakeController{}
	e := New(KindSink, ctl)

	e.Arm(Config{Target: "AudioMixer_Virtual", Percent: 75, Interval: 10 * time.Millisecond})
	time.Sleep(55 * time.Millisecond)
	e.Disarm()

	calls := ctl.snapshot()
	if len(calls) < 6 {
		t.Fatalf("expected at least 3 passes, got %d calls", len(calls))
	}
	// Every pass is unmute then volume, strictly alternating.
	for i := 0; i+1 < len(calls); i += 2 {
		if calls[i].op != "sink-mute" || calls[i].muted {
			t.Errorf("call %d: expected unmute, got %+v", i, calls[i])
		}
		if calls[i+1].op != "sink-volume" || calls[i+1].value != "75%" {
			t.Errorf("call %d: expected volume 75%%, got %+v", i+1, calls[i+1])
		}
	}
}

func TestRearmReplacesSchedule(t *testing.T) {
	ctl := &fakeController{}
	e := New(KindSink, ctl)

	e.Arm(Config{Target: "AudioMixer_Virtual", Percent: 100, Interval: 10 * time.Millisecond})
	e.Arm(Config{Target: "AudioMixer_Virtual", Percent: 60, Interval: 10 * time.Millisecond})
	time.Sleep(35 * time.Millisecond)
	e.Disarm()

	// Everything after the two immediate passes enforces the new target
	// volume; the old schedule was cancelled, not stacked.
	calls := ctl.snapshot()
	for _, c := range calls[4:] {
		if c.op == "sink-volume" && c.value != "60%" {
			t.Errorf("old schedule still enforcing: %+v", c)
		}
	}

	st := e.Status()
	if !st.Armed || st.Percent != 60 {
		t.Errorf("unexpected status after re-arm: %+v", st)
	}
}

func TestSourceKindUsesSourceCommands(t *testing.T) {
	ctl := &fakeController{}
	e := New(KindSource, ctl)

	e.Arm(Config{Target: "alsa_input.usb-mic", Percent: 90, Interval: time.Hour})
	defer e.Disarm()

	calls := ctl.snapshot()
	if calls[0].op != "source-mute" || calls[1].op != "source-volume" {
		t.Errorf("expected source commands, got %+v", calls)
	}
	if calls[1].target != "alsa_input.usb-mic" || calls[1].value != "90%" {
		t.Errorf("unexpected target pass: %+v", calls[1])
	}
}

func TestDisarmWhenDisarmed(t *testing.T) {
	e := New(KindSink, &fakeController{})
	e.Disarm()
	e.Disarm()
	if e.Armed() {
		t.Error("expected disarmed state")
	}
}

func TestStatusReportsPasses(t *testing.T) {
	ctl := &fakeController{}
	e := New(KindSink, ctl)

	e.Arm(Config{Target: "AudioMixer_Virtual", Percent: 100, Interval: time.Hour})
	e.Disarm()

	st := e.Status()
	if st.Armed {
		t.Error("expected disarmed status")
	}
	if st.Passes != 1 {
		t.Errorf("expected 1 pass, got %d", st.Passes)
	}
	if st.Target != "" {
		t.Errorf("disarmed status should not carry a target, got %q", st.Target)
	}
}
