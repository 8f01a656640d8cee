package mixer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/virtmix/virtmix/internal/config"
	"github.com/virtmix/virtmix/internal/pactl"
	"github.com/virtmix/virtmix/internal/proc"
	"github.com/virtmix/virtmix/internal/types"
)

// controlFake answers pactl queries from a canned table and records
// every issued command line.
type controlFake struct {
	mu      sync.Mutex
	calls   []string
	replies map[string]string
}

func (f *controlFake) run(_ context.Context, _ string, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	return []byte(f.replies[key]), nil
}

func (f *controlFake) issued(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func newControlManager(t *testing.T, replies map[string]string) (*Manager, *controlFake) {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	if err := cfg.Load(); err != nil {
		t.Fatal(err)
	}

	fake := &controlFake{replies: replies}
	m := New(cfg, pactl.NewWithRunner(fake.run), proc.NewSupervisor(), nil)
	return m, fake
}

func sinkPresentReplies() map[string]string {
	return map[string]string{
		"list sinks short": "0\t" + types.MixerSinkName + "\tmodule\ts16le 2ch 44100Hz\tIDLE\n",
		"list sinks":       "Sink #0\n\tName: " + types.MixerSinkName + "\n\tMute: no\n",
	}
}

func TestVolumeControlsRequireSink(t *testing.T) {
	m, _ := newControlManager(t, nil)

	if err := m.NudgeVolume(true); !errors.Is(err, ErrMixerAbsent) {
		t.Errorf("expected ErrMixerAbsent, got %v", err)
	}
	if err := m.SetVolume(80); !errors.Is(err, ErrMixerAbsent) {
		t.Errorf("expected ErrMixerAbsent, got %v", err)
	}
	if err := m.SetMuted(true); !errors.Is(err, ErrMixerAbsent) {
		t.Errorf("expected ErrMixerAbsent, got %v", err)
	}
}

func TestNudgeVolumeUsesConfiguredStep(t *testing.T) {
	m, fake := newControlManager(t, sinkPresentReplies())

	if err := m.NudgeVolume(true); err != nil {
		t.Fatalf("nudge up failed: %v", err)
	}
	if err := m.NudgeVolume(false); err != nil {
		t.Fatalf("nudge down failed: %v", err)
	}

	got := fake.issued("set-sink-volume")
	want := []string{
		"set-sink-volume " + types.MixerSinkName + " +20%",
		"set-sink-volume " + types.MixerSinkName + " -20%",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d volume commands, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSetVolumeAbsolute(t *testing.T) {
	m, fake := newControlManager(t, sinkPresentReplies())

	if err := m.SetVolume(85); err != nil {
		t.Fatalf("set volume failed: %v", err)
	}

	got := fake.issued("set-sink-volume")
	if len(got) != 1 || got[0] != "set-sink-volume "+types.MixerSinkName+" 85%" {
		t.Errorf("unexpected volume commands: %v", got)
	}
}

func TestSetMutedResyncsObservedState(t *testing.T) {
	replies := sinkPresentReplies()
	replies["list sinks"] = "Sink #0\n\tName: " + types.MixerSinkName + "\n\tMute: yes\n"
	m, fake := newControlManager(t, replies)

	if err := m.SetMuted(true); err != nil {
		t.Fatalf("set muted failed: %v", err)
	}

	if got := fake.issued("set-sink-mute"); len(got) != 1 || got[0] != "set-sink-mute "+types.MixerSinkName+" 1" {
		t.Errorf("unexpected mute commands: %v", got)
	}

	st := m.Status()
	if !st.MuteKnown || !st.Muted {
		t.Errorf("expected observed muted state, got %+v", st)
	}
}

func TestToggleMuteFlipsObservedState(t *testing.T) {
	m, fake := newControlManager(t, sinkPresentReplies())

	// Last observed state starts unmuted; toggle requests a mute.
	m.ResyncMute()
	if err := m.ToggleMute(); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	got := fake.issued("set-sink-mute")
	if len(got) != 1 || got[0] != "set-sink-mute "+types.MixerSinkName+" 1" {
		t.Errorf("expected a mute command, got %v", got)
	}
}

func TestResyncMuteUnknownOnUnparseableListing(t *testing.T) {
	m, _ := newControlManager(t, map[string]string{
		"list sinks": "unexpected format\n",
	})

	m.ResyncMute()

	if st := m.Status(); st.MuteKnown {
		t.Error("expected unknown mute state for unparseable listing")
	}
}
