// Package types provides shared type definitions used across the mixer manager.
package types

import (
	"time"
)

// ConnState represents the state of the virtual mixer connection.
type ConnState string

const (
	// StateDisconnected indicates no virtual mixer exists.
	StateDisconnected ConnState = "disconnected"
	// StateConnecting indicates the mixer is being created.
	StateConnecting ConnState = "connecting"
	// StateConnected indicates the mixer exists and the monitor is running.
	StateConnected ConnState = "connected"
	// StateDisconnecting indicates the mixer is being torn down.
	StateDisconnecting ConnState = "disconnecting"
	// StateError indicates the last transition failed or the monitor died.
	StateError ConnState = "error"
)

// Audio format constants for PCM capture. The capture tool is asked for
// 16-bit little-endian mono at 44.1kHz with a bounded latency.
const (
	// SampleRate is the capture sample rate in Hz.
	SampleRate = 44100
	// Channels is the number of capture channels (mono).
	Channels = 1
	// BytesPerSample is the size of one s16le sample.
	BytesPerSample = 2
	// CaptureLatencyMs is the latency bound requested from the capture tool.
	CaptureLatencyMs = 50
)

const (
	// CaptureTick is the waveform sampling period.
	CaptureTick = 50 * time.Millisecond
	// CaptureBatchSize is the number of samples reduced per tick
	// (SampleRate x CaptureTick).
	CaptureBatchSize = 2205
	// WaveformHistory is the maximum number of amplitude samples retained.
	WaveformHistory = 800
)

const (
	// ControlTimeout bounds every synchronous device-control call.
	ControlTimeout = 5000 * time.Millisecond
	// ScriptTimeout bounds the lifecycle script's create and delete verbs.
	ScriptTimeout = 10000 * time.Millisecond
	// TerminateGrace is how long a signalled process group gets before SIGKILL.
	TerminateGrace = 500 * time.Millisecond
	// ShutdownTimeout bounds graceful HTTP server shutdown at exit.
	ShutdownTimeout = 30 * time.Second
)

// MixerSinkName is the fixed name of the virtual sink managed by the
// lifecycle script. Existence checks and volume commands address it.
const MixerSinkName = "AudioMixer_Virtual"

// MixerMonitorSource is the monitor stream of the virtual sink.
const MixerMonitorSource = MixerSinkName + ".monitor"

// MixerStatus contains runtime status for the connection state machine.
type MixerStatus struct {
	State     ConnState `json:"state"`                // Current connection state
	Muted     bool      `json:"muted"`                // Last observed sink mute state
	MuteKnown bool      `json:"mute_known"`           // Whether the mute state could be parsed
	LastError string    `json:"last_error,omitempty"` // Last reported failure
}

// GuardStatus contains runtime status for one guard target.
type GuardStatus struct {
	Armed    bool   `json:"armed"`              // Whether enforcement is active
	Target   string `json:"target,omitempty"`   // Guarded device name
	Percent  int    `json:"percent,omitempty"`  // Enforced volume percentage
	Interval int    `json:"interval,omitempty"` // Enforcement interval in seconds
	Passes   int64  `json:"passes,omitempty"`   // Enforcement passes performed
}

// CaptureStatus contains runtime status for the waveform capture session.
type CaptureStatus struct {
	Active bool   `json:"active"`           // Whether a capture session is running
	Source string `json:"source,omitempty"` // Device currently captured
}

// VersionInfo contains version information for the frontend.
type VersionInfo struct {
	Current     string `json:"current"`
	Latest      string `json:"latest,omitempty"`
	Commit      string `json:"commit,omitempty"`
	BuildTime   string `json:"build_time,omitempty"`
	UpdateAvail bool   `json:"update_available,omitempty"`
}
