package types

// WSStatusResponse is the periodic status payload pushed to WebSocket clients.
type WSStatusResponse struct {
	Type       string        `json:"type"` // "status"
	Mixer      MixerStatus   `json:"mixer"`
	Capture    CaptureStatus `json:"capture"`
	MixerGuard GuardStatus   `json:"mixer_guard"`
	MicGuard   GuardStatus   `json:"mic_guard"`
	Sources    []string      `json:"sources"`
	VolumeStep int           `json:"volume_step"`
	Version    VersionInfo   `json:"version"`
}

// WSWaveformResponse carries one waveform frame for rendering.
type WSWaveformResponse struct {
	Type    string    `json:"type"` // "waveform"
	Samples []float64 `json:"samples"`
}

// WSEventResponse carries one mixer event or monitor line to the client.
type WSEventResponse struct {
	Type    string `json:"type"`  // "event"
	Event   string `json:"event"` // Event kind (connected, error, monitor_output, ...)
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// WSTestResult is the response for notification test commands.
type WSTestResult struct {
	Type     string `json:"type"` // "test_result"
	TestType string `json:"test_type"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}
