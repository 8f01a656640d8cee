package server

// Request types for WebSocket commands with validation tags.
// These types define the expected input for each command and use
// go-playground/validator struct tags for automatic validation.

// --- Mixer controls ---

// VolumeSetRequest is the request body for mixer/volume/set.
type VolumeSetRequest struct {
	Percent int `json:"percent" validate:"gte=0,lte=150"`
}

// MuteSetRequest is the request body for mixer/mute/set.
type MuteSetRequest struct {
	Muted bool `json:"muted"`
}

// --- Capture settings ---

// CaptureSourceRequest is the request body for capture/set-source.
// An empty source selects the mixer's monitor.
type CaptureSourceRequest struct {
	Source string `json:"source" validate:"omitempty,max=256"`
}

// --- Guard settings ---

// GuardArmRequest is the request body for guard/*/arm.
type GuardArmRequest struct {
	Target      string `json:"target" validate:"omitempty,max=256"`
	Percent     int    `json:"percent" validate:"gte=0,lte=150"`
	IntervalSec int    `json:"interval_sec" validate:"gte=1,lte=60"`
}

// --- Mixer settings ---

// VolumeStepRequest is the request body for settings/volume-step.
type VolumeStepRequest struct {
	Step int `json:"step" validate:"gte=1,lte=100"`
}

// ScriptPathRequest is the request body for settings/script-path.
type ScriptPathRequest struct {
	Path string `json:"path" validate:"required,max=4096"`
}

// --- Notification settings ---

// WebhookUpdateRequest is the request body for notifications/webhook/update.
type WebhookUpdateRequest struct {
	URL string `json:"url" validate:"omitempty,url,max=2048"`
}
