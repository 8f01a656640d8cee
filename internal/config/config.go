// Package config provides application configuration management.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/virtmix/virtmix/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultWebPort          = 8080
	DefaultWebUsername      = "admin"
	DefaultWebPassword      = "mixer"
	DefaultPanelName        = "Virtual Mixer"
	DefaultPanelColorLight  = "#1D7AFC"
	DefaultPanelColorDark   = "#1D7AFC"
	DefaultScriptPath       = "./mixer-setup.sh"
	DefaultVolumeStep       = 20
	DefaultGuardPercent     = 100
	DefaultGuardIntervalSec = 3
)

// Bounds for validated settings.
const (
	MinVolumeStep       = 1
	MaxVolumeStep       = 100
	MinGuardPercent     = 0
	MaxGuardPercent     = 150
	MinGuardIntervalSec = 1
	MaxGuardIntervalSec = 60
)

// Validation patterns define regular expressions for configuration value validation.
var (
	// Panel name: any printable characters except control chars
	panelNamePattern  = regexp.MustCompile(`^[^\x00-\x1F\x7F]+$`)
	panelColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	PactlPath string `json:"pactl_path"` // Path to pactl binary (empty = use PATH)
	ParecPath string `json:"parec_path"` // Path to parec binary (empty = use PATH)
	Port      int    `json:"port"`       // HTTP server port
	Username  string `json:"username"`   // Login username
	Password  string `json:"password"`   // Login password
}

// WebConfig holds panel branding settings.
type WebConfig struct {
	PanelName  string `json:"panel_name"`  // Panel display name
	ColorLight string `json:"color_light"` // Theme color for light mode (#RRGGBB)
	ColorDark  string `json:"color_dark"`  // Theme color for dark mode (#RRGGBB)
}

// MixerConfig holds virtual mixer lifecycle settings.
type MixerConfig struct {
	ScriptPath string `json:"script_path"` // Lifecycle script invoked with create/delete
	VolumeStep int    `json:"volume_step"` // Volume nudge step in percent points, 1-100
}

// CaptureConfig holds waveform capture settings.
type CaptureConfig struct {
	Source string `json:"source"` // Capture device (empty = mixer monitor)
}

// GuardConfig holds enforcement settings for one guard target.
type GuardConfig struct {
	Percent     int `json:"percent"`      // Enforced volume percentage, 0-150
	IntervalSec int `json:"interval_sec"` // Enforcement interval in seconds, 1-60
}

// GuardsConfig holds the settings for both guard targets.
type GuardsConfig struct {
	Mixer GuardConfig `json:"mixer"` // Virtual mixer sink guard
	Mic   GuardConfig `json:"mic"`   // Microphone source guard
}

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	URL string `json:"url"` // Webhook URL for monitor alerts
}

// NotificationsConfig holds all notification channel settings.
type NotificationsConfig struct {
	Webhook WebhookConfig `json:"webhook"` // Webhook settings
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System        SystemConfig        `json:"system"`
	Web           WebConfig           `json:"web"`
	Mixer         MixerConfig         `json:"mixer"`
	Capture       CaptureConfig       `json:"capture"`
	Guards        GuardsConfig        `json:"guards"`
	Notifications NotificationsConfig `json:"notifications"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		System: SystemConfig{
			Port:     DefaultWebPort,
			Username: DefaultWebUsername,
			Password: DefaultWebPassword,
		},
		Web: WebConfig{
			PanelName:  DefaultPanelName,
			ColorLight: DefaultPanelColorLight,
			ColorDark:  DefaultPanelColorDark,
		},
		Mixer: MixerConfig{
			ScriptPath: DefaultScriptPath,
			VolumeStep: DefaultVolumeStep,
		},
		Capture: CaptureConfig{},
		Guards: GuardsConfig{
			Mixer: GuardConfig{Percent: DefaultGuardPercent, IntervalSec: DefaultGuardIntervalSec},
			Mic:   GuardConfig{Percent: DefaultGuardPercent, IntervalSec: DefaultGuardIntervalSec},
		},
		Notifications: NotificationsConfig{},
		filePath:      filePath,
	}
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()

	if err := c.validate(); err != nil {
		return err
	}

	return nil
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	name := c.Web.PanelName
	if name == "" || len(name) > 30 || !panelNamePattern.MatchString(name) {
		return fmt.Errorf("invalid panel_name %q: must be 1-30 printable characters", name)
	}
	if !panelColorPattern.MatchString(c.Web.ColorLight) {
		return fmt.Errorf("invalid color_light %q: must be hex format (#RRGGBB)", c.Web.ColorLight)
	}
	if !panelColorPattern.MatchString(c.Web.ColorDark) {
		return fmt.Errorf("invalid color_dark %q: must be hex format (#RRGGBB)", c.Web.ColorDark)
	}
	if err := ValidateVolumeStep(c.Mixer.VolumeStep); err != nil {
		return err
	}
	if err := ValidateGuard(c.Guards.Mixer.Percent, c.Guards.Mixer.IntervalSec); err != nil {
		return fmt.Errorf("mixer guard: %w", err)
	}
	if err := ValidateGuard(c.Guards.Mic.Percent, c.Guards.Mic.IntervalSec); err != nil {
		return fmt.Errorf("mic guard: %w", err)
	}
	return nil
}

// ValidateVolumeStep checks that a volume step is within bounds.
func ValidateVolumeStep(step int) error {
	if step < MinVolumeStep || step > MaxVolumeStep {
		return fmt.Errorf("invalid volume_step %d: must be %d-%d", step, MinVolumeStep, MaxVolumeStep)
	}
	return nil
}

// ValidateGuard checks that guard settings are within bounds.
func ValidateGuard(percent, intervalSec int) error {
	if percent < MinGuardPercent || percent > MaxGuardPercent {
		return fmt.Errorf("invalid percent %d: must be %d-%d", percent, MinGuardPercent, MaxGuardPercent)
	}
	if intervalSec < MinGuardIntervalSec || intervalSec > MaxGuardIntervalSec {
		return fmt.Errorf("invalid interval %d: must be %d-%d seconds", intervalSec, MinGuardIntervalSec, MaxGuardIntervalSec)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	// System defaults
	if c.System.Port == 0 {
		c.System.Port = DefaultWebPort
	}
	if c.System.Username == "" {
		c.System.Username = DefaultWebUsername
	}
	if c.System.Password == "" {
		c.System.Password = DefaultWebPassword
	}
	// Web defaults
	if c.Web.PanelName == "" {
		c.Web.PanelName = DefaultPanelName
	}
	if c.Web.ColorLight == "" {
		c.Web.ColorLight = DefaultPanelColorLight
	}
	if c.Web.ColorDark == "" {
		c.Web.ColorDark = DefaultPanelColorDark
	}
	// Mixer defaults
	if c.Mixer.ScriptPath == "" {
		c.Mixer.ScriptPath = DefaultScriptPath
	}
	if c.Mixer.VolumeStep == 0 {
		c.Mixer.VolumeStep = DefaultVolumeStep
	}
	// Guard defaults
	applyGuardDefaults(&c.Guards.Mixer)
	applyGuardDefaults(&c.Guards.Mic)
}

func applyGuardDefaults(g *GuardConfig) {
	if g.Percent == 0 {
		g.Percent = DefaultGuardPercent
	}
	if g.IntervalSec == 0 {
		g.IntervalSec = DefaultGuardIntervalSec
	}
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// --- Getters for individual settings ---

// CaptureSource returns the configured capture device. Empty means the
// mixer's monitor source should be used.
func (c *Config) CaptureSource() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Capture.Source
}

// ScriptPath returns the configured lifecycle script path.
func (c *Config) ScriptPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Mixer.ScriptPath
}

// VolumeStep returns the configured volume nudge step.
func (c *Config) VolumeStep() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cmp.Or(c.Mixer.VolumeStep, DefaultVolumeStep)
}

// WebhookURL returns the configured webhook URL.
func (c *Config) WebhookURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Notifications.Webhook.URL
}

// MixerGuard returns the configured mixer guard settings.
func (c *Config) MixerGuard() GuardConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Guards.Mixer
}

// MicGuard returns the configured microphone guard settings.
func (c *Config) MicGuard() GuardConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Guards.Mic
}

// --- Setters for individual settings ---

// SetCaptureSource updates the capture device and saves the configuration.
func (c *Config) SetCaptureSource(source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Capture.Source = source
	return c.saveLocked()
}

// SetVolumeStep updates the volume nudge step and saves the configuration.
func (c *Config) SetVolumeStep(step int) error {
	if err := ValidateVolumeStep(step); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Mixer.VolumeStep = step
	return c.saveLocked()
}

// SetScriptPath updates the lifecycle script path and saves the configuration.
func (c *Config) SetScriptPath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Mixer.ScriptPath = path
	return c.saveLocked()
}

// SetWebhookURL updates the webhook URL and saves the configuration.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Webhook.URL = url
	return c.saveLocked()
}

// SetMixerGuard updates the mixer guard settings and saves the configuration.
func (c *Config) SetMixerGuard(percent, intervalSec int) error {
	if err := ValidateGuard(percent, intervalSec); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Guards.Mixer = GuardConfig{Percent: percent, IntervalSec: intervalSec}
	return c.saveLocked()
}

// SetMicGuard updates the microphone guard settings and saves the configuration.
func (c *Config) SetMicGuard(percent, intervalSec int) error {
	if err := ValidateGuard(percent, intervalSec); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Guards.Mic = GuardConfig{Percent: percent, IntervalSec: intervalSec}
	return c.saveLocked()
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// System
	WebPort     int
	WebUser     string
	WebPassword string
	PactlPath   string
	ParecPath   string

	// Web/Branding
	PanelName       string
	PanelColorLight string
	PanelColorDark  string

	// Mixer
	ScriptPath string
	VolumeStep int

	// Capture
	CaptureSource string

	// Guards
	MixerGuard GuardConfig
	MicGuard   GuardConfig

	// Notifications
	WebhookURL string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		// System
		WebPort:     c.System.Port,
		WebUser:     c.System.Username,
		WebPassword: c.System.Password,
		PactlPath:   c.System.PactlPath,
		ParecPath:   c.System.ParecPath,

		// Web/Branding
		PanelName:       c.Web.PanelName,
		PanelColorLight: c.Web.ColorLight,
		PanelColorDark:  c.Web.ColorDark,

		// Mixer
		ScriptPath: cmp.Or(c.Mixer.ScriptPath, DefaultScriptPath),
		VolumeStep: cmp.Or(c.Mixer.VolumeStep, DefaultVolumeStep),

		// Capture
		CaptureSource: c.Capture.Source,

		// Guards
		MixerGuard: c.Guards.Mixer,
		MicGuard:   c.Guards.Mic,

		// Notifications
		WebhookURL: c.Notifications.Webhook.URL,
	}
}

// HasWebhook reports whether a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}
