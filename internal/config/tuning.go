package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/params endpoint so the same JSON can be
// used for both startup configuration and runtime updates.
type TuningConfig struct {
	// Analyzer params
	Smoothing     *float64 `json:"smoothing,omitempty"`
	GainDecay     *float64 `json:"gain_decay,omitempty"`
	BeatThreshold *float64 `json:"beat_threshold,omitempty"`

	// Mapper params
	MinBrightness   *int     `json:"min_brightness,omitempty"`
	BrightnessBoost *float64 `json:"brightness_boost,omitempty"`
	Sensitivity     *float64 `json:"sensitivity,omitempty"`
	NoiseGate       *float64 `json:"noise_gate,omitempty"`

	// Mode selector params
	ModeInterval *string  `json:"mode_interval,omitempty"` // duration string like "3s"
	UpperCrest   *float64 `json:"upper_crest,omitempty"`
	LowerCrest   *float64 `json:"lower_crest,omitempty"`
	CrestWindow  *int     `json:"crest_window,omitempty"`

	// Dispatch params
	UpdateInterval *string `json:"update_interval,omitempty"` // duration string like "35ms"
	SendTimeout    *string `json:"send_timeout,omitempty"`    // duration string like "500ms"

	// Session params
	SilenceThreshold *float64 `json:"silence_threshold,omitempty"`
	DiscoveryTimeout *string  `json:"discovery_timeout,omitempty"` // duration string like "2s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// The Get* accessors then supply every default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Smoothing != nil {
		if *c.Smoothing <= 0 || *c.Smoothing > 1 {
			return fmt.Errorf("smoothing must be in (0, 1], got %f", *c.Smoothing)
		}
	}

	if c.GainDecay != nil {
		if *c.GainDecay <= 0 || *c.GainDecay >= 1 {
			return fmt.Errorf("gain_decay must be in (0, 1), got %f", *c.GainDecay)
		}
	}

	if c.MinBrightness != nil {
		if *c.MinBrightness < 0 || *c.MinBrightness > 100 {
			return fmt.Errorf("min_brightness must be between 0 and 100, got %d", *c.MinBrightness)
		}
	}

	if c.Sensitivity != nil {
		if *c.Sensitivity <= 0 {
			return fmt.Errorf("sensitivity must be positive, got %f", *c.Sensitivity)
		}
	}

	if c.UpperCrest != nil && c.LowerCrest != nil {
		if *c.UpperCrest < *c.LowerCrest {
			return fmt.Errorf("upper_crest (%f) must not be below lower_crest (%f)", *c.UpperCrest, *c.LowerCrest)
		}
	}

	if c.CrestWindow != nil {
		if *c.CrestWindow <= 0 {
			return fmt.Errorf("crest_window must be positive, got %d", *c.CrestWindow)
		}
	}

	for name, v := range map[string]*string{
		"mode_interval":     c.ModeInterval,
		"update_interval":   c.UpdateInterval,
		"send_timeout":      c.SendTimeout,
		"discovery_timeout": c.DiscoveryTimeout,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}

	return nil
}

// GetSmoothing returns the smoothing value or the default.
func (c *TuningConfig) GetSmoothing() float64 {
	if c.Smoothing == nil {
		return 0.3 // default
	}
	return *c.Smoothing
}

// GetGainDecay returns the gain_decay value or the default.
func (c *TuningConfig) GetGainDecay() float64 {
	if c.GainDecay == nil {
		return 0.995
	}
	return *c.GainDecay
}

// GetBeatThreshold returns the beat_threshold value or the default.
func (c *TuningConfig) GetBeatThreshold() float64 {
	if c.BeatThreshold == nil {
		return 1.5
	}
	return *c.BeatThreshold
}

// GetMinBrightness returns the min_brightness value or the default.
func (c *TuningConfig) GetMinBrightness() int {
	if c.MinBrightness == nil {
		return 10
	}
	return *c.MinBrightness
}

// GetBrightnessBoost returns the brightness_boost value or the default.
func (c *TuningConfig) GetBrightnessBoost() float64 {
	if c.BrightnessBoost == nil {
		return 1.0
	}
	return *c.BrightnessBoost
}

// GetSensitivity returns the sensitivity value or the default.
func (c *TuningConfig) GetSensitivity() float64 {
	if c.Sensitivity == nil {
		return 1.0
	}
	return *c.Sensitivity
}

// GetNoiseGate returns the noise_gate value or the default.
func (c *TuningConfig) GetNoiseGate() float64 {
	if c.NoiseGate == nil {
		return 0.05
	}
	return *c.NoiseGate
}

// GetModeInterval parses and returns the ModeInterval as a time.Duration.
func (c *TuningConfig) GetModeInterval() time.Duration {
	if c.ModeInterval == nil || *c.ModeInterval == "" {
		return 3 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ModeInterval)
	if err != nil {
		return 3 * time.Second // default on parse error
	}
	return d
}

// GetUpperCrest returns the upper_crest value or the default.
func (c *TuningConfig) GetUpperCrest() float64 {
	if c.UpperCrest == nil {
		return 3.0
	}
	return *c.UpperCrest
}

// GetLowerCrest returns the lower_crest value or the default.
func (c *TuningConfig) GetLowerCrest() float64 {
	if c.LowerCrest == nil {
		return 2.8
	}
	return *c.LowerCrest
}

// GetCrestWindow returns the crest_window value or the default.
func (c *TuningConfig) GetCrestWindow() int {
	if c.CrestWindow == nil {
		return 40
	}
	return *c.CrestWindow
}

// GetUpdateInterval parses and returns the UpdateInterval as a time.Duration.
func (c *TuningConfig) GetUpdateInterval() time.Duration {
	if c.UpdateInterval == nil || *c.UpdateInterval == "" {
		return 35 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.UpdateInterval)
	if err != nil {
		return 35 * time.Millisecond // default on parse error
	}
	return d
}

// GetSendTimeout parses and returns the SendTimeout as a time.Duration.
func (c *TuningConfig) GetSendTimeout() time.Duration {
	if c.SendTimeout == nil || *c.SendTimeout == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.SendTimeout)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetSilenceThreshold returns the silence_threshold value or the default.
func (c *TuningConfig) GetSilenceThreshold() float64 {
	if c.SilenceThreshold == nil {
		return 0.005
	}
	return *c.SilenceThreshold
}

// GetDiscoveryTimeout parses and returns the DiscoveryTimeout as a time.Duration.
func (c *TuningConfig) GetDiscoveryTimeout() time.Duration {
	if c.DiscoveryTimeout == nil || *c.DiscoveryTimeout == "" {
		return 2 * time.Second // default
	}
	d, err := time.ParseDuration(*c.DiscoveryTimeout)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}
