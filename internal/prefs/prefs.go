package prefs

import (
	"errors"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
)

// Default preference values. These match the defaults applied when no
// preference file exists yet.
const (
	// DefaultThreshold is the minimum normalized risk score for surfacing
	// an anchor.
	DefaultThreshold = 0.6

	// DefaultTheme is the overlay color theme.
	DefaultTheme = "dark"

	// DefaultMode controls whether results start compact or expanded.
	DefaultMode = "compact"

	// DefaultAnimation is the overlay reveal animation.
	DefaultAnimation = "genie"
)

// Valid enumeration values for string preferences.
var (
	validThemes     = map[string]bool{"dark": true, "light": true}
	validModes      = map[string]bool{"compact": true, "expanded": true}
	validAnimations = map[string]bool{"genie": true, "fade": true, "none": true}
)

// Preference validation errors.
var (
	// ErrInvalidTheme is returned for themes other than "dark" or "light".
	ErrInvalidTheme = errors.New("invalid theme: must be \"dark\" or \"light\"")

	// ErrInvalidMode is returned for display modes other than "compact" or
	// "expanded".
	ErrInvalidMode = errors.New("invalid default mode: must be \"compact\" or \"expanded\"")

	// ErrInvalidAnimation is returned for unknown animation names.
	ErrInvalidAnimation = errors.New("invalid animation: must be \"genie\", \"fade\", or \"none\"")

	// ErrInvalidThreshold is returned when the threshold is outside [0,100].
	ErrInvalidThreshold = errors.New("invalid threshold: must be in [0,1] or percentage form in (1,100]")
)

// State holds the user-adjustable preferences.
// Fields use YAML tags matching the on-disk preference file format.
type State struct {
	// Threshold is the minimum risk score for surfacing an anchor.
	// Stored in either [0,1] or percentage form; Normalized() converts.
	Threshold float64 `yaml:"threshold"`

	// PauseScanning disables scoring while keeping the session alive.
	// A paused scan produces a placeholder result instead of scores.
	PauseScanning bool `yaml:"pauseScanning"`

	// Theme is the overlay color theme ("dark" or "light").
	Theme string `yaml:"theme"`

	// DefaultMode controls the initial result presentation
	// ("compact" or "expanded"). In expanded mode results are shown even
	// below the threshold, unless the overlay was dismissed.
	DefaultMode string `yaml:"defaultMode"`

	// Animation is the overlay reveal animation ("genie", "fade", "none").
	// Cosmetic only; carried so external tools share one preference file.
	Animation string `yaml:"animation"`
}

// DefaultState returns the preferences applied when no file exists.
func DefaultState() State {
	return State{
		Threshold:     DefaultThreshold,
		PauseScanning: false,
		Theme:         DefaultTheme,
		DefaultMode:   DefaultMode,
		Animation:     DefaultAnimation,
	}
}

// NormalizedThreshold returns the threshold mapped into [0,1].
// Values above 1 are treated as percentages, so a stored 60 becomes 0.6.
func (s State) NormalizedThreshold() float64 {
	return model.NormalizeScore(s.Threshold)
}

// Expanded reports whether results default to the expanded presentation.
func (s State) Expanded() bool {
	return s.DefaultMode == "expanded"
}

// Validate checks the preference values and returns the first problem found.
// Empty string fields are allowed; they fall back to defaults on load.
func (s State) Validate() error {
	if s.Threshold < 0 || s.Threshold > 100 {
		return ErrInvalidThreshold
	}
	if s.Theme != "" && !validThemes[s.Theme] {
		return ErrInvalidTheme
	}
	if s.DefaultMode != "" && !validModes[s.DefaultMode] {
		return ErrInvalidMode
	}
	if s.Animation != "" && !validAnimations[s.Animation] {
		return ErrInvalidAnimation
	}
	return nil
}

// withDefaults fills empty fields with their default values.
// A zero threshold is preserved: 0 is a meaningful "show everything" choice.
func (s State) withDefaults() State {
	if s.Theme == "" {
		s.Theme = DefaultTheme
	}
	if s.DefaultMode == "" {
		s.DefaultMode = DefaultMode
	}
	if s.Animation == "" {
		s.Animation = DefaultAnimation
	}
	return s
}
