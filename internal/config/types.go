// Package config resolves, parses, validates, and defaults koe configuration.
package config

// Config is the fully materialized runtime configuration used by koe.
type Config struct {
	Speech    SpeechConfig
	Helper    HelperConfig
	Hotkey    HotkeyConfig
	Paste     PasteConfig
	PasteCmd  CommandConfig
	Insertion InsertionConfig
	Indicator IndicatorConfig
	Events    EventsConfig
}

// SpeechConfig holds the session defaults applied at daemon start.
type SpeechConfig struct {
	Language     string
	OnDeviceOnly bool
}

// HelperConfig locates and parameterizes the recognition helper subprocess.
type HelperConfig struct {
	Path         string
	Args         CommandConfig
	FinalGraceMS int
}

// HotkeyConfig controls global gesture detection.
type HotkeyConfig struct {
	Enable          bool
	Key             string
	Shortcut        string
	RetryIntervalMS int
}

// PasteConfig controls paste synthesis into the focused window.
type PasteConfig struct {
	Enable    bool
	Shortcut  string
	TimeoutMS int
}

// InsertionConfig controls clipboard-mediated transcript insertion.
type InsertionConfig struct {
	Padding        string
	RestoreDelayMS int
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	SoundStartFile string
	SoundStopFile  string
	SoundErrorFile string
	TextListening  string
	TextError      string
	ErrorTimeoutMS int
}

// EventsConfig controls the outbound event stream socket.
type EventsConfig struct {
	Enable bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
