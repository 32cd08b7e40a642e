package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Speech: SpeechConfig{
			Language:     "en-US",
			OnDeviceOnly: true,
		},
		Helper: HelperConfig{},
		Hotkey: HotkeyConfig{
			Enable:          true,
			Key:             "rctrl",
			Shortcut:        "alt+space",
			RetryIntervalMS: 3000,
		},
		Paste: PasteConfig{Enable: true, Shortcut: "CTRL,V", TimeoutMS: 1200},
		Insertion: InsertionConfig{
			Padding:        " ",
			RestoreDelayMS: 200,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "koe-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Events: EventsConfig{Enable: true},
	}
}
