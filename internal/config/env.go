package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// envOverrides lists the KOE_* variables that override file values.
type envOverrides struct {
	Language     string `env:"KOE_LANGUAGE"`
	OnDevice     bool   `env:"KOE_ON_DEVICE"`
	HelperPath   string `env:"KOE_HELPER_PATH"`
	HotkeyKey    string `env:"KOE_HOTKEY_KEY"`
	HotkeyEnable bool   `env:"KOE_HOTKEY_ENABLE"`
	PasteEnable  bool   `env:"KOE_PASTE_ENABLE"`
}

// loadEnvironment merges the optional dotenv file underneath the process environment.
func loadEnvironment(envFile string) (map[string]string, error) {
	merged := make(map[string]string)

	if strings.TrimSpace(envFile) != "" {
		fileValues, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file %q: %w", envFile, err)
		}
		for key, value := range fileValues {
			merged[key] = value
		}
	}

	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		merged[key] = value
	}
	return merged, nil
}

// applyEnv overlays KOE_* values present in environ onto cfg.
func applyEnv(cfg *Config, environ map[string]string) ([]Warning, error) {
	var overrides envOverrides
	if err := env.Parse(&overrides, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment overrides: %w", err)
	}

	warnings := make([]Warning, 0)
	present := func(key string) bool {
		_, ok := environ[key]
		return ok
	}

	if present("KOE_LANGUAGE") {
		cfg.Speech.Language = strings.TrimSpace(overrides.Language)
	}
	if present("KOE_ON_DEVICE") {
		cfg.Speech.OnDeviceOnly = overrides.OnDevice
	}
	if present("KOE_HELPER_PATH") {
		cfg.Helper.Path = strings.TrimSpace(overrides.HelperPath)
	}
	if present("KOE_HOTKEY_KEY") {
		cfg.Hotkey.Key = strings.ToLower(strings.TrimSpace(overrides.HotkeyKey))
	}
	if present("KOE_HOTKEY_ENABLE") {
		cfg.Hotkey.Enable = overrides.HotkeyEnable
	}
	if present("KOE_PASTE_ENABLE") {
		cfg.Paste.Enable = overrides.PasteEnable
		if !overrides.PasteEnable {
			warnings = append(warnings, Warning{Message: "paste disabled by KOE_PASTE_ENABLE; transcripts stay on the clipboard"})
		}
	}

	return warnings, nil
}
