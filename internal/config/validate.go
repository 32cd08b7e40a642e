package config

import (
	"fmt"
	"slices"
	"strings"
)

// HotkeyKeys lists the physical modifier keys accepted as the designated gesture key.
var HotkeyKeys = []string{"lctrl", "rctrl", "lalt", "ralt", "lshift", "rshift", "lsuper", "rsuper"}

var shortcutModifiers = []string{"ctrl", "alt", "shift", "super"}

// Validate enforces config constraints and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if _, err := NormalizeLanguage(cfg.Speech.Language); err != nil {
		return nil, fmt.Errorf("speech.language: %w", err)
	}
	if cfg.Helper.FinalGraceMS < 0 {
		return nil, fmt.Errorf("helper.final_grace_ms must be >= 0")
	}
	if cfg.Helper.FinalGraceMS > 5000 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("helper.final_grace_ms=%d delays every stop; consider <= 1000", cfg.Helper.FinalGraceMS)})
	}

	if cfg.Hotkey.Enable {
		if !slices.Contains(HotkeyKeys, cfg.Hotkey.Key) {
			return nil, fmt.Errorf("hotkey.key must be one of: %s", strings.Join(HotkeyKeys, ", "))
		}
		if cfg.Hotkey.RetryIntervalMS <= 0 {
			return nil, fmt.Errorf("hotkey.retry_interval_ms must be > 0")
		}
	}
	if cfg.Hotkey.Shortcut != "" {
		if err := validateShortcut(cfg.Hotkey.Shortcut); err != nil {
			return nil, fmt.Errorf("hotkey.shortcut: %w", err)
		}
	}

	if cfg.Paste.Enable && cfg.PasteCmd.Raw != "" && len(cfg.PasteCmd.Argv) == 0 {
		return nil, fmt.Errorf("paste_cmd is configured but empty")
	}
	if cfg.Paste.Enable && len(cfg.PasteCmd.Argv) == 0 && strings.TrimSpace(cfg.Paste.Shortcut) == "" {
		return nil, fmt.Errorf("paste.shortcut must not be empty when paste.enable=true and paste_cmd is unset")
	}
	if cfg.Paste.TimeoutMS <= 0 {
		return nil, fmt.Errorf("paste.timeout_ms must be > 0")
	}

	if cfg.Insertion.RestoreDelayMS < 0 {
		return nil, fmt.Errorf("insertion.restore_delay_ms must be >= 0")
	}
	if len([]rune(cfg.Insertion.Padding)) > 1 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("insertion.padding %q is longer than one character", cfg.Insertion.Padding)})
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	return warnings, nil
}

// validateShortcut checks the "mod+mod+key" shape; key names are resolved by the hook backend.
func validateShortcut(raw string) error {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "+")
	if len(parts) < 2 {
		return fmt.Errorf("%q must combine at least one modifier with a key", raw)
	}
	for _, part := range parts[:len(parts)-1] {
		if !slices.Contains(shortcutModifiers, strings.TrimSpace(part)) {
			return fmt.Errorf("unknown modifier %q (want one of: %s)", part, strings.Join(shortcutModifiers, ", "))
		}
	}
	if strings.TrimSpace(parts[len(parts)-1]) == "" {
		return fmt.Errorf("%q is missing a key", raw)
	}
	return nil
}
