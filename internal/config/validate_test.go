package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty language", mutate: func(c *Config) { c.Speech.Language = "" }, wantErr: "speech.language"},
		{name: "malformed language", mutate: func(c *Config) { c.Speech.Language = "not a tag" }, wantErr: "invalid language tag"},
		{name: "negative final grace", mutate: func(c *Config) { c.Helper.FinalGraceMS = -1 }, wantErr: "final_grace_ms"},
		{name: "unknown hotkey key", mutate: func(c *Config) { c.Hotkey.Key = "fn" }, wantErr: "hotkey.key"},
		{name: "zero retry interval", mutate: func(c *Config) { c.Hotkey.RetryIntervalMS = 0 }, wantErr: "retry_interval_ms"},
		{name: "shortcut without modifier", mutate: func(c *Config) { c.Hotkey.Shortcut = "space" }, wantErr: "at least one modifier"},
		{name: "shortcut unknown modifier", mutate: func(c *Config) { c.Hotkey.Shortcut = "hyper+space" }, wantErr: "unknown modifier"},
		{name: "shortcut missing key", mutate: func(c *Config) { c.Hotkey.Shortcut = "alt+" }, wantErr: "missing a key"},
		{name: "paste command raw but empty argv", mutate: func(c *Config) {
			c.Paste.Enable = true
			c.PasteCmd.Raw = "mycmd"
			c.PasteCmd.Argv = nil
		}, wantErr: "paste_cmd"},
		{name: "missing paste shortcut when using default paste", mutate: func(c *Config) {
			c.Paste.Enable = true
			c.PasteCmd = CommandConfig{}
			c.Paste.Shortcut = ""
		}, wantErr: "paste.shortcut"},
		{name: "zero paste timeout", mutate: func(c *Config) { c.Paste.TimeoutMS = 0 }, wantErr: "paste.timeout_ms"},
		{name: "negative restore delay", mutate: func(c *Config) { c.Insertion.RestoreDelayMS = -5 }, wantErr: "restore_delay_ms"},
		{name: "unknown indicator backend", mutate: func(c *Config) { c.Indicator.Backend = "tray" }, wantErr: "indicator.backend"},
		{name: "desktop backend without app name", mutate: func(c *Config) {
			c.Indicator.Backend = "desktop"
			c.Indicator.DesktopAppName = " "
		}, wantErr: "desktop_app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateSkipsHotkeyKeyWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.Hotkey.Enable = false
	cfg.Hotkey.Key = "fn"

	_, err := Validate(cfg)
	require.NoError(t, err)
}

func TestValidateWarnsOnLongPaddingAndGrace(t *testing.T) {
	cfg := Default()
	cfg.Insertion.Padding = "  "
	cfg.Helper.FinalGraceMS = 6000

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "en-US", want: "en-US"},
		{input: "en_us", want: "en-US"},
		{input: " ja-jp ", want: "ja-JP"},
		{input: "fr", want: "fr"},
		{input: "", wantErr: true},
		{input: "und", wantErr: true},
		{input: "not a tag", wantErr: true},
	}

	for _, tc := range tests {
		got, err := NormalizeLanguage(tc.input)
		if tc.wantErr {
			require.Error(t, err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		require.Equal(t, tc.want, got, tc.input)
	}
}
