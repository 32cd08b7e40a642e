package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/koe.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/koe.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help long flag",
			args:     []string{"--help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "version flag",
			args:     []string{"--version"},
			wantCmd:  CommandVersion,
			wantHelp: false,
		},
		{
			name:    "config after command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"cancel"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:     "run daemon",
			args:     []string{"run"},
			wantCmd:  CommandRun,
			wantHelp: false,
		},
		{
			name:     "events stream",
			args:     []string{"events"},
			wantCmd:  CommandEvents,
			wantHelp: false,
		},
		{
			name:     "valid stop with config",
			args:     []string{"--config", "/tmp/cfg", "stop"},
			wantCmd:  CommandStop,
			wantHelp: false,
			wantPath: "/tmp/cfg",
		},
		{
			name:    "settings without language",
			args:    []string{"settings"},
			wantErr: "requires a LANGUAGE",
		},
		{
			name:    "settings with bad mode",
			args:    []string{"settings", "en-US", "cloud"},
			wantErr: "on-device or server",
		},
		{
			name:    "settings with too many operands",
			args:    []string{"settings", "en-US", "server", "extra"},
			wantErr: "unexpected arguments after settings",
		},
		{
			name:    "settings with flag as language",
			args:    []string{"settings", "--config"},
			wantErr: "invalid LANGUAGE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
		})
	}
}

func TestParseSettingsOperands(t *testing.T) {
	parsed, err := Parse([]string{"settings", "ja-JP"})
	require.NoError(t, err)
	require.Equal(t, CommandSettings, parsed.Command)
	require.Equal(t, "ja-JP", parsed.Language)
	require.Nil(t, parsed.OnDevice)

	parsed, err = Parse([]string{"--config", "/tmp/cfg", "settings", "en_GB", "server"})
	require.NoError(t, err)
	require.Equal(t, "en_GB", parsed.Language)
	require.NotNil(t, parsed.OnDevice)
	require.False(t, *parsed.OnDevice)
	require.Equal(t, "/tmp/cfg", parsed.ConfigPath)

	parsed, err = Parse([]string{"settings", "de-DE", "On-Device"})
	require.NoError(t, err)
	require.True(t, *parsed.OnDevice)
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("koe")
	for _, want := range []string{"run", "start", "stop", "toggle", "settings LANGUAGE", "events", "doctor", "--config PATH"} {
		require.Contains(t, text, want)
	}
}
