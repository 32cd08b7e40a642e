// Package cli parses koe's command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun      Command = "run"
	CommandStart    Command = "start"
	CommandStop     Command = "stop"
	CommandToggle   Command = "toggle"
	CommandStatus   Command = "status"
	CommandSettings Command = "settings"
	CommandEvents   Command = "events"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:      {},
	CommandStart:    {},
	CommandStop:     {},
	CommandToggle:   {},
	CommandStatus:   {},
	CommandSettings: {},
	CommandEvents:   {},
	CommandDoctor:   {},
	CommandVersion:  {},
	CommandHelp:     {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	// Language and OnDevice are the operands of "settings". OnDevice is nil
	// when the mode operand is omitted.
	Language string
	OnDevice *bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			rest := args[i+1:]
			if cmd == CommandSettings {
				if err := parseSettings(&parsed, rest); err != nil {
					return Parsed{}, err
				}
				return parsed, nil
			}
			if len(rest) > 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

// parseSettings reads "LANGUAGE [on-device|server]".
func parseSettings(parsed *Parsed, operands []string) error {
	if len(operands) == 0 {
		return errors.New("settings requires a LANGUAGE operand")
	}
	if len(operands) > 2 {
		return fmt.Errorf("unexpected arguments after settings %q", strings.Join(operands[2:], " "))
	}

	parsed.Language = strings.TrimSpace(operands[0])
	if parsed.Language == "" || strings.HasPrefix(parsed.Language, "-") {
		return fmt.Errorf("invalid LANGUAGE operand %q", operands[0])
	}
	if len(operands) == 1 {
		return nil
	}

	var onDevice bool
	switch strings.ToLower(strings.TrimSpace(operands[1])) {
	case "on-device", "ondevice", "local":
		onDevice = true
	case "server", "network":
		onDevice = false
	default:
		return fmt.Errorf("recognition mode must be on-device or server, got %q", operands[1])
	}
	parsed.OnDevice = &onDevice
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  run                               Run the dictation daemon (hotkey, helper, clipboard)
  start                             Start listening
  stop                              Stop listening and paste the transcript
  toggle                            Stop when listening, start otherwise
  status                            Print current state and settings
  settings LANGUAGE [on-device|server]
                                    Set recognition language and mode for the next start
  events                            Stream session events as JSON lines
  doctor                            Run configuration and environment checks
  version                           Print version information
  help                              Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/koe/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
