// Package doctor runs runtime readiness diagnostics for config, the speech helper, and desktop tools.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/izyuumi/koe/internal/config"
	"github.com/izyuumi/koe/internal/output"
	"github.com/izyuumi/koe/internal/recognizer"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	checks = append(checks, checkHelper(cfg.Config.Helper.Path))
	checks = append(checks, checkClipboard(output.Available()))

	if cfg.Config.Paste.Enable {
		if len(cfg.Config.PasteCmd.Argv) > 0 {
			checks = append(checks, checkCommand(cfg.Config.PasteCmd.Argv, "paste_cmd"))
		} else {
			checks = append(checks, checkBinary("hyprctl", "default paste path requires hyprctl"))
		}
	}

	if cfg.Config.Hotkey.Enable {
		checks = append(checks, checkEnv("DISPLAY", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "global key hook can attach", "DISPLAY is empty; hotkey monitors will keep retrying"))
	}

	if cfg.Config.Indicator.Enable {
		if strings.EqualFold(cfg.Config.Indicator.Backend, "desktop") {
			checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
		} else {
			checks = append(checks, checkBinary("hyprctl", "indicator uses hyprctl notify"))
		}
	}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "command and event sockets can be created", "XDG_RUNTIME_DIR is empty"))

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	speech := cfg.Config.Speech.Language
	if cfg.Config.Speech.OnDeviceOnly {
		speech += ", on-device"
	}
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("defaults (%q not found; %s)", cfg.Path, speech)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q (%s)", cfg.Path, speech)}
}

// checkHelper resolves the helper the way the daemon does and confirms it is executable.
func checkHelper(explicit string) Check {
	path, err := recognizer.ResolveHelperPath(explicit)
	if err != nil {
		return Check{Name: "helper", Pass: false, Message: err.Error()}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "helper", Pass: false, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return Check{Name: "helper", Pass: false, Message: fmt.Sprintf("%s is not executable", path)}
	}
	return Check{Name: "helper", Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

func checkClipboard(available bool) Check {
	if !available {
		return Check{Name: "clipboard", Pass: false, Message: "no clipboard utility found (install wl-clipboard, xclip, or xsel)"}
	}
	return Check{Name: "clipboard", Pass: true, Message: "clipboard utility available"}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
