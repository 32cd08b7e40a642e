package recognizer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/izyuumi/koe/internal/session"
)

// HelperName is the recognition helper binary looked up when no path is configured.
const HelperName = "koe-speech-helper"

// ErrHelperNotFound reports that no helper binary could be located.
var ErrHelperNotFound = errors.New("speech helper not found")

// ResolveHelperPath returns explicit when set, otherwise searches next to the running
// executable, its ../lib/koe and ../Resources siblings, and finally PATH.
func ResolveHelperPath(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return expandUserPath(explicit), nil
	}

	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		for _, candidate := range []string{
			filepath.Join(dir, HelperName),
			filepath.Join(dir, "..", "lib", "koe", HelperName),
			filepath.Join(dir, "..", "Resources", HelperName),
		} {
			if isExecutableFile(candidate) {
				return filepath.Clean(candidate), nil
			}
		}
	}

	path, err := exec.LookPath(HelperName)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not next to the executable or in PATH", ErrHelperNotFound, HelperName)
	}
	return path, nil
}

// BuildArgs encodes the run settings as helper argv.
func BuildArgs(req session.Request, extra []string) []string {
	args := []string{"--language", req.Language}
	if req.OnDeviceOnly {
		args = append(args, "--on-device")
	}
	return append(args, extra...)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

func expandUserPath(raw string) string {
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(raw, "~"), "/"))
}
