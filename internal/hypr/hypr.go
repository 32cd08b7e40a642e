// Package hypr wraps the hyprctl calls used for paste targeting and notifications.
package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// hyprctl runs one hyprctl invocation and returns its combined output. On
// failure the output is folded into the error.
func hyprctl(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err != nil {
		if detail := strings.TrimSpace(string(out)); detail != "" {
			return nil, fmt.Errorf("hyprctl %s failed: %w (%s)", strings.Join(args, " "), err, detail)
		}
		return nil, fmt.Errorf("hyprctl %s failed: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// dispatch runs "hyprctl --quiet dispatch <name> <args...>".
func dispatch(ctx context.Context, name string, args ...string) error {
	_, err := hyprctl(ctx, append([]string{"--quiet", "dispatch", name}, args...)...)
	return err
}

// query decodes the JSON output of "hyprctl -j <target>" into v.
func query(ctx context.Context, target string, v any) error {
	out, err := hyprctl(ctx, "-j", target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("decode hyprctl %s json: %w", target, err)
	}
	return nil
}
