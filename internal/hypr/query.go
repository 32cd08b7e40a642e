package hypr

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

const defaultNotifyColor = "rgb(89b4fa)"

// ActiveWindow identifies the paste target.
type ActiveWindow struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
	PID          int    `json:"pid"`
}

// QueryActiveWindow fetches the focused window; an empty address is an error.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	var window ActiveWindow
	if err := query(ctx, "activewindow", &window); err != nil {
		return ActiveWindow{}, err
	}
	window.Address = strings.TrimSpace(window.Address)
	window.Class = strings.TrimSpace(window.Class)
	window.InitialClass = strings.TrimSpace(window.InitialClass)
	if window.Address == "" {
		return ActiveWindow{}, errors.New("hyprctl activewindow returned empty address (no focused window)")
	}
	return window, nil
}

// SendShortcut dispatches a sendshortcut payload such as "CTRL,V,address:0x1".
func SendShortcut(ctx context.Context, shortcut string) error {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return errors.New("sendshortcut requires a non-empty payload")
	}
	return dispatch(ctx, "sendshortcut", shortcut)
}

// Notify shows a Hyprland notification. Text is collapsed to one line since
// helper error messages may span several.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = defaultNotifyColor
	}
	return dispatch(ctx, "notify", strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, strings.Join(strings.Fields(text), " "))
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	return dispatch(ctx, "dismissnotify")
}
