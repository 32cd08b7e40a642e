package session

import (
	"context"
	"fmt"

	"github.com/izyuumi/koe/internal/fsm"
	"github.com/izyuumi/koe/internal/ipc"
)

// Handle serves IPC commands for the owner daemon.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		settings := c.Settings()
		return c.response(ipc.Response{OK: true, Message: "status", Language: settings.Language, OnDevice: boolPtr(settings.OnDeviceOnly)})
	case ipc.CommandStart:
		wasListening := c.State() == fsm.StateListening
		if err := c.Start(ctx); err != nil {
			return c.response(ipc.Response{OK: false, Error: err.Error()})
		}
		if wasListening {
			return c.response(ipc.Response{OK: true, Message: "already listening"})
		}
		return c.response(ipc.Response{OK: true, Message: "listening"})
	case ipc.CommandStop:
		transcript, err := c.Stop(ctx)
		if err != nil {
			return c.response(ipc.Response{OK: false, Error: err.Error(), Transcript: transcript})
		}
		return c.response(ipc.Response{OK: true, Transcript: transcript})
	case ipc.CommandToggle:
		transcript, err := c.Toggle(ctx)
		if err != nil {
			return c.response(ipc.Response{OK: false, Error: err.Error(), Transcript: transcript})
		}
		return c.response(ipc.Response{OK: true, Transcript: transcript})
	case ipc.CommandSettings:
		onDevice := c.Settings().OnDeviceOnly
		if req.OnDevice != nil {
			onDevice = *req.OnDevice
		}
		language := req.Language
		if language == "" {
			language = c.Settings().Language
		}
		settings, err := c.SetSettings(language, onDevice)
		if err != nil {
			return c.response(ipc.Response{OK: false, Error: err.Error()})
		}
		return c.response(ipc.Response{
			OK:       true,
			Message:  "settings updated",
			Language: settings.Language,
			OnDevice: boolPtr(settings.OnDeviceOnly),
		})
	default:
		return c.response(ipc.Response{OK: false, Error: fmt.Sprintf("unknown command: %s", req.Command)})
	}
}

// response stamps the post-command state onto resp.
func (c *Controller) response(resp ipc.Response) ipc.Response {
	resp.State = string(c.State())
	return resp
}

func boolPtr(v bool) *bool {
	return &v
}
