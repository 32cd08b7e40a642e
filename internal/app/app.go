// Package app dispatches koe commands and wires the owner daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/izyuumi/koe/internal/cli"
	"github.com/izyuumi/koe/internal/config"
	"github.com/izyuumi/koe/internal/doctor"
	"github.com/izyuumi/koe/internal/events"
	"github.com/izyuumi/koe/internal/eventstream"
	"github.com/izyuumi/koe/internal/ipc"
	"github.com/izyuumi/koe/internal/logging"
	"github.com/izyuumi/koe/internal/version"
)

const (
	statusTimeout = 220 * time.Millisecond
	// stop and toggle wait for paste dispatch and the clipboard restore delay.
	commandTimeout = 5 * time.Second
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("koe"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("koe"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStart:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStart})
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStop})
	case cli.CommandToggle:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandToggle})
	case cli.CommandSettings:
		return r.forwardOrFail(ctx, ipc.Request{
			Command:  ipc.CommandSettings,
			Language: parsed.Language,
			OnDevice: parsed.OnDevice,
		})
	case cli.CommandEvents:
		return r.commandEvents(ctx)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: koe is not running (start it with \"koe run\")\n")
		return 1
	}
	if err != nil {
		// A failed insertion still hands back the transcript.
		if resp.Transcript != "" {
			fmt.Fprintln(r.Stdout, resp.Transcript)
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	r.printResponse(req.Command, resp)
	return 0
}

func (r Runner) printResponse(command string, resp ipc.Response) {
	switch {
	case resp.Transcript != "":
		fmt.Fprintln(r.Stdout, resp.Transcript)
	case command == ipc.CommandSettings:
		mode := "server"
		if resp.OnDevice != nil && *resp.OnDevice {
			mode = "on-device"
		}
		fmt.Fprintf(r.Stdout, "%s %s\n", resp.Language, mode)
	case resp.Message != "":
		fmt.Fprintln(r.Stdout, resp.Message)
	}
}

func (r Runner) commandEvents(ctx context.Context) int {
	socketPath, err := ipc.EventSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	err = eventstream.Subscribe(ctx, socketPath, func(ev events.Event) error {
		line, marshalErr := eventstream.MarshalJSON(ev)
		if marshalErr != nil {
			return marshalErr
		}
		_, writeErr := fmt.Fprintln(r.Stdout, string(line))
		return writeErr
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	timeout := commandTimeout
	if req.Command == ipc.CommandStatus {
		timeout = statusTimeout
	}
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.Unavailable(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
