package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/izyuumi/koe/internal/config"
	"github.com/izyuumi/koe/internal/eventstream"
	"github.com/izyuumi/koe/internal/gesture"
	"github.com/izyuumi/koe/internal/indicator"
	"github.com/izyuumi/koe/internal/ipc"
	"github.com/izyuumi/koe/internal/output"
	"github.com/izyuumi/koe/internal/recognizer"
	"github.com/izyuumi/koe/internal/session"
)

const helperCloseTimeout = 2 * time.Second

// commandRun owns the session until ctx is cancelled.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: koe is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	manager := recognizer.NewManager(recognizer.Config{
		HelperPath: cfg.Helper.Path,
		ExtraArgs:  cfg.Helper.Args.Argv,
		FinalGrace: time.Duration(cfg.Helper.FinalGraceMS) * time.Millisecond,
	}, logger)
	defer manager.Close(helperCloseTimeout)

	state := session.NewState(session.Settings{
		Language:     cfg.Speech.Language,
		OnDeviceOnly: cfg.Speech.OnDeviceOnly,
	})
	controller := session.NewController(logger, state, manager, output.NewFromConfig(cfg, logger), cfg.Insertion.Padding)
	defer controller.Shutdown()

	daemonCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	if cfg.Indicator.Enable || cfg.Indicator.SoundEnable {
		notifier := indicator.New(cfg.Indicator, logger)
		unsubscribe := controller.Subscribe(notifier.Handle)
		defer unsubscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			notifier.Run(daemonCtx)
		}()
	}

	if cfg.Hotkey.Enable {
		backend, err := startGestures(daemonCtx, &wg, cfg.Hotkey, controller, logger)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		defer func() {
			cancel()
			backend.Close()
		}()
	}

	if cfg.Events.Enable {
		if err := startEventStream(daemonCtx, &wg, controller, logger); err != nil {
			// The event stream is optional; the command socket keeps working.
			fmt.Fprintf(r.Stderr, "warning: %v\n", err)
			logger.Warn("event stream unavailable", "error", err.Error())
		}
	}

	logger.Info("daemon ready",
		"socket", socketPath,
		"language", cfg.Speech.Language,
		"on_device", cfg.Speech.OnDeviceOnly,
		"hotkey", cfg.Hotkey.Enable,
	)

	if err := ipc.Serve(daemonCtx, listener, controller); err != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		return 1
	}

	logger.Info("daemon stopping")
	return 0
}

// startGestures installs the tap detector and fallback shortcut monitors and
// keeps retrying registration in the background.
func startGestures(
	ctx context.Context,
	wg *sync.WaitGroup,
	cfg config.HotkeyConfig,
	controller *session.Controller,
	logger *slog.Logger,
) (*gesture.HookBackend, error) {
	key, err := gesture.ParseKey(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("hotkey.key: %w", err)
	}

	toggle := func() {
		go func() {
			if _, err := controller.Toggle(ctx); err != nil {
				logger.Warn("hotkey toggle failed", "error", err.Error())
			}
		}()
	}

	backend := gesture.NewHookBackend(logger)
	detector := gesture.NewDetector(key, toggle)
	monitors := []gesture.Monitor{
		gesture.ObserverMonitor(backend, detector),
		gesture.InterceptorMonitor(backend, detector),
	}

	if cfg.Shortcut != "" {
		shortcut, err := gesture.ParseShortcut(cfg.Shortcut, gesture.LookupKey)
		if err != nil {
			logger.Warn("fallback shortcut disabled", "shortcut", cfg.Shortcut, "error", err.Error())
		} else {
			monitors = append(monitors, gesture.ShortcutMonitor(backend, shortcut, toggle))
		}
	}

	interval := time.Duration(cfg.RetryIntervalMS) * time.Millisecond
	registrar := gesture.NewRegistrar(nil, interval, logger, monitors...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := registrar.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("hotkey registration stopped", "error", err.Error())
		}
	}()

	return backend, nil
}

func startEventStream(ctx context.Context, wg *sync.WaitGroup, controller *session.Controller, logger *slog.Logger) error {
	path, err := ipc.EventSocketPath()
	if err != nil {
		return err
	}
	listener, err := eventstream.Listen(path)
	if err != nil {
		return err
	}

	server := eventstream.NewServer(controller, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() { _ = os.Remove(path) }()
		if err := server.Serve(ctx, listener); err != nil {
			logger.Error("event stream stopped", "error", err.Error())
		}
	}()
	return nil
}
