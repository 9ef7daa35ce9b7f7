//go:build windows

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/robotinput"
	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/syshotkey"
	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/wininput"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

func backendHelp() string {
	return "Input backend: auto|hooks|system|robot. hooks (default) uses low-level keyboard/mouse hooks and supports mouse-button hotkeys; system uses RegisterHotKey; robot clicks with robotgo."
}

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" {
		backend = "auto"
	}
	switch backend {
	case "auto", "hooks", "windows", "system", "robot":
		return backend, nil
	default:
		return "", fmt.Errorf("invalid --backend %q (windows supports auto|hooks|system|robot)", value)
	}
}

func permissionDeniedHint() string {
	return "Permission denied registering global input hooks. Run as Administrator and ensure input-hooking is allowed."
}

func openBackend(cfg config, logger *slog.Logger) (*backend, error) {
	if cfg.devicePath != "" {
		logger.Warn("--device is ignored on Windows; using global keyboard/mouse hooks")
	}

	var port macro.InputPort
	if cfg.backend == "robot" {
		if !robotinput.Available {
			return nil, fmt.Errorf("robot backend needs a cgo build")
		}
		rp, err := robotinput.NewInputPort()
		if err != nil {
			return nil, err
		}
		port = rp
	} else {
		wp, err := wininput.NewInputPort()
		if err != nil {
			return nil, err
		}
		port = wp
	}

	if cfg.backend == "system" {
		binder, err := syshotkey.NewBinder(logger)
		if err != nil {
			return nil, err
		}
		b := &backend{name: "system", port: port, binder: binder, capturer: wininput.PollCapturer{}}
		b.onClose(binder.Close)
		return b, nil
	}

	hooks, err := wininput.NewHookBinder(logger)
	if err != nil {
		return nil, err
	}
	name := "hooks"
	if cfg.backend == "robot" {
		name = "robot"
	}
	b := &backend{name: name, port: port, binder: hooks, capturer: hooks}
	b.onClose(hooks.Close)
	return b, nil
}

func listInputDevices(w io.Writer, _ string) error {
	fmt.Fprintln(w, "hooks: global low-level keyboard and mouse hooks [all devices]")
	fmt.Fprintln(w, "Windows does not distinguish input devices; --device is ignored.")
	return nil
}
