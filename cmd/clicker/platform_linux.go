//go:build linux

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/linuxinput"
	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/robotinput"
	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/x11input"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

func backendHelp() string {
	return "Input backend: auto|x11|evdev|wayland|robot. evdev reads /dev/input directly and clicks through /dev/uinput; robot reads evdev hotkeys and clicks with robotgo (cgo builds)."
}

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" {
		backend = "auto"
	}
	switch backend {
	case "auto", "x11", "evdev", "wayland", "robot":
		return backend, nil
	default:
		return "", fmt.Errorf("invalid --backend %q (linux supports auto|x11|evdev|robot)", value)
	}
}

func permissionDeniedHint() string {
	return "Permission denied opening input backend. The evdev backend needs read access to /dev/input and write access to /dev/uinput (input group or a udev rule). On X11 ensure DISPLAY is set."
}

func openBackend(cfg config, logger *slog.Logger) (*backend, error) {
	switch resolveLinuxBackend(cfg.backend) {
	case "x11":
		return openX11Backend(cfg, logger)
	case "robot":
		return openRobotBackend(cfg, logger)
	default:
		return openEvdevBackend(cfg, logger)
	}
}

func openX11Backend(cfg config, logger *slog.Logger) (*backend, error) {
	if cfg.devicePath != "" {
		logger.Warn("--device is ignored on X11 backend")
	}
	sess, err := x11input.Open(logger)
	if err != nil {
		return nil, err
	}
	b := &backend{name: "x11", port: sess, binder: sess, capturer: sess}
	b.onClose(sess.Close)
	return b, nil
}

// openEvdevBackend reads hotkeys from evdev and clicks through uinput. uinput cannot place
// an absolute cursor, so positioning comes from X11 (XWayland) or robotgo.
func openEvdevBackend(cfg config, logger *slog.Logger) (*backend, error) {
	b := &backend{name: "evdev"}

	binder, err := linuxinput.NewBinder(cfg.devicePath, logger)
	if err != nil {
		return nil, err
	}
	b.binder = binder
	b.capturer = binder
	b.onClose(binder.Close)

	injector, err := linuxinput.NewInjector()
	if err != nil {
		b.Close()
		return nil, err
	}
	b.onClose(injector.Close)

	positioner, closePositioner, err := openPositioner(logger)
	if err != nil {
		b.Close()
		return nil, err
	}
	if closePositioner != nil {
		b.onClose(closePositioner)
	}
	b.port = linuxinput.NewPort(positioner, injector)
	return b, nil
}

func openRobotBackend(cfg config, logger *slog.Logger) (*backend, error) {
	if !robotinput.Available {
		return nil, fmt.Errorf("robot backend needs a cgo build")
	}
	port, err := robotinput.NewInputPort()
	if err != nil {
		return nil, err
	}
	binder, err := linuxinput.NewBinder(cfg.devicePath, logger)
	if err != nil {
		return nil, err
	}
	b := &backend{name: "robot", port: port, binder: binder, capturer: binder}
	b.onClose(binder.Close)
	return b, nil
}

func openPositioner(logger *slog.Logger) (linuxinput.Positioner, func() error, error) {
	if strings.TrimSpace(os.Getenv("DISPLAY")) != "" {
		sess, err := x11input.Open(logger)
		if err == nil {
			return sess, sess.Close, nil
		}
		logger.Warn("X11 positioning unavailable", "err", err)
	}
	if robotinput.Available {
		port, err := robotinput.NewInputPort()
		if err == nil {
			return port, nil, nil
		}
		logger.Warn("robotgo positioning unavailable", "err", err)
	}
	return nil, nil, fmt.Errorf("no way to move the cursor: run under X11/XWayland or build with cgo for robotgo")
}

var _ macro.InputPort = (*linuxinput.Port)(nil)

func listInputDevices(w io.Writer, backend string) error {
	if resolveLinuxBackend(backend) == "x11" {
		// X11 grabs on the root window; there is no per-device choice.
		fmt.Fprintln(w, "x11: X11 global input [physical, pointer]")
		return nil
	}
	devices, err := linuxinput.ListInputDevices()
	if err != nil {
		return err
	}
	for _, dev := range devices {
		virtualTag := "physical"
		if dev.IsVirtual {
			virtualTag = "virtual"
		}
		pointerTag := "non-pointer"
		if dev.IsPointer {
			pointerTag = "pointer"
		}
		keysTag := "no-keys"
		if dev.HasKeys {
			keysTag = "keys"
		}
		fmt.Fprintf(w, "%s: %s [%s, %s, %s]\n", dev.Path, dev.Name, virtualTag, pointerTag, keysTag)
	}
	return nil
}

func resolveLinuxBackend(configured string) string {
	choice := strings.ToLower(strings.TrimSpace(configured))
	if choice == "" {
		choice = "auto"
	}
	if choice == "wayland" {
		choice = "evdev"
	}
	if choice != "auto" {
		return choice
	}

	sessionType := strings.ToLower(strings.TrimSpace(os.Getenv("XDG_SESSION_TYPE")))
	switch sessionType {
	case "wayland":
		return "evdev"
	case "x11":
		return "x11"
	}

	if strings.TrimSpace(os.Getenv("WAYLAND_DISPLAY")) != "" {
		return "evdev"
	}
	if strings.TrimSpace(os.Getenv("DISPLAY")) != "" {
		return "x11"
	}
	return "evdev"
}
