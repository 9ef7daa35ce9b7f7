//go:build !linux && !windows

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

func backendHelp() string {
	return "Input backend: auto. Global hotkeys are not supported on this platform."
}

func parseBackendChoice(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	if backend == "" || backend == "auto" {
		return "auto", nil
	}
	return "", fmt.Errorf("invalid --backend %q (unsupported platform)", value)
}

func listInputDevices(w io.Writer, _ string) error {
	return fmt.Errorf("input device listing is not supported on this platform")
}

func permissionDeniedHint() string {
	return "Permission denied opening input backend."
}

func openBackend(cfg config, logger *slog.Logger) (*backend, error) {
	return nil, fmt.Errorf("no global hotkey backend for this platform")
}
