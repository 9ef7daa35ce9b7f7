package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
	"github.com/msyamsudin/S-Trade-Executor/internal/store"
)

type config struct {
	configPath   string
	backend      string
	devicePath   string
	duplicate    macro.DuplicatePolicy
	ui           bool
	logLevel     slog.Level
	logLevelRaw  string
	duplicateRaw string
	// duplicateSet is true when --duplicate was given; otherwise the saved preference wins.
	duplicateSet bool
	cliMode      bool
}

type lineSinkWriter struct {
	sink  func(line string)
	mu    sync.Mutex
	lines bytes.Buffer
}

func (w *lineSinkWriter) Write(p []byte) (int, error) {
	if w.sink == nil {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	total := len(p)
	for len(p) > 0 {
		idx := bytes.IndexByte(p, '\n')
		if idx == -1 {
			_, _ = w.lines.Write(p)
			break
		}
		_, _ = w.lines.Write(p[:idx])
		line := strings.TrimSpace(w.lines.String())
		w.lines.Reset()
		if line != "" {
			w.sink(line)
		}
		p = p[idx+1:]
	}
	return total, nil
}

// newSlogLogger discards output unless DEBUG=1. sink additionally receives each line,
// which is how the UI log pane is fed.
func newSlogLogger(level slog.Level, sink func(line string)) *slog.Logger {
	if !debugLogsEnabled() {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: level,
		}))
	}

	out := io.Writer(os.Stderr)
	if sink != nil {
		out = io.MultiWriter(os.Stderr, &lineSinkWriter{sink: sink})
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}

func debugLogsEnabled() bool {
	return strings.TrimSpace(os.Getenv("DEBUG")) == "1"
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid --log-level %q (expected debug|info|warning|error)", value)
	}
}

// finish validates the raw flag values once cobra has parsed them.
func (cfg *config) finish(cmd *cobra.Command) error {
	level, err := parseLogLevel(cfg.logLevelRaw)
	if err != nil {
		return err
	}
	policy, err := macro.ParseDuplicatePolicy(cfg.duplicateRaw)
	if err != nil {
		return fmt.Errorf("--duplicate: %w", err)
	}
	backend, err := parseBackendChoice(cfg.backend)
	if err != nil {
		return err
	}
	if cfg.cliMode {
		cfg.ui = false
	}
	if strings.TrimSpace(cfg.configPath) == "" {
		cfg.configPath = strings.TrimSpace(os.Getenv("CLICKER_CONFIG"))
	}
	if cfg.configPath == "" {
		cfg.configPath = store.DefaultPath()
	}
	if f := cmd.Flags().Lookup("duplicate"); f != nil {
		cfg.duplicateSet = f.Changed
	}

	cfg.logLevel = level
	cfg.duplicate = policy
	cfg.backend = backend
	return nil
}

func isPermissionError(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES)
}

func newRootCommand() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:   "clicker",
		Short: "Run saved click sequences when their global hotkeys are pressed",
		Long: `clicker binds each saved action to a global hotkey. Pressing the hotkey moves the
cursor through the action's coordinates and clicks at each one.

Actions are kept in a JSON file (see --config). Without a subcommand the desktop editor
opens; use "clicker run" for a headless session.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.finish(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.ui {
				return runHeadless(cmd.Context(), *cfg, cmd.OutOrStdout())
			}
			return runUI(*cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.configPath, "config", "", "Path of the JSON action file (default: $CLICKER_CONFIG or the user config dir).")
	flags.StringVar(&cfg.backend, "backend", "auto", backendHelp())
	flags.StringVar(&cfg.devicePath, "device", "", "evdev backend only: input event device to read hotkeys from, e.g. /dev/input/event4. All keyboards and mice if omitted.")
	flags.StringVar(&cfg.duplicateRaw, "duplicate", "coalesce", "What a hotkey does while its own action is still running: coalesce|queue|overlap.")
	flags.StringVar(&cfg.logLevelRaw, "log-level", "info", "Log verbosity (default: info). Allowed: debug, info, warning, error. Logs are printed only with DEBUG=1.")
	root.Flags().BoolVar(&cfg.ui, "ui", true, "Start the desktop editor (Fyne). Use --ui=false or --cli for terminal mode.")
	root.Flags().BoolVar(&cfg.cliMode, "cli", false, "Force terminal mode (same as the run subcommand).")

	root.AddCommand(
		newRunCommand(cfg),
		newActionsCommand(cfg),
		newDevicesCommand(cfg),
		newCaptureCommand(cfg),
	)
	return root
}

func newRunCommand(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Register hotkeys and execute actions without a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(cmd.Context(), *cfg, cmd.OutOrStdout())
		},
	}
}

func newActionsCommand(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "Print the saved actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(cfg.configPath)
			if err != nil {
				return err
			}
			printActions(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newDevicesCommand(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the input devices the selected backend can read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listInputDevices(cmd.OutOrStdout(), cfg.backend)
		},
	}
}

func newCaptureCommand(cfg *config) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Wait for a key combination and print its hotkey id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newSlogLogger(cfg.logLevel, nil)
			b, err := openBackend(*cfg, logger)
			if err != nil {
				return explainBackendError(err)
			}
			defer b.Close()
			if b.capturer == nil {
				return fmt.Errorf("backend %s cannot capture hotkeys", b.name)
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Press the key combination...")
			id, err := b.capturer.CaptureNextHotkey(cmd.Context(), timeout)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for input.")
	return cmd
}

func printActions(w io.Writer, s *store.Store) {
	actions := s.Actions()
	if s.HasLegacyProfiles() {
		fmt.Fprintln(w, "# legacy profiles found; the first profile is shown and will replace them on next save")
	}
	if len(actions) == 0 {
		fmt.Fprintln(w, "no actions saved in", s.Path())
		return
	}
	for i, a := range actions {
		state := "on"
		if !a.Enabled {
			state = "off"
		}
		hotkey := a.Hotkey
		if canonical, err := combo.Canonical(hotkey); err == nil {
			hotkey = canonical
		}
		fmt.Fprintf(w, "%2d. %-20s %-16s %-6s %d click(s) x %d target(s), %dms, %s, %s\n",
			i+1, a.Name, hotkey, a.Mode, a.ClicksPerStep(), len(a.Coordinates), a.DelayMs, a.Button, state)
	}
}

func explainBackendError(err error) error {
	if isPermissionError(err) {
		return fmt.Errorf("%w\n%s", err, permissionDeniedHint())
	}
	return err
}

func main() {
	// .env is optional; it may set DEBUG or CLICKER_CONFIG.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
