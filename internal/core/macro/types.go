package macro

import (
	"context"
	"strings"
	"time"
)

const (
	// MoveThreshold is the per-axis cursor drift in pixels that cancels a running session.
	MoveThreshold = 10

	// WaitSlice bounds each cooperative sleep between steps.
	WaitSlice = 100 * time.Millisecond

	// MultiClickPause separates down/up pairs issued within one step.
	MultiClickPause = 10 * time.Millisecond
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type ClickMode string

const (
	ModeSingle ClickMode = "Single"
	ModeDouble ClickMode = "Double"
	ModeBurst  ClickMode = "Burst"
)

// ParseClickMode is case-insensitive; unknown values fall back to ModeSingle.
func ParseClickMode(value string) ClickMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "double":
		return ModeDouble
	case "burst":
		return ModeBurst
	default:
		return ModeSingle
	}
}

type Button string

const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

func ParseButton(value string) Button {
	if strings.EqualFold(strings.TrimSpace(value), string(ButtonRight)) {
		return ButtonRight
	}
	return ButtonLeft
}

// ActionRecord is the configuration of one hotkey action. The presentation layer owns it;
// the engine only ever sees a copy produced by a DataProvider at trigger time.
type ActionRecord struct {
	Name        string    `json:"name"`
	Hotkey      string    `json:"hotkey"`
	Coordinates []Point   `json:"coords"`
	Mode        ClickMode `json:"mode"`
	BurstCount  int       `json:"burst_count"`
	DelayMs     int       `json:"delay_ms"`
	Button      Button    `json:"button"`
	Enabled     bool      `json:"enabled"`
}

// DataProvider returns the current configuration of an action. It is invoked once per
// trigger and never memoized, so edits made while a session runs apply to the next trigger.
type DataProvider func() ActionRecord

// Observer receives everything a session reports. Implementations must not block for long:
// calls are made from the session goroutine.
type Observer interface {
	Status(message string)
	ClickIndicator(x, y int)
	ExecutionStarted()
	ExecutionEnded()
}

// InputPort is the OS-level input surface the engine drives.
type InputPort interface {
	SetCursorPosition(x, y int) error
	ButtonDown(button Button) error
	ButtonUp(button Button) error
	CursorPosition() (Point, error)
}

// HotkeyBinder installs process-wide hotkey hooks. Bind returns an error when the id is
// malformed or already reserved; the callback runs on a goroutine owned by the binder.
type HotkeyBinder interface {
	Bind(hotkeyID string, onTrigger func()) error
	Unbind(hotkeyID string) error
	Close() error
}

// HotkeyCapturer waits for the user to press a combination and returns it in the binder's
// id grammar.
type HotkeyCapturer interface {
	CaptureNextHotkey(ctx context.Context, timeout time.Duration) (string, error)
}

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
