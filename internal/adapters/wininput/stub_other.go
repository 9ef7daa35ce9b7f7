//go:build !windows

package wininput

import (
	"context"
	"errors"
	"time"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

var errUnsupported = errors.New("windows input is only available on Windows")

type InputPort struct{}

func NewInputPort() (*InputPort, error) { return nil, errUnsupported }

func (p *InputPort) SetCursorPosition(x, y int) error     { return errUnsupported }
func (p *InputPort) CursorPosition() (macro.Point, error) { return macro.Point{}, errUnsupported }
func (p *InputPort) ButtonDown(button macro.Button) error { return errUnsupported }
func (p *InputPort) ButtonUp(button macro.Button) error   { return errUnsupported }

type HookBinder struct{}

func NewHookBinder(logger macro.Logger) (*HookBinder, error) { return nil, errUnsupported }

func (b *HookBinder) Bind(hotkeyID string, onTrigger func()) error { return errUnsupported }
func (b *HookBinder) Unbind(hotkeyID string) error                 { return errUnsupported }
func (b *HookBinder) Close() error                                 { return nil }

func (b *HookBinder) CaptureNextHotkey(ctx context.Context, timeout time.Duration) (string, error) {
	return "", errUnsupported
}

type PollCapturer struct {
	Interval time.Duration
}

func (p PollCapturer) CaptureNextHotkey(ctx context.Context, timeout time.Duration) (string, error) {
	return "", errUnsupported
}
