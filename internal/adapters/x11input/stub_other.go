//go:build !linux

package x11input

import (
	"context"
	"errors"
	"time"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

var errUnsupported = errors.New("x11 input is only available on Linux")

type Session struct{}

func Open(logger macro.Logger) (*Session, error) { return nil, errUnsupported }

func (s *Session) SetCursorPosition(x, y int) error     { return errUnsupported }
func (s *Session) CursorPosition() (macro.Point, error) { return macro.Point{}, errUnsupported }
func (s *Session) ButtonDown(button macro.Button) error { return errUnsupported }
func (s *Session) ButtonUp(button macro.Button) error   { return errUnsupported }

func (s *Session) Bind(hotkeyID string, onTrigger func()) error { return errUnsupported }
func (s *Session) Unbind(hotkeyID string) error                 { return errUnsupported }
func (s *Session) Close() error                                 { return nil }

func (s *Session) CaptureNextHotkey(ctx context.Context, timeout time.Duration) (string, error) {
	return "", errUnsupported
}
