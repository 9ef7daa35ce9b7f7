//go:build !linux

package linuxinput

import (
	"context"
	"errors"
	"time"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

const DeviceName = "s-trade-executor"

var errUnsupported = errors.New("evdev input is only available on Linux")

type DeviceInfo struct {
	Path      string
	Name      string
	IsVirtual bool
	IsPointer bool
	HasKeys   bool
}

func ListInputDevices() ([]DeviceInfo, error) { return nil, errUnsupported }

type Binder struct{}

func NewBinder(devicePath string, logger macro.Logger) (*Binder, error) {
	return nil, errUnsupported
}

func (b *Binder) Bind(hotkeyID string, onTrigger func()) error { return errUnsupported }
func (b *Binder) Unbind(hotkeyID string) error                 { return errUnsupported }
func (b *Binder) Close() error                                 { return nil }

func (b *Binder) CaptureNextHotkey(ctx context.Context, timeout time.Duration) (string, error) {
	return "", errUnsupported
}

type Injector struct{}

func NewInjector() (*Injector, error) { return nil, errUnsupported }

func (i *Injector) ButtonDown(button macro.Button) error { return errUnsupported }
func (i *Injector) ButtonUp(button macro.Button) error   { return errUnsupported }
func (i *Injector) Close() error                         { return nil }

type Positioner interface {
	SetCursorPosition(x, y int) error
	CursorPosition() (macro.Point, error)
}

type Port struct {
	Positioner
	*Injector
}

func NewPort(pos Positioner, inj *Injector) *Port {
	return &Port{Positioner: pos, Injector: inj}
}
