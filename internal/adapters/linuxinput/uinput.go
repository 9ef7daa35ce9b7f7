//go:build linux

package linuxinput

import (
	"fmt"
	"sync"

	evdev "github.com/holoplot/go-evdev"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

// Injector presses mouse buttons through a virtual uinput pointer. It cannot place the
// cursor, so it is paired with a Positioner in Port.
type Injector struct {
	mu  sync.Mutex
	dev *evdev.InputDevice
}

func NewInjector() (*Injector, error) {
	capabilities := map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: {evdev.BTN_LEFT, evdev.BTN_RIGHT},
		evdev.EV_REL: {evdev.REL_X, evdev.REL_Y},
	}
	id := evdev.InputID{
		BusType: uint16(evdev.BUS_VIRTUAL),
		Vendor:  0x1,
		Product: 0x1,
		Version: 1,
	}
	dev, err := evdev.CreateDevice(DeviceName, id, capabilities)
	if err != nil {
		return nil, fmt.Errorf("create uinput device (is /dev/uinput writable?): %w", err)
	}
	return &Injector{dev: dev}, nil
}

func (i *Injector) ButtonDown(button macro.Button) error {
	return i.write(buttonCode(button), 1)
}

func (i *Injector) ButtonUp(button macro.Button) error {
	return i.write(buttonCode(button), 0)
}

func (i *Injector) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dev == nil {
		return nil
	}
	err := i.dev.Close()
	i.dev = nil
	return err
}

func (i *Injector) write(code evdev.EvCode, value int32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dev == nil {
		return fmt.Errorf("uinput device closed")
	}
	for _, ev := range []evdev.InputEvent{
		{Type: evdev.EV_KEY, Code: code, Value: value},
		{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT, Value: 0},
	} {
		if err := i.dev.WriteOne(&ev); err != nil {
			return err
		}
	}
	return nil
}

func buttonCode(button macro.Button) evdev.EvCode {
	if button == macro.ButtonRight {
		return evdev.BTN_RIGHT
	}
	return evdev.BTN_LEFT
}

// Positioner is the cursor half of an input port.
type Positioner interface {
	SetCursorPosition(x, y int) error
	CursorPosition() (macro.Point, error)
}

// Port combines a Positioner with uinput clicks into a full input port.
type Port struct {
	Positioner
	*Injector
}

func NewPort(pos Positioner, inj *Injector) *Port {
	return &Port{Positioner: pos, Injector: inj}
}
