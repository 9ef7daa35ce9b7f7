//go:build windows

package wininput

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

const (
	inputMouse = 0

	mouseeventfLeftDown  = 0x0002
	mouseeventfLeftUp    = 0x0004
	mouseeventfRightDown = 0x0008
	mouseeventfRightUp   = 0x0010
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetCursorPos = user32.NewProc("SetCursorPos")
	procGetCursorPos = user32.NewProc("GetCursorPos")
	procSendInput    = user32.NewProc("SendInput")
)

type point struct {
	X int32
	Y int32
}

type mouseInput struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// input mirrors INPUT with the mouse arm of the union, which is also its largest member.
type input struct {
	Type uint32
	Mi   mouseInput
}

// InputPort moves the real cursor and injects button transitions with SendInput.
type InputPort struct{}

func NewInputPort() (*InputPort, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("SendInput unavailable: %w", err)
	}
	return &InputPort{}, nil
}

func (p *InputPort) SetCursorPosition(x, y int) error {
	ok, _, callErr := procSetCursorPos.Call(uintptr(int32(x)), uintptr(int32(y)))
	if ok == 0 {
		return fmt.Errorf("SetCursorPos(%d,%d): %w", x, y, callErr)
	}
	return nil
}

func (p *InputPort) CursorPosition() (macro.Point, error) {
	var pt point
	ok, _, callErr := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if ok == 0 {
		return macro.Point{}, fmt.Errorf("GetCursorPos: %w", callErr)
	}
	return macro.Point{X: int(pt.X), Y: int(pt.Y)}, nil
}

func (p *InputPort) ButtonDown(button macro.Button) error {
	if button == macro.ButtonRight {
		return sendMouse(mouseeventfRightDown)
	}
	return sendMouse(mouseeventfLeftDown)
}

func (p *InputPort) ButtonUp(button macro.Button) error {
	if button == macro.ButtonRight {
		return sendMouse(mouseeventfRightUp)
	}
	return sendMouse(mouseeventfLeftUp)
}

func sendMouse(flags uint32) error {
	in := input{Type: inputMouse, Mi: mouseInput{DwFlags: flags}}
	sent, _, callErr := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if sent != 1 {
		if callErr != nil && callErr != windows.ERROR_SUCCESS {
			return callErr
		}
		return fmt.Errorf("SendInput sent %d of 1 inputs", sent)
	}
	return nil
}
