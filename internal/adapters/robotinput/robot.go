//go:build cgo

// Package robotinput is the portable input port built on robotgo. It needs cgo and is
// used where no native backend fits, such as macOS.
package robotinput

import (
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

const Available = true

type InputPort struct {
	mu sync.Mutex
}

func NewInputPort() (*InputPort, error) {
	return &InputPort{}, nil
}

func (p *InputPort) SetCursorPosition(x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	robotgo.Move(x, y)
	return nil
}

func (p *InputPort) CursorPosition() (macro.Point, error) {
	x, y := robotgo.Location()
	return macro.Point{X: x, Y: y}, nil
}

func (p *InputPort) ButtonDown(button macro.Button) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return robotgo.Toggle(buttonName(button))
}

func (p *InputPort) ButtonUp(button macro.Button) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return robotgo.Toggle(buttonName(button), "up")
}

func buttonName(button macro.Button) string {
	if button == macro.ButtonRight {
		return "right"
	}
	return "left"
}
