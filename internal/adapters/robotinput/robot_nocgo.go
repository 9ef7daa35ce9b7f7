//go:build !cgo

package robotinput

import (
	"errors"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

const Available = false

var errNoCgo = errors.New("robotgo input requires a cgo build")

type InputPort struct{}

func NewInputPort() (*InputPort, error) { return nil, errNoCgo }

func (p *InputPort) SetCursorPosition(x, y int) error     { return errNoCgo }
func (p *InputPort) CursorPosition() (macro.Point, error) { return macro.Point{}, errNoCgo }
func (p *InputPort) ButtonDown(button macro.Button) error { return errNoCgo }
func (p *InputPort) ButtonUp(button macro.Button) error   { return errNoCgo }
