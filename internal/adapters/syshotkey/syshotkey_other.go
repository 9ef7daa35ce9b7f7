//go:build !windows

package syshotkey

import (
	"errors"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

var errUnsupported = errors.New("system hotkeys are only wired on Windows")

type Binder struct{}

func NewBinder(logger macro.Logger) (*Binder, error) { return nil, errUnsupported }

func (b *Binder) Bind(hotkeyID string, onTrigger func()) error { return errUnsupported }
func (b *Binder) Unbind(hotkeyID string) error                 { return errUnsupported }
func (b *Binder) Close() error                                 { return nil }
