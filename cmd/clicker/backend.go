package main

import (
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

// backend bundles the platform pieces a session needs. capturer may be nil.
type backend struct {
	name     string
	port     macro.InputPort
	binder   macro.HotkeyBinder
	capturer macro.HotkeyCapturer
	closers  []func() error
}

func (b *backend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
	b.closers = nil
}
