//go:build windows

package wininput

import (
	"context"
	"fmt"
	"time"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
)

var procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")

// PollCapturer reads the next combo with GetAsyncKeyState. It needs no hooks, so it
// pairs with binders that cannot observe raw key events.
type PollCapturer struct {
	Interval time.Duration
}

func (p PollCapturer) CaptureNextHotkey(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Millisecond
	}

	codes := CaptureCandidateCodes()
	state := make(map[combo.Code]bool, len(codes))
	for _, code := range codes {
		state[code] = isCodeDown(code)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var mods combo.Modifiers
		for _, code := range codes {
			down := isCodeDown(code)
			if mod, ok := combo.ModifierOf(code); ok && down {
				mods |= mod
			}
		}
		for _, code := range codes {
			down := isCodeDown(code)
			wasDown := state[code]
			state[code] = down
			if !down || wasDown {
				continue
			}
			if _, isMod := combo.ModifierOf(code); isMod {
				continue
			}
			if code == combo.BtnLeft || code == combo.BtnRight {
				continue
			}
			return combo.Combo{Mods: mods, Key: code}.String(), nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", fmt.Errorf("timed out waiting for a key combination")
		case <-ticker.C:
		}
	}
}

func isCodeDown(code combo.Code) bool {
	vk, ok := CodeToVK(code)
	if !ok {
		return false
	}
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return uint16(state)&0x8000 != 0
}
