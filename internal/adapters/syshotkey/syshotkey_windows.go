//go:build windows

// Package syshotkey binds hotkeys through the operating system's RegisterHotKey. The OS
// rejects combos another program already owns, which hook-based binding cannot detect.
package syshotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/wininput"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

type registration struct {
	hk   *hotkey.Hotkey
	stop chan struct{}
	done chan struct{}
}

type Binder struct {
	logger macro.Logger

	mu   sync.Mutex
	regs map[string]*registration
}

func NewBinder(logger macro.Logger) (*Binder, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	return &Binder{logger: logger, regs: make(map[string]*registration)}, nil
}

func (b *Binder) Bind(hotkeyID string, onTrigger func()) error {
	c, err := combo.Parse(hotkeyID)
	if err != nil {
		return err
	}
	if c.Key.IsMouseButton() {
		return fmt.Errorf("%s: system hotkeys cannot use mouse buttons; use the hook backend", c)
	}
	vk, ok := wininput.CodeToVK(c.Key)
	if !ok {
		return fmt.Errorf("key %s is not available on windows", c.Key.Name())
	}
	id := c.String()

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.regs[id]; ok {
		b.unbindLocked(id)
	}

	hk := hotkey.New(modifiers(c.Mods), hotkey.Key(vk))
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}
	reg := &registration{hk: hk, stop: make(chan struct{}), done: make(chan struct{})}
	b.regs[id] = reg

	go func() {
		defer close(reg.done)
		for {
			select {
			case <-reg.stop:
				return
			case <-hk.Keydown():
				onTrigger()
			}
		}
	}()
	b.logger.Debug("Registered system hotkey", "hotkey", id)
	return nil
}

func (b *Binder) Unbind(hotkeyID string) error {
	c, err := combo.Parse(hotkeyID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unbindLocked(c.String())
}

func (b *Binder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for id := range b.regs {
		if err := b.unbindLocked(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Binder) unbindLocked(id string) error {
	reg, ok := b.regs[id]
	if !ok {
		return nil
	}
	delete(b.regs, id)
	close(reg.stop)
	<-reg.done
	return reg.hk.Unregister()
}

func modifiers(mods combo.Modifiers) []hotkey.Modifier {
	var out []hotkey.Modifier
	if mods&combo.Ctrl != 0 {
		out = append(out, hotkey.ModCtrl)
	}
	if mods&combo.Shift != 0 {
		out = append(out, hotkey.ModShift)
	}
	if mods&combo.Alt != 0 {
		out = append(out, hotkey.ModAlt)
	}
	if mods&combo.Meta != 0 {
		out = append(out, hotkey.ModWin)
	}
	return out
}
