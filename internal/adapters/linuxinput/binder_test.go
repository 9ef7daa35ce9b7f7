//go:build linux

package linuxinput

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func key(t *testing.T, name string) combo.Code {
	t.Helper()
	code, err := combo.ParseKey(name)
	if err != nil {
		t.Fatalf("ParseKey(%q): %v", name, err)
	}
	return code
}

func TestCombosMatchKernelCodes(t *testing.T) {
	for _, code := range combo.Codes() {
		name := code.Name()
		want, ok := evdev.KEYFromString[name]
		if !ok {
			t.Fatalf("kernel has no code named %s", name)
		}
		if combo.Code(want) != code {
			t.Fatalf("%s is %d in combo, %d in the kernel table", name, code, want)
		}
	}
}

func TestBinderFiresOnModifierCombo(t *testing.T) {
	b := newBinder(noopLogger{})
	var fired atomic.Int32
	if err := b.Bind("Shift+Ctrl+F8", func() { fired.Add(1) }); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	b.handle(keyEvent{code: key(t, "f8"), down: true})
	b.handle(keyEvent{code: key(t, "f8"), down: false})
	if fired.Load() != 0 {
		t.Fatalf("bare f8 fired a ctrl+shift binding")
	}

	b.handle(keyEvent{code: combo.KeyLeftCtrl, down: true})
	b.handle(keyEvent{code: combo.KeyRightShift, down: true})
	b.handle(keyEvent{code: key(t, "f8"), down: true})
	b.handle(keyEvent{code: key(t, "f8"), down: true})
	if fired.Load() != 1 {
		t.Fatalf("fired %d times, want 1", fired.Load())
	}

	if err := b.Unbind("ctrl+shift+f8"); err != nil {
		t.Fatalf("Unbind() error = %v", err)
	}
	b.handle(keyEvent{code: key(t, "f8"), down: false})
	b.handle(keyEvent{code: key(t, "f8"), down: true})
	if fired.Load() != 1 {
		t.Fatalf("unbound combo still fired")
	}
}

func TestBinderRejectsPrimaryButtons(t *testing.T) {
	b := newBinder(noopLogger{})
	if err := b.Bind("mouse1", func() {}); err == nil {
		t.Fatalf("Bind(mouse1) succeeded")
	}
}

func TestCaptureTakesPrecedenceOverBindings(t *testing.T) {
	b := newBinder(noopLogger{})
	var fired atomic.Int32
	if err := b.Bind("alt+mouse4", func() { fired.Add(1) }); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	result := make(chan string, 1)
	go func() {
		id, err := b.CaptureNextHotkey(context.Background(), time.Second)
		if err != nil {
			result <- "error: " + err.Error()
			return
		}
		result <- id
	}()

	deadline := time.Now().Add(time.Second)
	for {
		b.captureMu.Lock()
		waiting := b.captureCh != nil
		b.captureMu.Unlock()
		if waiting {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("capture never started")
		}
		time.Sleep(time.Millisecond)
	}

	b.handle(keyEvent{code: combo.BtnLeft, down: true})
	b.handle(keyEvent{code: combo.KeyLeftAlt, down: true})
	b.handle(keyEvent{code: combo.BtnSide, down: true})

	if got := <-result; got != "alt+mouse4" {
		t.Fatalf("CaptureNextHotkey() = %q, want alt+mouse4", got)
	}
	if fired.Load() != 0 {
		t.Fatalf("binding fired during capture")
	}
}

func TestCaptureHonoursContext(t *testing.T) {
	b := newBinder(noopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.CaptureNextHotkey(ctx, time.Second); err == nil {
		t.Fatalf("CaptureNextHotkey() with cancelled context returned nil error")
	}
}
