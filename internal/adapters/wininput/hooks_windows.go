//go:build windows

package wininput

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C

	xButton1 = 0x0001
	xButton2 = 0x0002

	llmhfInjected        = 0x00000001
	llkhfInjected        = 0x00000010
	llkhfLowerILInjected = 0x00000002
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetCurrentThreadID  = kernel32.NewProc("GetCurrentThreadId")

	mouseHookCallback    = windows.NewCallback(mouseLLCallback)
	keyboardHookCallback = windows.NewCallback(keyboardLLCallback)

	// Hook procedures carry no user data, so the live binder is reached through this.
	activeBinder atomic.Pointer[HookBinder]
)

type mouseLLHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keyboardLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type message struct {
	Hwnd     uintptr
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       point
	LPrivate uint32
}

// HookBinder matches global key and mouse-button combos from low-level hooks. Unlike
// RegisterHotKey it sees side mouse buttons and never steals the key from other apps.
type HookBinder struct {
	logger macro.Logger

	mu       sync.RWMutex
	bindings map[string]func()

	// tracker is only touched on the hook thread.
	tracker *combo.Tracker

	stopOnce sync.Once
	stopCh   chan struct{}
	threadID atomic.Uint32
	loopDone chan struct{}

	captureMu sync.Mutex
	captureCh chan combo.Combo
}

// NewHookBinder installs the hooks on a dedicated OS thread. Only one binder can be
// active per process.
func NewHookBinder(logger macro.Logger) (*HookBinder, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	b := &HookBinder{
		logger:   logger,
		bindings: make(map[string]func()),
		tracker:  combo.NewTracker(),
		stopCh:   make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	if !activeBinder.CompareAndSwap(nil, b) {
		return nil, fmt.Errorf("a windows hook binder is already active")
	}

	ready := make(chan error, 1)
	go b.hookLoop(ready)
	if err := <-ready; err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func (b *HookBinder) Bind(hotkeyID string, onTrigger func()) error {
	c, err := combo.Parse(hotkeyID)
	if err != nil {
		return err
	}
	if _, ok := CodeToVK(c.Key); !ok {
		return fmt.Errorf("key %s is not available on windows", c.Key.Name())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings[c.String()] = onTrigger
	return nil
}

func (b *HookBinder) Unbind(hotkeyID string) error {
	c, err := combo.Parse(hotkeyID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bindings, c.String())
	return nil
}

// Close removes the hooks and waits for the hook thread to exit.
func (b *HookBinder) Close() error {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		if threadID := b.threadID.Load(); threadID != 0 {
			_, _, _ = procPostThreadMessageW.Call(uintptr(threadID), uintptr(wmQuit), 0, 0)
		}
		<-b.loopDone
		activeBinder.CompareAndSwap(b, nil)
	})
	return nil
}

// CaptureNextHotkey returns the next combo the user presses. Bindings do not fire while
// a capture is waiting.
func (b *HookBinder) CaptureNextHotkey(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	waitCh := make(chan combo.Combo, 1)
	b.captureMu.Lock()
	if b.captureCh != nil {
		b.captureMu.Unlock()
		return "", fmt.Errorf("hotkey capture already in progress")
	}
	b.captureCh = waitCh
	b.captureMu.Unlock()

	defer func() {
		b.captureMu.Lock()
		if b.captureCh == waitCh {
			b.captureCh = nil
		}
		b.captureMu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c := <-waitCh:
		return c.String(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.stopCh:
		return "", fmt.Errorf("hotkey binder closed")
	case <-timer.C:
		return "", fmt.Errorf("timed out waiting for a key combination")
	}
}

func (b *HookBinder) hookLoop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.loopDone)

	threadID, _, _ := procGetCurrentThreadID.Call()
	b.threadID.Store(uint32(threadID))

	mouseHook, _, mouseErr := procSetWindowsHookExW.Call(uintptr(whMouseLL), mouseHookCallback, 0, 0)
	if mouseHook == 0 {
		ready <- fmt.Errorf("failed to install mouse hook: %w", mouseErr)
		return
	}
	defer func() {
		_, _, _ = procUnhookWindowsHookEx.Call(mouseHook)
	}()

	keyboardHook, _, keyboardErr := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), keyboardHookCallback, 0, 0)
	if keyboardHook == 0 {
		ready <- fmt.Errorf("failed to install keyboard hook: %w", keyboardErr)
		return
	}
	defer func() {
		_, _, _ = procUnhookWindowsHookEx.Call(keyboardHook)
	}()

	ready <- nil
	b.logger.Debug("Windows hooks installed", "thread", threadID)

	var msg message
	for {
		ret, _, callErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			b.logger.Warn("Windows message loop failed", "err", callErr)
			return
		case 0:
			return
		default:
			_, _, _ = procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			_, _, _ = procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}
	}
}

func mouseLLCallback(code int, wParam uintptr, lParam uintptr) uintptr {
	if code >= 0 {
		if b := activeBinder.Load(); b != nil {
			b.handleMouseHook(wParam, lParam)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

func keyboardLLCallback(code int, wParam uintptr, lParam uintptr) uintptr {
	if code >= 0 {
		if b := activeBinder.Load(); b != nil {
			b.handleKeyboardHook(wParam, lParam)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(code), wParam, lParam)
	return ret
}

func (b *HookBinder) handleMouseHook(wParam uintptr, lParam uintptr) {
	if lParam == 0 {
		return
	}
	event := (*mouseLLHookStruct)(unsafe.Pointer(lParam))
	// Our own SendInput clicks come back flagged as injected.
	if event.Flags&llmhfInjected != 0 {
		return
	}

	var (
		code combo.Code
		down bool
	)
	switch uint32(wParam) {
	case wmLButtonDown:
		code, down = combo.BtnLeft, true
	case wmLButtonUp:
		code = combo.BtnLeft
	case wmRButtonDown:
		code, down = combo.BtnRight, true
	case wmRButtonUp:
		code = combo.BtnRight
	case wmMButtonDown:
		code, down = combo.BtnMiddle, true
	case wmMButtonUp:
		code = combo.BtnMiddle
	case wmXButtonDown:
		code, down = xButtonCode(event.MouseData), true
	case wmXButtonUp:
		code = xButtonCode(event.MouseData)
	default:
		return
	}
	if code == 0 {
		return
	}
	b.handleTransition(code, down)
}

func (b *HookBinder) handleKeyboardHook(wParam uintptr, lParam uintptr) {
	if lParam == 0 {
		return
	}
	event := (*keyboardLLHookStruct)(unsafe.Pointer(lParam))
	if event.Flags&llkhfInjected != 0 || event.Flags&llkhfLowerILInjected != 0 {
		return
	}

	code, ok := CodeFromVK(event.VkCode, event.Flags)
	if !ok {
		return
	}

	switch uint32(wParam) {
	case wmKeyDown, wmSysKeyDown:
		b.handleTransition(code, true)
	case wmKeyUp, wmSysKeyUp:
		b.handleTransition(code, false)
	}
}

func (b *HookBinder) handleTransition(code combo.Code, down bool) {
	c, pressed := b.tracker.Update(code, down)
	if !pressed {
		return
	}
	if c.Key == combo.BtnLeft || c.Key == combo.BtnRight {
		return
	}
	if b.publishCapture(c) {
		return
	}

	b.mu.RLock()
	onTrigger := b.bindings[c.String()]
	b.mu.RUnlock()
	if onTrigger != nil {
		onTrigger()
	}
}

func (b *HookBinder) publishCapture(c combo.Combo) bool {
	b.captureMu.Lock()
	ch := b.captureCh
	b.captureMu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case ch <- c:
	default:
	}
	return true
}

func xButtonCode(mouseData uint32) combo.Code {
	switch uint16(mouseData >> 16) {
	case xButton1:
		return combo.BtnSide
	case xButton2:
		return combo.BtnExtra
	default:
		return 0
	}
}
