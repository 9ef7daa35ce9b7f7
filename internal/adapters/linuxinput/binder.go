//go:build linux

package linuxinput

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

type keyEvent struct {
	code combo.Code
	down bool
}

// Binder matches combos from raw evdev key events. Readers run one goroutine per device;
// a single dispatcher owns the modifier tracker.
type Binder struct {
	logger  macro.Logger
	devices []*evdev.InputDevice
	events  chan keyEvent
	tracker *combo.Tracker

	mu       sync.RWMutex
	bindings map[string]func()

	captureMu sync.Mutex
	captureCh chan combo.Combo

	stopCh       chan struct{}
	stopOnce     sync.Once
	readersWG    sync.WaitGroup
	dispatchDone chan struct{}
}

// NewBinder opens devicePath, or all physical keyboards and mice when it is empty.
func NewBinder(devicePath string, logger macro.Logger) (*Binder, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	devices, err := openKeyDevices(devicePath)
	if err != nil {
		return nil, err
	}

	b := newBinder(logger)
	b.devices = devices
	for _, dev := range devices {
		name, _ := dev.Name()
		logger.Debug("Reading input device", "path", dev.Path(), "name", name)
		b.readersWG.Add(1)
		go b.readLoop(dev)
	}
	go b.dispatchLoop()
	return b, nil
}

func newBinder(logger macro.Logger) *Binder {
	return &Binder{
		logger:       logger,
		events:       make(chan keyEvent, 64),
		tracker:      combo.NewTracker(),
		bindings:     make(map[string]func()),
		stopCh:       make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
}

func (b *Binder) Bind(hotkeyID string, onTrigger func()) error {
	c, err := combo.Parse(hotkeyID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings[c.String()] = onTrigger
	return nil
}

func (b *Binder) Unbind(hotkeyID string) error {
	c, err := combo.Parse(hotkeyID)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bindings, c.String())
	return nil
}

func (b *Binder) Close() error {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		closeInputDevices(b.devices)
		b.readersWG.Wait()
		if b.devices != nil {
			<-b.dispatchDone
		}
	})
	return nil
}

func (b *Binder) CaptureNextHotkey(ctx context.Context, timeout time.Duration) (string, error) {
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

func (b *Binder) readLoop(dev *evdev.InputDevice) {
	defer b.readersWG.Done()

	path := dev.Path()
	for {
		events, err := dev.ReadSlice(64)
		if err != nil {
			if b.stopped() || isDeviceClosedError(err) {
				return
			}
			if isWouldBlockError(err) {
				if !b.sleepWithStop(10 * time.Millisecond) {
					return
				}
				continue
			}
			b.logger.Warn("Read failed", "path", path, "err", err)
			if !b.sleepWithStop(100 * time.Millisecond) {
				return
			}
			continue
		}

		for _, event := range events {
			// Value 2 is kernel auto-repeat.
			if event.Type != evdev.EV_KEY || event.Value == 2 {
				continue
			}
			select {
			case b.events <- keyEvent{code: combo.Code(event.Code), down: event.Value == 1}:
			case <-b.stopCh:
				return
			}
		}
	}
}

func (b *Binder) dispatchLoop() {
	defer close(b.dispatchDone)
	for {
		select {
		case <-b.stopCh:
			return
		case ev := <-b.events:
			b.handle(ev)
		}
	}
}

func (b *Binder) handle(ev keyEvent) {
	c, pressed := b.tracker.Update(ev.code, ev.down)
	if !pressed || c.Key == combo.BtnLeft || c.Key == combo.BtnRight {
		return
	}

	b.captureMu.Lock()
	captureCh := b.captureCh
	b.captureMu.Unlock()
	if captureCh != nil {
		select {
		case captureCh <- c:
		default:
		}
		return
	}

	b.mu.RLock()
	onTrigger := b.bindings[c.String()]
	b.mu.RUnlock()
	if onTrigger != nil {
		onTrigger()
	}
}

func (b *Binder) stopped() bool {
	select {
	case <-b.stopCh:
		return true
	default:
		return false
	}
}

func (b *Binder) sleepWithStop(duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-b.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func isDeviceClosedError(err error) bool {
	return errors.Is(err, syscall.EBADF) || errors.Is(err, syscall.ENODEV)
}

func isWouldBlockError(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
