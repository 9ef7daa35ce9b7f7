//go:build linux

package x11input

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

// Lock modifiers the user may have latched. Every grab is repeated for each variant,
// otherwise Num Lock being on would silently disable all hotkeys.
var lockVariants = []uint16{
	0,
	xproto.ModMaskLock,
	xproto.ModMask2,
	xproto.ModMaskLock | xproto.ModMask2,
}

type grabKey struct {
	keycode xproto.Keycode
	button  byte
	mods    uint16
}

type binding struct {
	combo    combo.Combo
	grabs    []grabKey
	callback func()
}

// Session is one X connection that serves as input port, hotkey binder and capturer.
type Session struct {
	xu      *xgbutil.XUtil
	conn    *xgb.Conn
	rootWin xproto.Window
	logger  macro.Logger

	mu       sync.RWMutex
	bindings map[string]*binding
	byGrab   map[grabKey]string

	injectMu sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func Open(logger macro.Logger) (*Session, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}
	conn := xu.Conn()
	if conn == nil {
		return nil, fmt.Errorf("failed to open X11 connection")
	}
	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("XTEST extension unavailable: %w", err)
	}
	keybind.Initialize(xu)

	s := &Session{
		xu:       xu,
		conn:     conn,
		rootWin:  xu.RootWin(),
		logger:   logger,
		bindings: make(map[string]*binding),
		byGrab:   make(map[grabKey]string),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go s.eventLoop()
	return s, nil
}

func (s *Session) SetCursorPosition(x, y int) error {
	s.injectMu.Lock()
	defer s.injectMu.Unlock()

	if err := xproto.WarpPointerChecked(
		s.conn,
		xproto.WindowNone,
		s.rootWin,
		0, 0, 0, 0,
		clampInt16(x),
		clampInt16(y),
	).Check(); err != nil {
		return err
	}
	s.conn.Sync()
	return nil
}

func (s *Session) CursorPosition() (macro.Point, error) {
	reply, err := xproto.QueryPointer(s.conn, s.rootWin).Reply()
	if err != nil {
		return macro.Point{}, err
	}
	return macro.Point{X: int(reply.RootX), Y: int(reply.RootY)}, nil
}

func (s *Session) ButtonDown(button macro.Button) error {
	return s.fakeButton(xproto.ButtonPress, button)
}

func (s *Session) ButtonUp(button macro.Button) error {
	return s.fakeButton(xproto.ButtonRelease, button)
}

func (s *Session) fakeButton(eventType byte, button macro.Button) error {
	detail := byte(xproto.ButtonIndex1)
	if button == macro.ButtonRight {
		detail = byte(xproto.ButtonIndex3)
	}

	s.injectMu.Lock()
	defer s.injectMu.Unlock()

	if err := xtest.FakeInputChecked(
		s.conn,
		eventType,
		detail,
		xproto.TimeCurrentTime,
		s.rootWin,
		0, 0, 0,
	).Check(); err != nil {
		return err
	}
	s.conn.Sync()
	return nil
}

func (s *Session) Bind(hotkeyID string, onTrigger func()) error {
	c, err := combo.Parse(hotkeyID)
	if err != nil {
		return err
	}
	grabs, err := s.resolveGrabs(c)
	if err != nil {
		return err
	}
	id := c.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.bindings[id]; ok {
		existing.callback = onTrigger
		return nil
	}
	for i, g := range grabs {
		if err := s.grab(g); err != nil {
			for _, done := range grabs[:i] {
				s.ungrab(done)
			}
			return fmt.Errorf("grab %s: %w", id, err)
		}
	}
	s.bindings[id] = &binding{combo: c, grabs: grabs, callback: onTrigger}
	for _, g := range grabs {
		s.byGrab[g] = id
	}
	return nil
}

func (s *Session) Unbind(hotkeyID string) error {
	c, err := combo.Parse(hotkeyID)
	if err != nil {
		return err
	}
	id := c.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bindings[id]
	if !ok {
		return nil
	}
	for _, g := range b.grabs {
		s.ungrab(g)
		delete(s.byGrab, g)
	}
	delete(s.bindings, id)
	return nil
}

// Close releases every grab and the connection.
func (s *Session) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		for _, b := range s.bindings {
			for _, g := range b.grabs {
				s.ungrab(g)
			}
		}
		clear(s.bindings)
		clear(s.byGrab)
		s.conn.Close()
		s.mu.Unlock()

		<-s.doneCh
	})
	return nil
}

func (s *Session) resolveGrabs(c combo.Combo) ([]grabKey, error) {
	mods := modMask(c.Mods)
	var base []grabKey

	if button, ok := buttonForCode(c.Key); ok {
		base = append(base, grabKey{button: button, mods: mods})
	} else {
		sym, ok := keysymForCode(c.Key)
		if !ok {
			return nil, fmt.Errorf("unsupported X11 key %s", c.Key.Name())
		}
		keycodes := keybind.StrToKeycodes(s.xu, sym)
		if len(keycodes) == 0 {
			return nil, fmt.Errorf("failed to resolve X11 key %q", sym)
		}
		uniq := make(map[xproto.Keycode]struct{}, len(keycodes))
		for _, kc := range keycodes {
			uniq[kc] = struct{}{}
		}
		for kc := range uniq {
			base = append(base, grabKey{keycode: kc, mods: mods})
		}
		sort.Slice(base, func(i, j int) bool { return base[i].keycode < base[j].keycode })
	}

	out := make([]grabKey, 0, len(base)*len(lockVariants))
	for _, g := range base {
		for _, lock := range lockVariants {
			out = append(out, grabKey{keycode: g.keycode, button: g.button, mods: g.mods | lock})
		}
	}
	return out, nil
}

func (s *Session) grab(g grabKey) error {
	if g.button != 0 {
		return xproto.GrabButtonChecked(
			s.conn,
			false,
			s.rootWin,
			xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease,
			xproto.GrabModeAsync,
			xproto.GrabModeAsync,
			xproto.WindowNone,
			xproto.CursorNone,
			g.button,
			g.mods,
		).Check()
	}
	return xproto.GrabKeyChecked(
		s.conn,
		false,
		s.rootWin,
		g.mods,
		g.keycode,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
	).Check()
}

func (s *Session) ungrab(g grabKey) {
	if g.button != 0 {
		xproto.UngrabButton(s.conn, g.button, s.rootWin, g.mods)
		return
	}
	xproto.UngrabKey(s.conn, g.keycode, s.rootWin, g.mods)
}

func (s *Session) eventLoop() {
	defer close(s.doneCh)

	for {
		event, xerr := s.conn.WaitForEvent()
		if xerr != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.logger.Warn("X11 event error", "err", xerr)
			continue
		}
		if event == nil {
			return
		}

		switch ev := event.(type) {
		case xproto.KeyPressEvent:
			s.dispatch(grabKey{keycode: ev.Detail, mods: ev.State & grabbedMask})
		case xproto.ButtonPressEvent:
			s.dispatch(grabKey{button: byte(ev.Detail), mods: ev.State & grabbedMask})
		}
	}
}

// grabbedMask keeps the modifier and lock bits that grabs are keyed on. Button state
// bits in the event would otherwise never match.
const grabbedMask = xproto.ModMaskShift | xproto.ModMaskLock | xproto.ModMaskControl |
	xproto.ModMask1 | xproto.ModMask2 | xproto.ModMask4

func (s *Session) dispatch(g grabKey) {
	s.mu.RLock()
	var callback func()
	if id, ok := s.byGrab[g]; ok {
		callback = s.bindings[id].callback
	}
	s.mu.RUnlock()
	if callback != nil {
		callback()
	}
}

// CaptureNextHotkey grabs the keyboard and pointer on a separate connection and returns
// the first non-modifier press together with the modifiers held at that moment.
func (s *Session) CaptureNextHotkey(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return "", err
	}
	conn := xu.Conn()
	root := xu.RootWin()
	keybind.Initialize(xu)

	defer conn.Close()
	defer xproto.UngrabPointer(conn, xproto.TimeCurrentTime)
	defer xproto.UngrabKeyboard(conn, xproto.TimeCurrentTime)

	if reply, err := xproto.GrabKeyboard(
		conn,
		false,
		root,
		xproto.TimeCurrentTime,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
	).Reply(); err != nil {
		return "", err
	} else if reply.Status != xproto.GrabStatusSuccess {
		return "", fmt.Errorf("failed to grab keyboard (status=%d)", reply.Status)
	}

	if reply, err := xproto.GrabPointer(
		conn,
		false,
		root,
		xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
		xproto.WindowNone,
		xproto.CursorNone,
		xproto.TimeCurrentTime,
	).Reply(); err != nil {
		return "", err
	} else if reply.Status != xproto.GrabStatusSuccess {
		return "", fmt.Errorf("failed to grab pointer (status=%d)", reply.Status)
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		event, xerr := conn.PollForEvent()
		if xerr != nil {
			return "", xerr
		}
		if event == nil {
			if time.Now().After(deadline) {
				return "", fmt.Errorf("timed out waiting for a key combination")
			}
			time.Sleep(2 * time.Millisecond)
			continue
		}

		switch ev := event.(type) {
		case xproto.ButtonPressEvent:
			code, ok := codeForButton(byte(ev.Detail))
			if !ok || code == combo.BtnLeft || code == combo.BtnRight {
				continue
			}
			return combo.Combo{Mods: modsFromState(ev.State), Key: code}.String(), nil
		case xproto.KeyPressEvent:
			// Look up without modifiers so shift+1 reports "1" rather than "!".
			lookup := keybind.LookupString(xu, 0, ev.Detail)
			code, ok := codeForKeysym(lookup)
			if !ok {
				continue
			}
			if _, isMod := combo.ModifierOf(code); isMod {
				continue
			}
			return combo.Combo{Mods: modsFromState(ev.State), Key: code}.String(), nil
		}
	}
}

func modMask(mods combo.Modifiers) uint16 {
	var mask uint16
	if mods&combo.Ctrl != 0 {
		mask |= xproto.ModMaskControl
	}
	if mods&combo.Shift != 0 {
		mask |= xproto.ModMaskShift
	}
	if mods&combo.Alt != 0 {
		mask |= xproto.ModMask1
	}
	if mods&combo.Meta != 0 {
		mask |= xproto.ModMask4
	}
	return mask
}

func modsFromState(state uint16) combo.Modifiers {
	var mods combo.Modifiers
	if state&xproto.ModMaskControl != 0 {
		mods |= combo.Ctrl
	}
	if state&xproto.ModMaskShift != 0 {
		mods |= combo.Shift
	}
	if state&xproto.ModMask1 != 0 {
		mods |= combo.Alt
	}
	if state&xproto.ModMask4 != 0 {
		mods |= combo.Meta
	}
	return mods
}
