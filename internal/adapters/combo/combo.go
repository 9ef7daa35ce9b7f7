// Package combo implements the hotkey id grammar shared by every binder backend:
// modifiers and one key joined by "+", e.g. "ctrl+shift+f8" or "alt+mouse4".
package combo

import (
	"fmt"
	"strings"
)

type Modifiers uint8

const (
	Ctrl Modifiers = 1 << iota
	Shift
	Alt
	Meta
)

var modifierTokens = map[string]Modifiers{
	"ctrl":    Ctrl,
	"control": Ctrl,
	"shift":   Shift,
	"alt":     Alt,
	"option":  Alt,
	"win":     Meta,
	"super":   Meta,
	"meta":    Meta,
	"cmd":     Meta,
	"command": Meta,
}

var modifierOrder = []struct {
	mod  Modifiers
	name string
}{
	{Ctrl, "ctrl"},
	{Shift, "shift"},
	{Alt, "alt"},
	{Meta, "win"},
}

type Combo struct {
	Mods Modifiers
	Key  Code
}

// Parse reads a hotkey id. Exactly one non-modifier key is required, and the primary
// mouse buttons are refused because binding them would swallow ordinary clicks.
func Parse(id string) (Combo, error) {
	raw := strings.TrimSpace(id)
	if raw == "" {
		return Combo{}, fmt.Errorf("hotkey is empty")
	}

	var (
		c      Combo
		hasKey bool
	)
	for _, part := range strings.Split(raw, "+") {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			return Combo{}, fmt.Errorf("hotkey %q has an empty key", id)
		}
		if mod, ok := modifierTokens[token]; ok {
			c.Mods |= mod
			continue
		}
		if hasKey {
			return Combo{}, fmt.Errorf("hotkey %q has more than one key", id)
		}
		code, err := ParseKey(token)
		if err != nil {
			return Combo{}, err
		}
		if _, isMod := ModifierOf(code); isMod {
			return Combo{}, fmt.Errorf("hotkey %q needs a non-modifier key", id)
		}
		c.Key = code
		hasKey = true
	}

	if !hasKey {
		return Combo{}, fmt.Errorf("hotkey %q needs a non-modifier key", id)
	}
	if c.Key == BtnLeft || c.Key == BtnRight {
		return Combo{}, fmt.Errorf("hotkey %q: left and right mouse buttons cannot be bound", id)
	}
	return c, nil
}

// Canonical parses id and renders it back in normalized form.
func Canonical(id string) (string, error) {
	c, err := Parse(id)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

func (c Combo) String() string {
	parts := make([]string, 0, 5)
	for _, m := range modifierOrder {
		if c.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	parts = append(parts, c.Key.Short())
	return strings.Join(parts, "+")
}

// ModifierOf maps left/right modifier key codes to their modifier bit.
func ModifierOf(code Code) (Modifiers, bool) {
	switch code {
	case KeyLeftCtrl, KeyRightCtrl:
		return Ctrl, true
	case KeyLeftShift, KeyRightShift:
		return Shift, true
	case KeyLeftAlt, KeyRightAlt:
		return Alt, true
	case KeyLeftMeta, KeyRightMeta:
		return Meta, true
	}
	return 0, false
}

// Tracker turns a raw key/button event stream into combo presses. It is not safe for
// concurrent use; backends feed it from their single event goroutine.
type Tracker struct {
	held map[Code]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{held: make(map[Code]struct{})}
}

// Update records a key transition. It returns the completed combo when a non-modifier
// key goes down; auto-repeat of a key that is already held returns false.
func (t *Tracker) Update(code Code, down bool) (Combo, bool) {
	if !down {
		delete(t.held, code)
		return Combo{}, false
	}
	if _, repeat := t.held[code]; repeat {
		return Combo{}, false
	}
	t.held[code] = struct{}{}

	if _, isMod := ModifierOf(code); isMod {
		return Combo{}, false
	}
	return Combo{Mods: t.Mods(), Key: code}, true
}

func (t *Tracker) Mods() Modifiers {
	var mods Modifiers
	for code := range t.held {
		if m, ok := ModifierOf(code); ok {
			mods |= m
		}
	}
	return mods
}

// Reset forgets held keys, e.g. after the event source was reopened.
func (t *Tracker) Reset() {
	clear(t.held)
}
