// Package x11input drives the pointer through XTEST and binds global hotkeys with
// passive key and button grabs on the root window.
package x11input

import (
	"strings"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
)

// keysymNames pairs canonical key names with the X keysym spelling keybind understands.
var keysymNames = map[string]string{
	"KEY_ESC":        "Escape",
	"KEY_ENTER":      "Return",
	"KEY_TAB":        "Tab",
	"KEY_SPACE":      "space",
	"KEY_BACKSPACE":  "BackSpace",
	"KEY_LEFTSHIFT":  "Shift_L",
	"KEY_RIGHTSHIFT": "Shift_R",
	"KEY_LEFTCTRL":   "Control_L",
	"KEY_RIGHTCTRL":  "Control_R",
	"KEY_LEFTALT":    "Alt_L",
	"KEY_RIGHTALT":   "Alt_R",
	"KEY_LEFTMETA":   "Super_L",
	"KEY_RIGHTMETA":  "Super_R",
	"KEY_CAPSLOCK":   "Caps_Lock",
	"KEY_NUMLOCK":    "Num_Lock",
	"KEY_SCROLLLOCK": "Scroll_Lock",
	"KEY_PAGEUP":     "Prior",
	"KEY_PAGEDOWN":   "Next",
	"KEY_INSERT":     "Insert",
	"KEY_DELETE":     "Delete",
	"KEY_HOME":       "Home",
	"KEY_END":        "End",
	"KEY_UP":         "Up",
	"KEY_DOWN":       "Down",
	"KEY_LEFT":       "Left",
	"KEY_RIGHT":      "Right",
	"KEY_MENU":       "Menu",
	"KEY_PAUSE":      "Pause",
	"KEY_SYSRQ":      "Print",
	"KEY_MINUS":      "minus",
	"KEY_EQUAL":      "equal",
	"KEY_LEFTBRACE":  "bracketleft",
	"KEY_RIGHTBRACE": "bracketright",
	"KEY_SEMICOLON":  "semicolon",
	"KEY_APOSTROPHE": "apostrophe",
	"KEY_GRAVE":      "grave",
	"KEY_BACKSLASH":  "backslash",
	"KEY_COMMA":      "comma",
	"KEY_DOT":        "period",
	"KEY_SLASH":      "slash",
	"KEY_KPPLUS":     "KP_Add",
	"KEY_KPMINUS":    "KP_Subtract",
	"KEY_KPASTERISK": "KP_Multiply",
	"KEY_KPSLASH":    "KP_Divide",
	"KEY_KPDOT":      "KP_Decimal",
	"KEY_KPENTER":    "KP_Enter",
}

var keysymToCode = map[string]combo.Code{}

func init() {
	for name, sym := range keysymNames {
		code, err := combo.ParseKey(name)
		if err != nil {
			panic("x11input: unknown key name " + name)
		}
		keysymToCode[strings.ToLower(sym)] = code
	}
	// keybind reports these spellings for Prior/Next on most layouts.
	keysymToCode["page_up"] = keysymToCode["prior"]
	keysymToCode["page_down"] = keysymToCode["next"]
}

// keysymForCode returns the keysym string used to look up keycodes for a combo key.
func keysymForCode(code combo.Code) (string, bool) {
	name := code.Name()
	if sym, ok := keysymNames[name]; ok {
		return sym, true
	}
	token, ok := strings.CutPrefix(name, "KEY_")
	if !ok {
		return "", false
	}
	switch {
	case len(token) == 1 && token[0] >= 'A' && token[0] <= 'Z':
		return strings.ToLower(token), true
	case len(token) == 1 && token[0] >= '0' && token[0] <= '9':
		return token, true
	case strings.HasPrefix(token, "F") && isDigits(token[1:]):
		return token, true
	case strings.HasPrefix(token, "KP") && len(token) == 3 && isDigits(token[2:]):
		return "KP_" + token[2:], true
	}
	return "", false
}

// codeForKeysym maps a keybind.LookupString result back to a combo key.
func codeForKeysym(value string) (combo.Code, bool) {
	raw := strings.ToLower(strings.TrimSpace(value))
	if raw == "" {
		return 0, false
	}
	if code, ok := keysymToCode[raw]; ok {
		return code, true
	}

	var name string
	switch {
	case len(raw) == 1 && (raw[0] >= 'a' && raw[0] <= 'z' || raw[0] >= '0' && raw[0] <= '9'):
		name = "KEY_" + strings.ToUpper(raw)
	case strings.HasPrefix(raw, "f") && isDigits(raw[1:]):
		name = "KEY_" + strings.ToUpper(raw)
	case strings.HasPrefix(raw, "kp_") && isDigits(raw[3:]):
		name = "KEY_KP" + raw[3:]
	default:
		return 0, false
	}
	code, err := combo.ParseKey(name)
	if err != nil {
		return 0, false
	}
	return code, true
}

// Core X button numbers: 8 and 9 are the back/forward side buttons.
func buttonForCode(code combo.Code) (byte, bool) {
	switch code {
	case combo.BtnLeft:
		return 1, true
	case combo.BtnMiddle:
		return 2, true
	case combo.BtnRight:
		return 3, true
	case combo.BtnSide:
		return 8, true
	case combo.BtnExtra:
		return 9, true
	}
	return 0, false
}

func codeForButton(button byte) (combo.Code, bool) {
	for _, code := range []combo.Code{combo.BtnLeft, combo.BtnMiddle, combo.BtnRight, combo.BtnSide, combo.BtnExtra} {
		if b, _ := buttonForCode(code); b == button {
			return code, true
		}
	}
	return 0, false
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func clampInt16(value int) int16 {
	if value < -32768 {
		return -32768
	}
	if value > 32767 {
		return 32767
	}
	return int16(value)
}
