package combo

import (
	"fmt"
	"strconv"
	"strings"
)

// Code is a Linux input event code (EV_KEY). Every backend translates its native key
// identifiers to and from this space.
type Code uint16

const (
	BtnLeft   Code = 0x110
	BtnRight  Code = 0x111
	BtnMiddle Code = 0x112
	BtnSide   Code = 0x113
	BtnExtra  Code = 0x114

	KeyEsc        Code = 1
	KeyEnter      Code = 28
	KeyLeftCtrl   Code = 29
	KeyLeftShift  Code = 42
	KeyRightShift Code = 54
	KeyLeftAlt    Code = 56
	KeyKPEnter    Code = 96
	KeyRightCtrl  Code = 97
	KeyRightAlt   Code = 100
	KeyLeftMeta   Code = 125
	KeyRightMeta  Code = 126
)

var namedCodes = []struct {
	code Code
	name string
}{
	{BtnLeft, "BTN_LEFT"},
	{BtnRight, "BTN_RIGHT"},
	{BtnMiddle, "BTN_MIDDLE"},
	{BtnSide, "BTN_SIDE"},
	{BtnExtra, "BTN_EXTRA"},

	{KeyEsc, "KEY_ESC"},
	{12, "KEY_MINUS"},
	{13, "KEY_EQUAL"},
	{14, "KEY_BACKSPACE"},
	{15, "KEY_TAB"},
	{26, "KEY_LEFTBRACE"},
	{27, "KEY_RIGHTBRACE"},
	{KeyEnter, "KEY_ENTER"},
	{KeyLeftCtrl, "KEY_LEFTCTRL"},
	{39, "KEY_SEMICOLON"},
	{40, "KEY_APOSTROPHE"},
	{41, "KEY_GRAVE"},
	{KeyLeftShift, "KEY_LEFTSHIFT"},
	{43, "KEY_BACKSLASH"},
	{51, "KEY_COMMA"},
	{52, "KEY_DOT"},
	{53, "KEY_SLASH"},
	{KeyRightShift, "KEY_RIGHTSHIFT"},
	{55, "KEY_KPASTERISK"},
	{KeyLeftAlt, "KEY_LEFTALT"},
	{57, "KEY_SPACE"},
	{58, "KEY_CAPSLOCK"},
	{69, "KEY_NUMLOCK"},
	{70, "KEY_SCROLLLOCK"},
	{74, "KEY_KPMINUS"},
	{78, "KEY_KPPLUS"},
	{83, "KEY_KPDOT"},
	{KeyKPEnter, "KEY_KPENTER"},
	{KeyRightCtrl, "KEY_RIGHTCTRL"},
	{98, "KEY_KPSLASH"},
	{99, "KEY_SYSRQ"},
	{KeyRightAlt, "KEY_RIGHTALT"},
	{102, "KEY_HOME"},
	{103, "KEY_UP"},
	{104, "KEY_PAGEUP"},
	{105, "KEY_LEFT"},
	{106, "KEY_RIGHT"},
	{107, "KEY_END"},
	{108, "KEY_DOWN"},
	{109, "KEY_PAGEDOWN"},
	{110, "KEY_INSERT"},
	{111, "KEY_DELETE"},
	{113, "KEY_MUTE"},
	{114, "KEY_VOLUMEDOWN"},
	{115, "KEY_VOLUMEUP"},
	{119, "KEY_PAUSE"},
	{KeyLeftMeta, "KEY_LEFTMETA"},
	{KeyRightMeta, "KEY_RIGHTMETA"},
	{139, "KEY_MENU"},
}

// Letter and keypad rows follow the physical layout of the Linux keycode table.
var codeRows = []struct {
	first Code
	keys  string
}{
	{16, "QWERTYUIOP"},
	{30, "ASDFGHJKL"},
	{44, "ZXCVBNM"},
}

var (
	nameToCode = map[string]Code{}
	codeToName = map[Code]string{}
)

// aliases are the friendly spellings users type or older configs stored.
var aliases = map[string]string{
	"ESCAPE":       "KEY_ESC",
	"RETURN":       "KEY_ENTER",
	"DEL":          "KEY_DELETE",
	"INS":          "KEY_INSERT",
	"PGUP":         "KEY_PAGEUP",
	"PAGE_UP":      "KEY_PAGEUP",
	"PGDN":         "KEY_PAGEDOWN",
	"PAGE_DOWN":    "KEY_PAGEDOWN",
	"CAPS_LOCK":    "KEY_CAPSLOCK",
	"NUM_LOCK":     "KEY_NUMLOCK",
	"SCROLL_LOCK":  "KEY_SCROLLLOCK",
	"PRINTSCREEN":  "KEY_SYSRQ",
	"PRINT_SCREEN": "KEY_SYSRQ",
	"PRTSC":        "KEY_SYSRQ",
	"BREAK":        "KEY_PAUSE",
	"APPS":         "KEY_MENU",
	"`":            "KEY_GRAVE",
	"-":            "KEY_MINUS",
	"=":            "KEY_EQUAL",
	"[":            "KEY_LEFTBRACE",
	"]":            "KEY_RIGHTBRACE",
	";":            "KEY_SEMICOLON",
	"'":            "KEY_APOSTROPHE",
	"\\":           "KEY_BACKSLASH",
	",":            "KEY_COMMA",
	".":            "KEY_DOT",
	"/":            "KEY_SLASH",
	"MOUSE1":       "BTN_LEFT",
	"MOUSE2":       "BTN_RIGHT",
	"MOUSE3":       "BTN_MIDDLE",
	"MIDDLE":       "BTN_MIDDLE",
	"MOUSE4":       "BTN_SIDE",
	"X1":           "BTN_SIDE",
	"BTN_BACK":     "BTN_SIDE",
	"MOUSE5":       "BTN_EXTRA",
	"X2":           "BTN_EXTRA",
	"BTN_FORWARD":  "BTN_EXTRA",
}

var mouseShortNames = map[Code]string{
	BtnLeft:   "mouse1",
	BtnRight:  "mouse2",
	BtnMiddle: "mouse3",
	BtnSide:   "mouse4",
	BtnExtra:  "mouse5",
}

func init() {
	add := func(code Code, name string) {
		nameToCode[name] = code
		codeToName[code] = name
	}
	for _, entry := range namedCodes {
		add(entry.code, entry.name)
	}
	for _, row := range codeRows {
		for i, r := range row.keys {
			add(row.first+Code(i), "KEY_"+string(r))
		}
	}
	// KEY_1..KEY_9 are 2..10, KEY_0 is 11.
	for i := 1; i <= 9; i++ {
		add(Code(i+1), "KEY_"+strconv.Itoa(i))
	}
	add(11, "KEY_0")
	for i := 1; i <= 10; i++ {
		add(Code(58+i), "KEY_F"+strconv.Itoa(i))
	}
	add(87, "KEY_F11")
	add(88, "KEY_F12")
	for i := 13; i <= 24; i++ {
		add(Code(170+i), "KEY_F"+strconv.Itoa(i))
	}
	keypad := map[int]Code{7: 71, 8: 72, 9: 73, 4: 75, 5: 76, 6: 77, 1: 79, 2: 80, 3: 81, 0: 82}
	for digit, code := range keypad {
		add(code, "KEY_KP"+strconv.Itoa(digit))
	}
}

// ParseKey resolves one key token: canonical names (KEY_F8, BTN_SIDE), their short form
// (f8, kp5, pageup) and the aliases above. Matching is case-insensitive.
func ParseKey(token string) (Code, error) {
	raw := strings.ToUpper(strings.TrimSpace(token))
	if raw == "" {
		return 0, fmt.Errorf("key is empty")
	}
	if code, ok := nameToCode[raw]; ok {
		return code, nil
	}
	if code, ok := nameToCode["KEY_"+raw]; ok {
		return code, nil
	}
	if alias, ok := aliases[raw]; ok {
		return nameToCode[alias], nil
	}
	return 0, fmt.Errorf("unknown key %q: use names like f8, ctrl+shift+a or mouse4", token)
}

// Name returns the canonical KEY_/BTN_ name, or the decimal code when unnamed.
func (c Code) Name() string {
	if name, ok := codeToName[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

// Short is the lowercase spelling used inside hotkey ids.
func (c Code) Short() string {
	if name, ok := mouseShortNames[c]; ok {
		return name
	}
	name, ok := codeToName[c]
	if !ok {
		return strconv.Itoa(int(c))
	}
	return strings.ToLower(strings.TrimPrefix(name, "KEY_"))
}

func (c Code) IsMouseButton() bool {
	return c >= BtnLeft && c <= BtnExtra
}

// Codes lists every named code, used by capture loops that poll key state.
func Codes() []Code {
	out := make([]Code, 0, len(codeToName))
	for code := range codeToName {
		out = append(out, code)
	}
	return out
}
