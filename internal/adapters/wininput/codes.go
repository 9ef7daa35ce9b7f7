// Package wininput drives the Windows cursor through SendInput and watches global
// hotkeys with low-level keyboard and mouse hooks.
package wininput

import (
	"strconv"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
)

// Virtual-key codes that are not part of a contiguous range.
const (
	vkLBUTTON  uint32 = 0x01
	vkRBUTTON  uint32 = 0x02
	vkMBUTTON  uint32 = 0x04
	vkXBUTTON1 uint32 = 0x05
	vkXBUTTON2 uint32 = 0x06

	vkBACK     uint32 = 0x08
	vkTAB      uint32 = 0x09
	vkRETURN   uint32 = 0x0D
	vkSHIFT    uint32 = 0x10
	vkCONTROL  uint32 = 0x11
	vkMENU     uint32 = 0x12
	vkPAUSE    uint32 = 0x13
	vkCAPITAL  uint32 = 0x14
	vkESCAPE   uint32 = 0x1B
	vkSPACE    uint32 = 0x20
	vkPRIOR    uint32 = 0x21
	vkNEXT     uint32 = 0x22
	vkEND      uint32 = 0x23
	vkHOME     uint32 = 0x24
	vkLEFT     uint32 = 0x25
	vkUP       uint32 = 0x26
	vkRIGHT    uint32 = 0x27
	vkDOWN     uint32 = 0x28
	vkSNAPSHOT uint32 = 0x2C
	vkINSERT   uint32 = 0x2D
	vkDELETE   uint32 = 0x2E
	vk0        uint32 = 0x30
	vkA        uint32 = 0x41
	vkLWIN     uint32 = 0x5B
	vkRWIN     uint32 = 0x5C
	vkAPPS     uint32 = 0x5D
	vkNUMPAD0  uint32 = 0x60
	vkMULTIPLY uint32 = 0x6A
	vkADD      uint32 = 0x6B
	vkSUBTRACT uint32 = 0x6D
	vkDECIMAL  uint32 = 0x6E
	vkDIVIDE   uint32 = 0x6F
	vkF1       uint32 = 0x70
	vkNUMLOCK  uint32 = 0x90
	vkSCROLL   uint32 = 0x91
	vkLSHIFT   uint32 = 0xA0
	vkRSHIFT   uint32 = 0xA1
	vkLCONTROL uint32 = 0xA2
	vkRCONTROL uint32 = 0xA3
	vkLMENU    uint32 = 0xA4
	vkRMENU    uint32 = 0xA5

	vkVOLUMEMUTE uint32 = 0xAD
	vkVOLUMEDOWN uint32 = 0xAE
	vkVOLUMEUP   uint32 = 0xAF
	vkOEM1       uint32 = 0xBA
	vkOEMPLUS    uint32 = 0xBB
	vkOEMCOMMA   uint32 = 0xBC
	vkOEMMINUS   uint32 = 0xBD
	vkOEMPERIOD  uint32 = 0xBE
	vkOEM2       uint32 = 0xBF
	vkOEM3       uint32 = 0xC0
	vkOEM4       uint32 = 0xDB
	vkOEM5       uint32 = 0xDC
	vkOEM6       uint32 = 0xDD
	vkOEM7       uint32 = 0xDE
)

const llkhfExtended = 0x01

var vkByName = map[string]uint32{
	"BTN_LEFT":   vkLBUTTON,
	"BTN_RIGHT":  vkRBUTTON,
	"BTN_MIDDLE": vkMBUTTON,
	"BTN_SIDE":   vkXBUTTON1,
	"BTN_EXTRA":  vkXBUTTON2,

	"KEY_ESC":        vkESCAPE,
	"KEY_MINUS":      vkOEMMINUS,
	"KEY_EQUAL":      vkOEMPLUS,
	"KEY_BACKSPACE":  vkBACK,
	"KEY_TAB":        vkTAB,
	"KEY_LEFTBRACE":  vkOEM4,
	"KEY_RIGHTBRACE": vkOEM6,
	"KEY_ENTER":      vkRETURN,
	"KEY_LEFTCTRL":   vkLCONTROL,
	"KEY_SEMICOLON":  vkOEM1,
	"KEY_APOSTROPHE": vkOEM7,
	"KEY_GRAVE":      vkOEM3,
	"KEY_LEFTSHIFT":  vkLSHIFT,
	"KEY_BACKSLASH":  vkOEM5,
	"KEY_COMMA":      vkOEMCOMMA,
	"KEY_DOT":        vkOEMPERIOD,
	"KEY_SLASH":      vkOEM2,
	"KEY_RIGHTSHIFT": vkRSHIFT,
	"KEY_KPASTERISK": vkMULTIPLY,
	"KEY_LEFTALT":    vkLMENU,
	"KEY_SPACE":      vkSPACE,
	"KEY_CAPSLOCK":   vkCAPITAL,
	"KEY_NUMLOCK":    vkNUMLOCK,
	"KEY_SCROLLLOCK": vkSCROLL,
	"KEY_KPMINUS":    vkSUBTRACT,
	"KEY_KPPLUS":     vkADD,
	"KEY_KPDOT":      vkDECIMAL,
	"KEY_KPENTER":    vkRETURN,
	"KEY_RIGHTCTRL":  vkRCONTROL,
	"KEY_KPSLASH":    vkDIVIDE,
	"KEY_SYSRQ":      vkSNAPSHOT,
	"KEY_RIGHTALT":   vkRMENU,
	"KEY_HOME":       vkHOME,
	"KEY_UP":         vkUP,
	"KEY_PAGEUP":     vkPRIOR,
	"KEY_LEFT":       vkLEFT,
	"KEY_RIGHT":      vkRIGHT,
	"KEY_END":        vkEND,
	"KEY_DOWN":       vkDOWN,
	"KEY_PAGEDOWN":   vkNEXT,
	"KEY_INSERT":     vkINSERT,
	"KEY_DELETE":     vkDELETE,
	"KEY_MUTE":       vkVOLUMEMUTE,
	"KEY_VOLUMEDOWN": vkVOLUMEDOWN,
	"KEY_VOLUMEUP":   vkVOLUMEUP,
	"KEY_PAUSE":      vkPAUSE,
	"KEY_LEFTMETA":   vkLWIN,
	"KEY_RIGHTMETA":  vkRWIN,
	"KEY_MENU":       vkAPPS,
}

var (
	codeToVK = map[combo.Code]uint32{}
	vkToCode = map[uint32]combo.Code{}
)

func init() {
	add := func(name string, vk uint32) {
		code, err := combo.ParseKey(name)
		if err != nil {
			panic("wininput: unknown key name " + name)
		}
		codeToVK[code] = vk
		// KEY_KPENTER shares VK_RETURN; the extended flag tells them apart.
		if _, taken := vkToCode[vk]; !taken || code == combo.KeyEnter {
			vkToCode[vk] = code
		}
	}
	for name, vk := range vkByName {
		add(name, vk)
	}
	for i := 0; i < 26; i++ {
		add("KEY_"+string(rune('A'+i)), vkA+uint32(i))
	}
	for i := 0; i <= 9; i++ {
		add("KEY_"+string(rune('0'+i)), vk0+uint32(i))
		add("KEY_KP"+string(rune('0'+i)), vkNUMPAD0+uint32(i))
	}
	for i := 1; i <= 24; i++ {
		add("KEY_F"+strconv.Itoa(i), vkF1+uint32(i-1))
	}
}

// CodeToVK returns the virtual-key code used by RegisterHotKey and GetAsyncKeyState.
func CodeToVK(code combo.Code) (uint32, bool) {
	vk, ok := codeToVK[code]
	return vk, ok
}

// CodeFromVK maps a low-level hook event to a combo code. Generic modifier VKs are
// resolved to their left/right variant with the extended-key flag.
func CodeFromVK(vk, flags uint32) (combo.Code, bool) {
	switch vk {
	case vkRETURN:
		if flags&llkhfExtended != 0 {
			return combo.KeyKPEnter, true
		}
		return combo.KeyEnter, true
	case vkSHIFT:
		return combo.KeyLeftShift, true
	case vkCONTROL:
		if flags&llkhfExtended != 0 {
			return combo.KeyRightCtrl, true
		}
		return combo.KeyLeftCtrl, true
	case vkMENU:
		if flags&llkhfExtended != 0 {
			return combo.KeyRightAlt, true
		}
		return combo.KeyLeftAlt, true
	}

	code, ok := vkToCode[vk]
	return code, ok
}

// CaptureCandidateCodes lists every code that can be polled through GetAsyncKeyState.
func CaptureCandidateCodes() []combo.Code {
	out := make([]combo.Code, 0, len(codeToVK))
	for code := range codeToVK {
		out = append(out, code)
	}
	return out
}
