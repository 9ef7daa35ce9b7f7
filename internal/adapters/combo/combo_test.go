package combo

import "testing"

func TestParseCanonicalizes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "F8", want: "f8"},
		{raw: "Shift+Ctrl+A", want: "ctrl+shift+a"},
		{raw: "control + alt + KEY_PAGEUP", want: "ctrl+alt+pageup"},
		{raw: "cmd+escape", want: "win+esc"},
		{raw: "alt+mouse4", want: "alt+mouse4"},
		{raw: "BTN_FORWARD", want: "mouse5"},
		{raw: "ctrl+1", want: "ctrl+1"},
		{raw: "kp5", want: "kp5"},
		{raw: "shift+f13", want: "shift+f13"},
		{raw: "ctrl+.", want: "ctrl+dot"},
	}

	for _, tc := range tests {
		got, err := Canonical(tc.raw)
		if err != nil {
			t.Fatalf("Canonical(%q) returned error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("Canonical(%q)=%q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"Bind Key",
		"Press...",
		"ctrl+",
		"ctrl+shift",
		"a+b",
		"leftctrl",
		"mouse1",
		"ctrl+mouse2",
		"hyper+a",
	} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("Parse(%q) succeeded, want error", raw)
		}
	}
}

func TestCodeNames(t *testing.T) {
	tests := []struct {
		code Code
		name string
	}{
		{code: 16, name: "KEY_Q"},
		{code: 38, name: "KEY_L"},
		{code: 50, name: "KEY_M"},
		{code: 2, name: "KEY_1"},
		{code: 11, name: "KEY_0"},
		{code: 59, name: "KEY_F1"},
		{code: 88, name: "KEY_F12"},
		{code: 194, name: "KEY_F24"},
		{code: 82, name: "KEY_KP0"},
		{code: BtnSide, name: "BTN_SIDE"},
	}
	for _, tc := range tests {
		if got := tc.code.Name(); got != tc.name {
			t.Fatalf("Code(%d).Name()=%q, want %q", tc.code, got, tc.name)
		}
		parsed, err := ParseKey(tc.name)
		if err != nil || parsed != tc.code {
			t.Fatalf("ParseKey(%q)=%d,%v, want %d", tc.name, parsed, err, tc.code)
		}
	}
	if got := Code(999).Name(); got != "999" {
		t.Fatalf("unnamed code rendered as %q", got)
	}
}

func TestTrackerReportsCombos(t *testing.T) {
	tr := NewTracker()

	if _, ok := tr.Update(KeyLeftCtrl, true); ok {
		t.Fatalf("modifier press reported a combo")
	}
	if _, ok := tr.Update(KeyRightShift, true); ok {
		t.Fatalf("modifier press reported a combo")
	}

	f8, _ := ParseKey("f8")
	c, ok := tr.Update(f8, true)
	if !ok {
		t.Fatalf("key press with modifiers held did not report a combo")
	}
	if got := c.String(); got != "ctrl+shift+f8" {
		t.Fatalf("combo=%q, want ctrl+shift+f8", got)
	}

	if _, ok := tr.Update(f8, true); ok {
		t.Fatalf("auto-repeat reported a combo")
	}

	tr.Update(f8, false)
	tr.Update(KeyRightShift, false)
	c, ok = tr.Update(f8, true)
	if !ok || c.String() != "ctrl+f8" {
		t.Fatalf("combo=%q,%v, want ctrl+f8", c.String(), ok)
	}

	tr.Reset()
	if tr.Mods() != 0 {
		t.Fatalf("Reset left modifiers held: %v", tr.Mods())
	}
}
