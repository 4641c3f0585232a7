package pckbd

import (
	"errors"
	"testing"
)

func feedAll(kb *Keyboard, codes ...byte) []DecodedKey {
	var out []DecodedKey
	for _, b := range codes {
		if key, ok := kb.Feed(b); ok {
			out = append(out, key)
		}
	}
	return out
}

func keysString(keys []DecodedKey) string {
	s := ""
	for _, k := range keys {
		s += k.String()
	}
	return s
}

func TestKeyboard_Decode(t *testing.T) {
	tests := []struct {
		name    string
		control HandleControl
		codes   []byte
		want    string
	}{
		{"press and release a", Ignore, []byte{0x1E, 0x9E}, "a"},
		{"release alone", Ignore, []byte{0x9E}, ""},
		{"shift a", Ignore, []byte{0x2A, 0x1E, 0x9E, 0xAA}, "A"},
		{"right shift digit", Ignore, []byte{0x36, 0x02, 0x82, 0xB6}, "!"},
		{"shift released", Ignore, []byte{0x2A, 0xAA, 0x1E}, "a"},
		{"caps lock", Ignore, []byte{0x3A, 0xBA, 0x1E, 0x9E}, "A"},
		{"caps lock with shift", Ignore, []byte{0x3A, 0xBA, 0x2A, 0x1E}, "a"},
		{"caps lock leaves digits", Ignore, []byte{0x3A, 0xBA, 0x02}, "1"},
		{"enter and space", Ignore, []byte{0x1C, 0x39}, "\n "},
		{"numpad digit with num lock", Ignore, []byte{0x47}, "7"},
		{"numpad nav without num lock", Ignore, []byte{0x45, 0xC5, 0x47}, "Home"},
		{"extended arrow", Ignore, []byte{0xE0, 0x48, 0xE0, 0xC8}, "ArrowUp"},
		{"extended numpad enter", Ignore, []byte{0xE0, 0x1C}, "\n"},
		{"fake shift ignored", Ignore, []byte{0xE0, 0x2A, 0xE0, 0x47, 0xE0, 0xC7, 0xE0, 0xAA, 0x1E}, "Homea"},
		{"pause sequence", Ignore, []byte{0xE1, 0x1D, 0x45, 0xE1, 0x9D, 0xC5}, "PauseBreak"},
		{"ctrl letter ignored", Ignore, []byte{0x1D, 0x2E}, "c"},
		{"ctrl letter mapped", MapLettersToUnicode, []byte{0x1D, 0x2E}, "\x03"},
		{"function key", Ignore, []byte{0x3B}, "F1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := New(US104{}, tt.control)
			got := keysString(feedAll(kb, tt.codes...))
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyboard_ModifiersProduceNoKey(t *testing.T) {
	kb := New(nil, Ignore)
	for _, b := range []byte{0x2A, 0x36, 0x1D, 0x38, 0x3A, 0x45} {
		if key, ok := kb.Feed(b); ok {
			t.Errorf("byte 0x%02X produced %q", b, key)
		}
	}
	mods := kb.Modifiers()
	if !mods.IsShifted() || !mods.IsCtrl() || !mods.IsAlt() {
		t.Errorf("modifiers not held: %+v", mods)
	}
	if !mods.CapsLock || mods.NumLock {
		t.Errorf("locks = caps %v num %v, want caps on, num off", mods.CapsLock, mods.NumLock)
	}
}

func TestSet1_UnknownCode(t *testing.T) {
	var d Set1
	if _, _, err := d.Advance(0x00); !errors.Is(err, ErrUnknownKeyCode) {
		t.Fatalf("err = %v, want ErrUnknownKeyCode", err)
	}
	if _, _, err := d.Advance(0xE0); err != nil {
		t.Fatalf("prefix: %v", err)
	}
	if _, _, err := d.Advance(0x01); !errors.Is(err, ErrUnknownKeyCode) {
		t.Fatalf("extended err = %v, want ErrUnknownKeyCode", err)
	}
	// The decoder is back at the start after an error.
	ev, ok, err := d.Advance(0x1E)
	if err != nil || !ok || ev != (KeyEvent{Code: KeyA, State: Down}) {
		t.Fatalf("Advance(0x1E) = %+v, %v, %v", ev, ok, err)
	}
}

func TestSet1_Reset(t *testing.T) {
	var d Set1
	d.Advance(0xE0) //nolint:errcheck // prefix only
	d.Reset()
	ev, ok, err := d.Advance(0x48)
	if err != nil || !ok || ev.Code != KeyNumpad8 {
		t.Fatalf("after Reset got %+v, %v, %v; want Numpad8", ev, ok, err)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	const text = "Hello, World! 1+1=2\t~`{}|\\\"'<>?/\n"
	kb := New(US104{}, Ignore)
	got := keysString(feedAll(kb, EncodeString(text)...))
	if got != text {
		t.Fatalf("round trip = %q, want %q", got, text)
	}
	if kb.Modifiers().IsShifted() {
		t.Fatalf("shift left held after encoded text")
	}
}

func TestEncode_CtrlLetters(t *testing.T) {
	seq, ok := EncodeRune(0x03)
	if !ok {
		t.Fatalf("ctrl+c has no encoding")
	}
	kb := New(US104{}, MapLettersToUnicode)
	got := feedAll(kb, seq...)
	if len(got) != 1 || got[0].Rune != 0x03 {
		t.Fatalf("decoded %v, want ctrl+c", got)
	}
}

func TestEncodeKey(t *testing.T) {
	seq, ok := EncodeKey(KeyArrowLeft)
	if !ok {
		t.Fatalf("ArrowLeft has no encoding")
	}
	want := []byte{0xE0, 0x4B, 0xE0, 0xCB}
	if string(seq) != string(want) {
		t.Fatalf("EncodeKey(ArrowLeft) = % X, want % X", seq, want)
	}
	if _, ok := EncodeKey(KeyNone); ok {
		t.Fatalf("KeyNone encoded")
	}
	if _, ok := EncodeRune('é'); ok {
		t.Fatalf("rune outside the layout encoded")
	}
}

func TestKeyCodeNames(t *testing.T) {
	for code := KeyNone; code < numKeyCodes; code++ {
		name := code.String()
		if name == "" {
			t.Fatalf("key %d has no name", code)
		}
		back, ok := ParseKeyCode(name)
		if !ok || back != code {
			t.Fatalf("ParseKeyCode(%q) = %v, %v; want %d", name, back, ok, code)
		}
	}
	if KeyCode(numKeyCodes).String() != "Unknown" {
		t.Fatalf("out of range key not Unknown")
	}
}

func TestParseHandleControlAndLayout(t *testing.T) {
	if h, err := ParseHandleControl("map-letters"); err != nil || h != MapLettersToUnicode {
		t.Errorf("ParseHandleControl(map-letters) = %v, %v", h, err)
	}
	if _, err := ParseHandleControl("bogus"); err == nil {
		t.Errorf("ParseHandleControl(bogus) succeeded")
	}
	if l, err := LayoutByName("US104"); err != nil || l.Name() != "us104" {
		t.Errorf("LayoutByName(US104) = %v, %v", l, err)
	}
	if _, err := LayoutByName("dvorak"); err == nil {
		t.Errorf("LayoutByName(dvorak) succeeded")
	}
}
