package pckbd

import (
	"fmt"
	"strings"
)

// HandleControl selects what ctrl+letter produces.
type HandleControl uint8

const (
	// Ignore leaves letters unchanged while ctrl is held.
	Ignore HandleControl = iota
	// MapLettersToUnicode turns ctrl+A..ctrl+Z into U+0001..U+001A.
	MapLettersToUnicode
)

// String returns the string representation of HandleControl.
func (h HandleControl) String() string {
	switch h {
	case Ignore:
		return "ignore"
	case MapLettersToUnicode:
		return "map-letters"
	default:
		return "unknown"
	}
}

// ParseHandleControl converts a string to HandleControl.
func ParseHandleControl(s string) (HandleControl, error) {
	switch strings.ToLower(s) {
	case "", "ignore":
		return Ignore, nil
	case "map-letters", "map-letters-to-unicode":
		return MapLettersToUnicode, nil
	default:
		return Ignore, fmt.Errorf("invalid control handling: %q (expected: ignore|map-letters)", s)
	}
}

// DecodedKey is either a character or a key with no character.
type DecodedKey struct {
	Rune rune
	Raw  KeyCode
}

// Unicode builds a character key.
func Unicode(r rune) DecodedKey { return DecodedKey{Rune: r} }

// RawKey builds a key without a character.
func RawKey(code KeyCode) DecodedKey { return DecodedKey{Raw: code} }

// IsRaw reports whether the key has no character.
func (k DecodedKey) IsRaw() bool { return k.Raw != KeyNone }

// String renders the key the way the keyboard task prints it: the
// character itself, or the key name.
func (k DecodedKey) String() string {
	if k.IsRaw() {
		return k.Raw.String()
	}
	return string(k.Rune)
}

// Layout maps a key code and modifier state to a decoded key.
type Layout interface {
	Name() string
	MapKeycode(code KeyCode, mods Modifiers, control HandleControl) DecodedKey
}

// LayoutByName returns a known layout.
func LayoutByName(name string) (Layout, error) {
	switch strings.ToLower(name) {
	case "", "us104", "us104key":
		return US104{}, nil
	default:
		return nil, fmt.Errorf("unknown keyboard layout: %q (expected: us104)", name)
	}
}

// US104 is the US 104-key layout.
type US104 struct{}

// Name returns "us104".
func (US104) Name() string { return "us104" }

type printable struct {
	plain   rune
	shifted rune
}

var us104Printable = map[KeyCode]printable{
	KeyBackTick:           {'`', '~'},
	Key1:                  {'1', '!'},
	Key2:                  {'2', '@'},
	Key3:                  {'3', '#'},
	Key4:                  {'4', '$'},
	Key5:                  {'5', '%'},
	Key6:                  {'6', '^'},
	Key7:                  {'7', '&'},
	Key8:                  {'8', '*'},
	Key9:                  {'9', '('},
	Key0:                  {'0', ')'},
	KeyMinus:              {'-', '_'},
	KeyEquals:             {'=', '+'},
	KeyBracketSquareLeft:  {'[', '{'},
	KeyBracketSquareRight: {']', '}'},
	KeyBackSlash:          {'\\', '|'},
	KeySemiColon:          {';', ':'},
	KeyQuote:              {'\'', '"'},
	KeyComma:              {',', '<'},
	KeyFullstop:           {'.', '>'},
	KeySlash:              {'/', '?'},
}

var us104Letters = map[KeyCode]rune{
	KeyA: 'a', KeyB: 'b', KeyC: 'c', KeyD: 'd', KeyE: 'e', KeyF: 'f', KeyG: 'g',
	KeyH: 'h', KeyI: 'i', KeyJ: 'j', KeyK: 'k', KeyL: 'l', KeyM: 'm', KeyN: 'n',
	KeyO: 'o', KeyP: 'p', KeyQ: 'q', KeyR: 'r', KeyS: 's', KeyT: 't', KeyU: 'u',
	KeyV: 'v', KeyW: 'w', KeyX: 'x', KeyY: 'y', KeyZ: 'z',
}

var us104Fixed = map[KeyCode]rune{
	KeyEscape:      0x1B,
	KeyBackspace:   0x08,
	KeyTab:         '\t',
	KeyEnter:       '\n',
	KeySpacebar:    ' ',
	KeyDelete:      0x7F,
	KeyNumpadSlash: '/',
	KeyNumpadStar:  '*',
	KeyNumpadMinus: '-',
	KeyNumpadPlus:  '+',
	KeyNumpadEnter: '\n',
}

// numpad maps numpad keys to their num-lock digit and their navigation key.
var us104Numpad = map[KeyCode]struct {
	digit rune
	nav   DecodedKey
}{
	KeyNumpad0:      {'0', RawKey(KeyInsert)},
	KeyNumpad1:      {'1', RawKey(KeyEnd)},
	KeyNumpad2:      {'2', RawKey(KeyArrowDown)},
	KeyNumpad3:      {'3', RawKey(KeyPageDown)},
	KeyNumpad4:      {'4', RawKey(KeyArrowLeft)},
	KeyNumpad5:      {'5', RawKey(KeyNumpad5)},
	KeyNumpad6:      {'6', RawKey(KeyArrowRight)},
	KeyNumpad7:      {'7', RawKey(KeyHome)},
	KeyNumpad8:      {'8', RawKey(KeyArrowUp)},
	KeyNumpad9:      {'9', RawKey(KeyPageUp)},
	KeyNumpadPeriod: {'.', Unicode(0x7F)},
}

// MapKeycode implements Layout.
func (US104) MapKeycode(code KeyCode, mods Modifiers, control HandleControl) DecodedKey {
	if r, ok := us104Letters[code]; ok {
		if mods.IsCtrl() && control == MapLettersToUnicode {
			return Unicode(r - 'a' + 1)
		}
		if mods.IsCaps() {
			return Unicode(r - 'a' + 'A')
		}
		return Unicode(r)
	}
	if p, ok := us104Printable[code]; ok {
		if mods.IsShifted() {
			return Unicode(p.shifted)
		}
		return Unicode(p.plain)
	}
	if r, ok := us104Fixed[code]; ok {
		return Unicode(r)
	}
	if n, ok := us104Numpad[code]; ok {
		if mods.NumLock {
			return Unicode(n.digit)
		}
		return n.nav
	}
	return RawKey(code)
}
