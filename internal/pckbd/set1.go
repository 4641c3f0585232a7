package pckbd

import (
	"errors"
	"fmt"
)

// Scancode set 1 prefixes and flags.
const (
	prefixExtended byte = 0xE0
	prefixPause    byte = 0xE1
	breakBit       byte = 0x80

	// pauseTail is the number of bytes following 0xE1 in the pause sequence
	// E1 1D 45 E1 9D C5.
	pauseTail = 5
)

// ErrUnknownKeyCode is returned for scancodes that map to no key.
var ErrUnknownKeyCode = errors.New("unknown key code")

var set1 = [0x80]KeyCode{
	0x01: KeyEscape,
	0x02: Key1,
	0x03: Key2,
	0x04: Key3,
	0x05: Key4,
	0x06: Key5,
	0x07: Key6,
	0x08: Key7,
	0x09: Key8,
	0x0A: Key9,
	0x0B: Key0,
	0x0C: KeyMinus,
	0x0D: KeyEquals,
	0x0E: KeyBackspace,
	0x0F: KeyTab,
	0x10: KeyQ,
	0x11: KeyW,
	0x12: KeyE,
	0x13: KeyR,
	0x14: KeyT,
	0x15: KeyY,
	0x16: KeyU,
	0x17: KeyI,
	0x18: KeyO,
	0x19: KeyP,
	0x1A: KeyBracketSquareLeft,
	0x1B: KeyBracketSquareRight,
	0x1C: KeyEnter,
	0x1D: KeyLControl,
	0x1E: KeyA,
	0x1F: KeyS,
	0x20: KeyD,
	0x21: KeyF,
	0x22: KeyG,
	0x23: KeyH,
	0x24: KeyJ,
	0x25: KeyK,
	0x26: KeyL,
	0x27: KeySemiColon,
	0x28: KeyQuote,
	0x29: KeyBackTick,
	0x2A: KeyLShift,
	0x2B: KeyBackSlash,
	0x2C: KeyZ,
	0x2D: KeyX,
	0x2E: KeyC,
	0x2F: KeyV,
	0x30: KeyB,
	0x31: KeyN,
	0x32: KeyM,
	0x33: KeyComma,
	0x34: KeyFullstop,
	0x35: KeySlash,
	0x36: KeyRShift,
	0x37: KeyNumpadStar,
	0x38: KeyLAlt,
	0x39: KeySpacebar,
	0x3A: KeyCapsLock,
	0x3B: KeyF1,
	0x3C: KeyF2,
	0x3D: KeyF3,
	0x3E: KeyF4,
	0x3F: KeyF5,
	0x40: KeyF6,
	0x41: KeyF7,
	0x42: KeyF8,
	0x43: KeyF9,
	0x44: KeyF10,
	0x45: KeyNumpadLock,
	0x46: KeyScrollLock,
	0x47: KeyNumpad7,
	0x48: KeyNumpad8,
	0x49: KeyNumpad9,
	0x4A: KeyNumpadMinus,
	0x4B: KeyNumpad4,
	0x4C: KeyNumpad5,
	0x4D: KeyNumpad6,
	0x4E: KeyNumpadPlus,
	0x4F: KeyNumpad1,
	0x50: KeyNumpad2,
	0x51: KeyNumpad3,
	0x52: KeyNumpad0,
	0x53: KeyNumpadPeriod,
	0x57: KeyF11,
	0x58: KeyF12,
}

var set1Extended = [0x80]KeyCode{
	0x1C: KeyNumpadEnter,
	0x1D: KeyRControl,
	0x35: KeyNumpadSlash,
	0x37: KeyPrintScreen,
	0x38: KeyRAltGr,
	0x47: KeyHome,
	0x48: KeyArrowUp,
	0x49: KeyPageUp,
	0x4B: KeyArrowLeft,
	0x4D: KeyArrowRight,
	0x4F: KeyEnd,
	0x50: KeyArrowDown,
	0x51: KeyPageDown,
	0x52: KeyInsert,
	0x53: KeyDelete,
	0x5B: KeyLWin,
	0x5C: KeyRWin,
	0x5D: KeyApps,
}

// fakeShift is sent inside E0-prefixed sequences (print screen, and the
// navigation cluster with num lock on) and does not name a key press.
const fakeShift byte = 0x2A

type decodeState uint8

const (
	stateStart decodeState = iota
	stateExtended
	statePause
)

// Set1 decodes a byte stream in scancode set 1 into key events.
// The zero value is ready to use.
type Set1 struct {
	state     decodeState
	pauseLeft int
}

// Advance feeds one byte. ok is false when the byte was a prefix or part of
// a longer sequence.
func (d *Set1) Advance(b byte) (ev KeyEvent, ok bool, err error) {
	switch d.state {
	case stateExtended:
		d.state = stateStart
		if b&^breakBit == fakeShift {
			return KeyEvent{}, false, nil
		}
		return lookup(&set1Extended, b, true)
	case statePause:
		d.pauseLeft--
		if d.pauseLeft > 0 {
			return KeyEvent{}, false, nil
		}
		d.state = stateStart
		return KeyEvent{Code: KeyPauseBreak, State: Down}, true, nil
	}

	switch b {
	case prefixExtended:
		d.state = stateExtended
		return KeyEvent{}, false, nil
	case prefixPause:
		d.state = statePause
		d.pauseLeft = pauseTail
		return KeyEvent{}, false, nil
	}
	return lookup(&set1, b, false)
}

// Reset drops any partially decoded sequence.
func (d *Set1) Reset() {
	d.state = stateStart
	d.pauseLeft = 0
}

func lookup(table *[0x80]KeyCode, b byte, extended bool) (KeyEvent, bool, error) {
	code := table[b&^breakBit]
	if code == KeyNone {
		if extended {
			return KeyEvent{}, false, fmt.Errorf("%w: 0xE0 0x%02X", ErrUnknownKeyCode, b)
		}
		return KeyEvent{}, false, fmt.Errorf("%w: 0x%02X", ErrUnknownKeyCode, b)
	}
	state := Down
	if b&breakBit != 0 {
		state = Up
	}
	return KeyEvent{Code: code, State: state}, true, nil
}
