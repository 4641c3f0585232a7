package pckbd

// KeyCode identifies a physical key, independent of layout.
type KeyCode uint8

// Key codes. KeyNone marks an unmapped scancode.
const (
	KeyNone KeyCode = iota
	KeyEscape
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyPrintScreen
	KeyScrollLock
	KeyPauseBreak
	KeyBackTick
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key0
	KeyMinus
	KeyEquals
	KeyBackspace
	KeyInsert
	KeyHome
	KeyPageUp
	KeyNumpadLock
	KeyNumpadSlash
	KeyNumpadStar
	KeyNumpadMinus
	KeyTab
	KeyQ
	KeyW
	KeyE
	KeyR
	KeyT
	KeyY
	KeyU
	KeyI
	KeyO
	KeyP
	KeyBracketSquareLeft
	KeyBracketSquareRight
	KeyBackSlash
	KeyDelete
	KeyEnd
	KeyPageDown
	KeyNumpad7
	KeyNumpad8
	KeyNumpad9
	KeyNumpadPlus
	KeyCapsLock
	KeyA
	KeyS
	KeyD
	KeyF
	KeyG
	KeyH
	KeyJ
	KeyK
	KeyL
	KeySemiColon
	KeyQuote
	KeyEnter
	KeyNumpad4
	KeyNumpad5
	KeyNumpad6
	KeyLShift
	KeyZ
	KeyX
	KeyC
	KeyV
	KeyB
	KeyN
	KeyM
	KeyComma
	KeyFullstop
	KeySlash
	KeyRShift
	KeyArrowUp
	KeyNumpad1
	KeyNumpad2
	KeyNumpad3
	KeyNumpadEnter
	KeyLControl
	KeyLWin
	KeyLAlt
	KeySpacebar
	KeyRAltGr
	KeyRWin
	KeyApps
	KeyRControl
	KeyArrowLeft
	KeyArrowDown
	KeyArrowRight
	KeyNumpad0
	KeyNumpadPeriod

	numKeyCodes
)

// keyNames is indexed by KeyCode, in declaration order.
var keyNames = [numKeyCodes]string{
	"None", "Escape", "F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9",
	"F10", "F11", "F12", "PrintScreen", "ScrollLock", "PauseBreak", "BackTick",
	"Key1", "Key2", "Key3", "Key4", "Key5", "Key6", "Key7", "Key8", "Key9",
	"Key0", "Minus", "Equals", "Backspace", "Insert", "Home", "PageUp",
	"NumpadLock", "NumpadSlash", "NumpadStar", "NumpadMinus", "Tab", "Q", "W",
	"E", "R", "T", "Y", "U", "I", "O", "P", "BracketSquareLeft",
	"BracketSquareRight", "BackSlash", "Delete", "End", "PageDown", "Numpad7",
	"Numpad8", "Numpad9", "NumpadPlus", "CapsLock", "A", "S", "D", "F", "G", "H",
	"J", "K", "L", "SemiColon", "Quote", "Enter", "Numpad4", "Numpad5",
	"Numpad6", "LShift", "Z", "X", "C", "V", "B", "N", "M", "Comma", "Fullstop",
	"Slash", "RShift", "ArrowUp", "Numpad1", "Numpad2", "Numpad3", "NumpadEnter",
	"LControl", "LWin", "LAlt", "Spacebar", "RAltGr", "RWin", "Apps", "RControl",
	"ArrowLeft", "ArrowDown", "ArrowRight", "Numpad0", "NumpadPeriod",
}

// String returns the key name, e.g. "ArrowUp".
func (k KeyCode) String() string {
	if k < numKeyCodes {
		return keyNames[k]
	}
	return "Unknown"
}

// ParseKeyCode looks a key up by the name String returns.
func ParseKeyCode(name string) (KeyCode, bool) {
	for i, n := range keyNames {
		if n == name {
			return KeyCode(i), true //nolint:gosec // i < numKeyCodes
		}
	}
	return KeyNone, false
}

// KeyState tells whether a key went down or up.
type KeyState uint8

const (
	Down KeyState = iota
	Up
)

// String returns the string representation of KeyState.
func (s KeyState) String() string {
	if s == Up {
		return "up"
	}
	return "down"
}

// KeyEvent is one decoded make or break code.
type KeyEvent struct {
	Code  KeyCode
	State KeyState
}
