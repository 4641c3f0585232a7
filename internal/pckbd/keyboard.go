// Package pckbd decodes PC keyboard scancodes into keys.
//
// Keyboard combines a scancode set 1 decoder, the modifier and lock state,
// and a Layout. Feed it one byte at a time:
//
//	kb := pckbd.New(pckbd.US104{}, pckbd.Ignore)
//	if ev, ok, err := kb.AddByte(b); err == nil && ok {
//		if key, ok := kb.ProcessKeyEvent(ev); ok {
//			fmt.Print(key)
//		}
//	}
package pckbd

// Modifiers is the modifier and lock key state.
type Modifiers struct {
	LShift   bool
	RShift   bool
	LCtrl    bool
	RCtrl    bool
	LAlt     bool
	RAltGr   bool
	NumLock  bool
	CapsLock bool
}

// IsShifted reports whether either shift key is held.
func (m Modifiers) IsShifted() bool { return m.LShift || m.RShift }

// IsCtrl reports whether either control key is held.
func (m Modifiers) IsCtrl() bool { return m.LCtrl || m.RCtrl }

// IsAlt reports whether either alt key is held.
func (m Modifiers) IsAlt() bool { return m.LAlt || m.RAltGr }

// IsCaps reports whether letters come out upper case.
func (m Modifiers) IsCaps() bool { return m.IsShifted() != m.CapsLock }

// Keyboard turns scancode bytes into decoded keys.
type Keyboard struct {
	decoder Set1
	layout  Layout
	control HandleControl
	mods    Modifiers
}

// New returns a keyboard with num lock on and every other modifier off.
func New(layout Layout, control HandleControl) *Keyboard {
	if layout == nil {
		layout = US104{}
	}
	return &Keyboard{
		layout:  layout,
		control: control,
		mods:    Modifiers{NumLock: true},
	}
}

// AddByte feeds one scancode byte. ok is false while a multi-byte sequence
// is incomplete.
func (k *Keyboard) AddByte(b byte) (KeyEvent, bool, error) {
	return k.decoder.Advance(b)
}

// ProcessKeyEvent updates modifier state and maps key presses through the
// layout. Modifier keys and key releases produce no key.
func (k *Keyboard) ProcessKeyEvent(ev KeyEvent) (DecodedKey, bool) {
	down := ev.State == Down
	switch ev.Code {
	case KeyLShift:
		k.mods.LShift = down
	case KeyRShift:
		k.mods.RShift = down
	case KeyLControl:
		k.mods.LCtrl = down
	case KeyRControl:
		k.mods.RCtrl = down
	case KeyLAlt:
		k.mods.LAlt = down
	case KeyRAltGr:
		k.mods.RAltGr = down
	case KeyCapsLock:
		if down {
			k.mods.CapsLock = !k.mods.CapsLock
		}
	case KeyNumpadLock:
		if down {
			k.mods.NumLock = !k.mods.NumLock
		}
	default:
		if !down {
			return DecodedKey{}, false
		}
		return k.layout.MapKeycode(ev.Code, k.mods, k.control), true
	}
	return DecodedKey{}, false
}

// Feed is AddByte followed by ProcessKeyEvent. Decoder errors drop the byte.
func (k *Keyboard) Feed(b byte) (DecodedKey, bool) {
	ev, ok, err := k.AddByte(b)
	if err != nil || !ok {
		return DecodedKey{}, false
	}
	return k.ProcessKeyEvent(ev)
}

// Modifiers returns the current modifier state.
func (k *Keyboard) Modifiers() Modifiers {
	return k.mods
}
