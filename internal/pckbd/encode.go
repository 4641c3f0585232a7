package pckbd

type makeCode struct {
	code     byte
	extended bool
}

type runeKey struct {
	code  KeyCode
	shift bool
	ctrl  bool
}

var (
	makeCodes = buildMakeCodes()
	runeKeys  = buildRuneKeys()
)

func buildMakeCodes() map[KeyCode]makeCode {
	m := make(map[KeyCode]makeCode, numKeyCodes)
	for b, code := range set1 {
		if code != KeyNone {
			m[code] = makeCode{code: byte(b)} //nolint:gosec // b < 0x80
		}
	}
	for b, code := range set1Extended {
		if code != KeyNone {
			m[code] = makeCode{code: byte(b), extended: true} //nolint:gosec // b < 0x80
		}
	}
	return m
}

func buildRuneKeys() map[rune]runeKey {
	m := make(map[rune]runeKey, 128)
	for code, r := range us104Letters {
		m[r] = runeKey{code: code}
		m[r-'a'+'A'] = runeKey{code: code, shift: true}
		m[r-'a'+1] = runeKey{code: code, ctrl: true}
	}
	for code, p := range us104Printable {
		m[p.plain] = runeKey{code: code}
		m[p.shifted] = runeKey{code: code, shift: true}
	}
	m[' '] = runeKey{code: KeySpacebar}
	m['\t'] = runeKey{code: KeyTab}
	m['\n'] = runeKey{code: KeyEnter}
	m['\r'] = runeKey{code: KeyEnter}
	m[0x1B] = runeKey{code: KeyEscape}
	m[0x08] = runeKey{code: KeyBackspace}
	// Terminals send DEL for the backspace key.
	m[0x7F] = runeKey{code: KeyBackspace}
	return m
}

// EncodeKey returns the make and break sequence for one press of code.
func EncodeKey(code KeyCode) ([]byte, bool) {
	mc, ok := makeCodes[code]
	if !ok {
		return nil, false
	}
	return appendPress(nil, mc), true
}

// EncodeRune returns the scancodes a US 104-key keyboard sends to type r,
// wrapping the key in shift or ctrl presses when needed.
func EncodeRune(r rune) ([]byte, bool) {
	rk, ok := runeKeys[r]
	if !ok {
		return nil, false
	}
	mc := makeCodes[rk.code]
	var mod makeCode
	switch {
	case rk.shift:
		mod = makeCodes[KeyLShift]
	case rk.ctrl:
		mod = makeCodes[KeyLControl]
	default:
		return appendPress(nil, mc), true
	}
	out := appendMake(nil, mod)
	out = appendPress(out, mc)
	return appendBreak(out, mod), true
}

// EncodeString encodes every rune of s, skipping runes with no key.
func EncodeString(s string) []byte {
	var out []byte
	for _, r := range s {
		if seq, ok := EncodeRune(r); ok {
			out = append(out, seq...)
		}
	}
	return out
}

func appendPress(out []byte, mc makeCode) []byte {
	return appendBreak(appendMake(out, mc), mc)
}

func appendMake(out []byte, mc makeCode) []byte {
	if mc.extended {
		out = append(out, prefixExtended)
	}
	return append(out, mc.code)
}

func appendBreak(out []byte, mc makeCode) []byte {
	if mc.extended {
		out = append(out, prefixExtended)
	}
	return append(out, mc.code|breakBit)
}
