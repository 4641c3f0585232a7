package scancode

import (
	"io"
	"unicode/utf8"

	"ember/internal/asyncrt"
	"ember/internal/pckbd"
)

// KeypressPrinter is the keyboard task: it drains the scancode stream,
// decodes it and writes every key press to the console. It never completes.
type KeypressPrinter struct {
	stream   *Stream
	keyboard *pckbd.Keyboard
	out      io.Writer
	buf      [utf8.UTFMax]byte
	keys     uint64
	errors   uint64
}

// NewKeypressPrinter builds the keyboard task around the bridge's stream.
func NewKeypressPrinter(stream *Stream, keyboard *pckbd.Keyboard, out io.Writer) *KeypressPrinter {
	if keyboard == nil {
		keyboard = pckbd.New(pckbd.US104{}, pckbd.Ignore)
	}
	if out == nil {
		out = io.Discard
	}
	return &KeypressPrinter{
		stream:   stream,
		keyboard: keyboard,
		out:      out,
	}
}

// Poll implements asyncrt.Future.
func (p *KeypressPrinter) Poll(cx *asyncrt.Context) asyncrt.Poll {
	for {
		code, res := p.stream.PollNext(cx)
		if res == asyncrt.Pending {
			return asyncrt.Pending
		}
		ev, ok, err := p.keyboard.AddByte(code)
		if err != nil {
			p.errors++
			continue
		}
		if !ok {
			continue
		}
		key, ok := p.keyboard.ProcessKeyEvent(ev)
		if !ok {
			continue
		}
		p.keys++
		p.emit(key)
	}
}

func (p *KeypressPrinter) emit(key pckbd.DecodedKey) {
	if key.IsRaw() {
		_, _ = io.WriteString(p.out, key.Raw.String()) //nolint:errcheck // console writes are best effort
		return
	}
	n := utf8.EncodeRune(p.buf[:], key.Rune)
	_, _ = p.out.Write(p.buf[:n]) //nolint:errcheck // console writes are best effort
}

// Keys returns how many keys were printed.
func (p *KeypressPrinter) Keys() uint64 {
	return p.keys
}

// DecodeErrors returns how many scancodes the decoder rejected.
func (p *KeypressPrinter) DecodeErrors() uint64 {
	return p.errors
}
