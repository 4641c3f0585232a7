package fuzztests

import (
	"bytes"
	"testing"

	"ember/internal/pckbd"
	"ember/internal/tape"
)

const (
	maxFuzzInput = 1 << 12 // 4 KiB of scancodes
	maxSeedBytes = 1 << 12
)

// seedTexts are typed through the encoder to give the fuzzer realistic
// scancode streams.
var seedTexts = []string{
	"",
	"a",
	"Hello World!\n",
	"async number: 42",
	"~!@#$%^&*()_+{}|:\"<>?",
	"\tcol\bumn\x1b",
}

// addScancodeSeeds adds encoded text plus the awkward prefixes: a lone E0,
// the pause sequence and releases without a press.
func addScancodeSeeds(f *testing.F) {
	for _, text := range seedTexts {
		f.Add(clampSeed(pckbd.EncodeString(text)))
	}
	f.Add([]byte{0xE0})
	f.Add([]byte{0xE1, 0x1D, 0x45, 0xE1, 0x9D, 0xC5})
	f.Add([]byte{0xE0, 0x2A, 0xE0, 0x37, 0xE0, 0xB7, 0xE0, 0xAA})
	f.Add([]byte{0x9E, 0xAA, 0xFF, 0x00})
}

// addTapeSeeds adds encoded tapes of the seed texts.
func addTapeSeeds(f *testing.F) {
	for _, text := range seedTexts {
		var buf bytes.Buffer
		if err := tape.Encode(&buf, tape.FromScancodes(pckbd.EncodeString(text))); err != nil {
			f.Fatalf("encode seed tape: %v", err)
		}
		f.Add(clampSeed(buf.Bytes()))
	}
	f.Add([]byte{})
	f.Add([]byte{0x80})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
