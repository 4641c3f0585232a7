package fuzztests

import (
	"bytes"
	"strings"
	"testing"

	"ember/internal/asyncrt"
	"ember/internal/pckbd"
	"ember/internal/scancode"
)

func FuzzKeyboardDecode(f *testing.F) {
	addScancodeSeeds(f)
	f.Fuzz(func(_ *testing.T, input []byte) {
		input = clampInput(input)
		for _, control := range []pckbd.HandleControl{pckbd.Ignore, pckbd.MapLettersToUnicode} {
			kb := pckbd.New(pckbd.US104{}, control)
			for _, b := range input {
				kb.Feed(b)
			}
		}
	})
}

// FuzzKeyboardTask drives arbitrary bytes through the scancode bridge into
// the keyboard task and checks that none are lost while the queue has room.
func FuzzKeyboardTask(f *testing.F) {
	addScancodeSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		bridge, err := scancode.NewBridge(scancode.Config{Capacity: maxFuzzInput})
		if err != nil {
			t.Fatalf("NewBridge: %v", err)
		}
		stream, err := bridge.Stream()
		if err != nil {
			t.Fatalf("Stream: %v", err)
		}
		exec, err := asyncrt.NewExecutor(asyncrt.Config{})
		if err != nil {
			t.Fatalf("NewExecutor: %v", err)
		}
		var out bytes.Buffer
		printer := scancode.NewKeypressPrinter(stream, pckbd.New(pckbd.US104{}, pckbd.Ignore), &out)
		if _, err := exec.Go("keyboard", printer); err != nil {
			t.Fatalf("Go: %v", err)
		}

		half := len(input) / 2
		for _, b := range input[:half] {
			bridge.Push(b)
		}
		exec.RunReady()
		for _, b := range input[half:] {
			bridge.Push(b)
		}
		exec.RunReady()

		if bridge.Dropped() != 0 {
			t.Fatalf("dropped %d bytes with room in the queue", bridge.Dropped())
		}
		if bridge.Len() != 0 {
			t.Fatalf("%d bytes left in the queue after draining", bridge.Len())
		}
		if exec.Len() != 1 {
			t.Fatalf("keyboard task finished; live tasks = %d", exec.Len())
		}
	})
}

// FuzzEncodeRoundTrip checks that printable ASCII typed through the encoder
// decodes back to the same text.
func FuzzEncodeRoundTrip(f *testing.F) {
	for _, text := range seedTexts {
		f.Add(text)
	}
	f.Fuzz(func(t *testing.T, text string) {
		var sb strings.Builder
		for _, r := range text {
			if r == '\t' || r == '\n' || (r >= 0x20 && r < 0x7F) {
				sb.WriteRune(r)
			}
		}
		want := sb.String()
		kb := pckbd.New(pckbd.US104{}, pckbd.Ignore)
		var got strings.Builder
		for _, b := range pckbd.EncodeString(want) {
			if key, ok := kb.Feed(b); ok {
				got.WriteString(key.String())
			}
		}
		if got.String() != want {
			t.Fatalf("round trip = %q, want %q", got.String(), want)
		}
	})
}
