// Package fuzztests houses Go fuzz harnesses for the keyboard input path:
// raw scancode bytes through the decoder, the scancode bridge and the
// keyboard task, and tape files through the tape decoder. The goal is to
// guard against panics, lost bytes and runaway allocation on arbitrary input.
package fuzztests
