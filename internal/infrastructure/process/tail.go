package process

import "unicode/utf8"

// tailBuffer is an io.Writer that keeps only the last limit characters
// written. Invalid UTF-8 bytes count as one character each.
type tailBuffer struct {
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

// window is enough bytes to hold limit whole runes after a cut that lands
// mid-rune.
func (t *tailBuffer) window() int {
	return (t.limit + 1) * utf8.UTFMax
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if window := t.window(); len(t.buf) > 2*window {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-window:]...)
	}
	return len(p), nil
}

// String returns at most limit runes from the end of the stream.
func (t *tailBuffer) String() string {
	start := len(t.buf)
	for n := 0; n < t.limit && start > 0; n++ {
		_, size := utf8.DecodeLastRune(t.buf[:start])
		start -= size
	}
	return string(t.buf[start:])
}
