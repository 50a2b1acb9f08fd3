package process

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTailBufferKeepsLastCharacters(t *testing.T) {
	buf := newTailBuffer(5)
	for _, chunk := range []string{"abc", "defgh", "ijklmnopq"} {
		if _, err := buf.Write([]byte(chunk)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if got := buf.String(); got != "mnopq" {
		t.Fatalf("expected mnopq, got %q", got)
	}
}

func TestTailBufferCountsRunesNotBytes(t *testing.T) {
	buf := newTailBuffer(2)
	_, _ = buf.Write([]byte("ééé"))
	if got := buf.String(); got != "éé" {
		t.Fatalf("expected two whole runes, got %q", got)
	}
}

func TestTailBufferMultiByteStderrKeepsFullLimit(t *testing.T) {
	buf := newTailBuffer(DiagnosticTailRunes)
	for i := 0; i < 1000; i++ {
		_, _ = buf.Write([]byte("é"))
	}
	got := buf.String()
	if n := utf8.RuneCountInString(got); n != DiagnosticTailRunes {
		t.Fatalf("expected %d chars, got %d", DiagnosticTailRunes, n)
	}
	if got != strings.Repeat("é", DiagnosticTailRunes) {
		t.Fatalf("tail is not whole runes: %q", got[:8])
	}
}

func TestTailBufferRuneSplitAcrossWrites(t *testing.T) {
	buf := newTailBuffer(3)
	raw := []byte("xyz€")
	_, _ = buf.Write(raw[:4])
	_, _ = buf.Write(raw[4:])
	if got := buf.String(); got != "yz€" {
		t.Fatalf("expected yz€, got %q", got)
	}
}

func TestTailBufferShortOutputUnchanged(t *testing.T) {
	buf := newTailBuffer(DiagnosticTailRunes)
	_, _ = buf.Write([]byte("error: bad page\n"))
	if got := buf.String(); got != "error: bad page\n" {
		t.Fatalf("unexpected tail %q", got)
	}
}

func TestTailBufferBoundedMemory(t *testing.T) {
	buf := newTailBuffer(10)
	for i := 0; i < 1000; i++ {
		_, _ = buf.Write([]byte(strings.Repeat("x", 7)))
	}
	if len(buf.buf) > 2*buf.window() {
		t.Fatalf("buffer grew to %d bytes", len(buf.buf))
	}
	if got := buf.String(); got != strings.Repeat("x", 10) {
		t.Fatalf("expected 10 chars, got %q", got)
	}
}
