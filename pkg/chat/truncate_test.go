package chat

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const testMarker = "… (truncated)"

func TestTruncateShortTextUntouched(t *testing.T) {
	text := "Fits comfortably."
	if got := Truncate(text, testMarker, 2000); got != text {
		t.Errorf("short text was modified: %q", got)
	}
}

func TestTruncateExactLimitUntouched(t *testing.T) {
	text := strings.Repeat("a", 2000)
	if got := Truncate(text, testMarker, 2000); got != text {
		t.Error("text at exactly the limit should pass through")
	}
}

func TestTruncateNeverExceedsLimit(t *testing.T) {
	drafts := []string{
		strings.Repeat("All work and no play makes a dull reply. ", 100),
		strings.Repeat("x", 2500),
		strings.Repeat("paragraph\n\n", 300),
	}
	for _, draft := range drafts {
		got := Truncate(draft, testMarker, 2000)
		if len(got) > 2000 {
			t.Errorf("len = %d, exceeds limit", len(got))
		}
		if !strings.HasSuffix(got, testMarker) {
			t.Errorf("truncated output missing marker: %q", got[len(got)-30:])
		}
	}
}

func TestTruncatePrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("a", 1500)
	text := first + "\n\n" + strings.Repeat("b", 800)

	got := Truncate(text, testMarker, 2000)
	if got != first+testMarker {
		t.Errorf("expected cut at the paragraph break, got %d bytes ending %q", len(got), got[len(got)-20:])
	}
}

func TestTruncateSentenceFallback(t *testing.T) {
	// No paragraph breaks; the last sentence end inside the span is the cut.
	sentence := "This sentence repeats to fill the draft with prose. "
	text := strings.Repeat(sentence, 60) // ~3120 bytes

	got := Truncate(text, testMarker, 2000)
	if len(got) > 2000 {
		t.Fatalf("len = %d", len(got))
	}
	if !strings.HasSuffix(got, "."+testMarker) {
		t.Errorf("expected a sentence-end cut, got ending %q", got[len(got)-30:])
	}
}

func TestTruncateWordBoundary(t *testing.T) {
	// Spaces but no sentence punctuation: fall through to word boundary.
	text := strings.Repeat("lorem ipsum dolor sit amet ", 100)

	got := Truncate(text, testMarker, 2000)
	body := strings.TrimSuffix(got, testMarker)
	if body == got {
		t.Fatal("marker missing")
	}
	if text[:len(body)] != body {
		t.Fatal("body is not a prefix of the draft")
	}
	// The cut consumed the boundary space, so the next original byte is one.
	if text[len(body)] != ' ' {
		t.Errorf("cut fell mid-word: next byte %q", text[len(body)])
	}
}

func TestTruncateHardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("a", 3000)

	got := Truncate(text, testMarker, 2000)
	if len(got) != 2000 {
		t.Errorf("len = %d, want exactly the limit for a hard cut", len(got))
	}
	if !strings.HasSuffix(got, testMarker) {
		t.Error("marker missing")
	}
}

func TestTruncateIgnoresEarlyBoundary(t *testing.T) {
	// A paragraph break at 10% of the span would gut the reply; the cut
	// must fall back instead of using it.
	text := strings.Repeat("a", 150) + "\n\n" + strings.Repeat("b", 2500)

	got := Truncate(text, testMarker, 2000)
	if len(got) < 1000 {
		t.Errorf("len = %d, early boundary was used", len(got))
	}
	if len(got) > 2000 {
		t.Errorf("len = %d, exceeds limit", len(got))
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 300)

	got := Truncate(text, testMarker, 2000)
	if !utf8.ValidString(got) {
		t.Error("truncation split a rune")
	}
	if len(got) > 2000 {
		t.Errorf("len = %d", len(got))
	}
}

func TestTruncateMarkerLongerThanLimit(t *testing.T) {
	got := Truncate(strings.Repeat("a", 50), strings.Repeat("m", 20), 10)
	if len(got) > 10 {
		t.Errorf("len = %d, limit contract broken", len(got))
	}
}
