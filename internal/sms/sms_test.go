package sms

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Encoding
	}{
		{"plain ascii", "Hello World", EncodingGSM7},
		{"empty", "", EncodingGSM7},
		{"gsm accents", "Ça va? Ñandù ß", EncodingGSM7},
		{"acute u is not gsm", "ú", EncodingExtended},
		{"escape table", "Price: 10€ {promo} [x] ~ | ^ \\", EncodingGSM7},
		{"decomposed accent normalizes", "cafe\u0301", EncodingGSM7},
		{"arabic", "مرحبا بالعالم", EncodingExtended},
		{"emoji", "Hi 😀", EncodingExtended},
		{"turkish dotless i", "ılık", EncodingExtended},
		{"escape control", "a\x1bb", EncodingExtended},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Fatalf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestUnits(t *testing.T) {
	if got := Units("a{b}", EncodingGSM7); got != 6 {
		t.Fatalf("expected escape characters to count twice, got %d", got)
	}
	if got := Units("Hi 😀", EncodingExtended); got != 5 {
		t.Fatalf("expected surrogate pair to count as 2 UTF-16 units, got %d", got)
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		name string
		text string
		enc  Encoding
		want int
	}{
		{"empty", "", EncodingGSM7, 0},
		{"short gsm", "Hello World", EncodingGSM7, 1},
		{"gsm single boundary", strings.Repeat("a", 160), EncodingGSM7, 1},
		{"gsm one over", strings.Repeat("a", 161), EncodingGSM7, 2},
		{"gsm 200", strings.Repeat("a", 200), EncodingGSM7, 2},
		{"gsm two full", strings.Repeat("a", 313), EncodingGSM7, 2},
		{"gsm three", strings.Repeat("a", 314), EncodingGSM7, 3},
		{"escape fills single", strings.Repeat("{", 80), EncodingGSM7, 1},
		{"escape overflows single", strings.Repeat("{", 81), EncodingGSM7, 2},
		{"extended boundary", strings.Repeat("ب", 70), EncodingExtended, 1},
		{"arabic 80", strings.Repeat("ب", 80), EncodingExtended, 2},
		{"extended three", strings.Repeat("ب", 205), EncodingExtended, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Segments(tt.text, tt.enc); got != tt.want {
				t.Fatalf("Segments = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSegmentsMonotonic(t *testing.T) {
	for _, enc := range []Encoding{EncodingGSM7, EncodingExtended} {
		prev := 0
		for n := 1; n <= 1000; n++ {
			got := segmentsFor(n, enc)
			if got < prev {
				t.Fatalf("%s: segments decreased at %d units (%d < %d)", enc, n, got, prev)
			}
			if got < 1 {
				t.Fatalf("%s: non-empty text produced %d segments", enc, got)
			}
			prev = got
		}
	}
}

func TestAnalyze(t *testing.T) {
	a := Analyze("Hello World", 0)
	if a.Encoding != EncodingGSM7 || a.Segments != 1 || a.Remaining != 149 {
		t.Fatalf("unexpected analysis: %+v", a)
	}
	if a.MaxPages != DefaultMaxPages || a.ExceedsMax {
		t.Fatalf("unexpected max pages handling: %+v", a)
	}

	a = Analyze(strings.Repeat("a", 161), 5)
	if a.Segments != 2 || a.Remaining != 313-161 {
		t.Fatalf("unexpected two-segment analysis: %+v", a)
	}

	a = Analyze(strings.Repeat("a", 773), 5)
	if a.Segments != 6 || !a.ExceedsMax {
		t.Fatalf("expected 6 segments over the limit, got %+v", a)
	}

	a = Analyze("", 5)
	if a.Segments != 0 || a.Remaining != GSM7SingleCapacity {
		t.Fatalf("unexpected empty analysis: %+v", a)
	}
}

func TestCost(t *testing.T) {
	tests := []struct {
		segments, recipients int
		want                 int64
	}{
		{1, 3, 3},
		{2, 10, 20},
		{0, 10, 0},
		{3, 0, 0},
		{5, 1000, 5000},
	}

	for _, tt := range tests {
		if got := Cost(tt.segments, tt.recipients); got != tt.want {
			t.Errorf("Cost(%d, %d) = %d, want %d", tt.segments, tt.recipients, got, tt.want)
		}
	}
}
