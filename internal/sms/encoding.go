package sms

import (
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

type Encoding string

const (
	EncodingGSM7     Encoding = "gsm7"
	EncodingExtended Encoding = "extended"
)

// gsm7Basic is the GSM 03.38 default alphabet. The escape code itself (0x1B)
// is left out so a literal ESC in a body does not pass as GSM text.
var gsm7Basic = map[rune]struct{}{
	'@': {}, '£': {}, '$': {}, '¥': {}, 'è': {}, 'é': {}, 'ù': {}, 'ì': {},
	'ò': {}, 'Ç': {}, '\n': {}, 'Ø': {}, 'ø': {}, '\r': {}, 'Å': {}, 'å': {},
	'Δ': {}, '_': {}, 'Φ': {}, 'Γ': {}, 'Λ': {}, 'Ω': {}, 'Π': {}, 'Ψ': {},
	'Σ': {}, 'Θ': {}, 'Ξ': {}, 'Æ': {}, 'æ': {}, 'ß': {}, 'É': {},
	' ': {}, '!': {}, '"': {}, '#': {}, '¤': {}, '%': {}, '&': {}, '\'': {},
	'(': {}, ')': {}, '*': {}, '+': {}, ',': {}, '-': {}, '.': {}, '/': {},
	'0': {}, '1': {}, '2': {}, '3': {}, '4': {}, '5': {}, '6': {}, '7': {},
	'8': {}, '9': {}, ':': {}, ';': {}, '<': {}, '=': {}, '>': {}, '?': {},
	'¡': {}, 'A': {}, 'B': {}, 'C': {}, 'D': {}, 'E': {}, 'F': {}, 'G': {},
	'H': {}, 'I': {}, 'J': {}, 'K': {}, 'L': {}, 'M': {}, 'N': {}, 'O': {},
	'P': {}, 'Q': {}, 'R': {}, 'S': {}, 'T': {}, 'U': {}, 'V': {}, 'W': {},
	'X': {}, 'Y': {}, 'Z': {}, 'Ä': {}, 'Ö': {}, 'Ñ': {}, 'Ü': {}, '§': {},
	'¿': {}, 'a': {}, 'b': {}, 'c': {}, 'd': {}, 'e': {}, 'f': {}, 'g': {},
	'h': {}, 'i': {}, 'j': {}, 'k': {}, 'l': {}, 'm': {}, 'n': {}, 'o': {},
	'p': {}, 'q': {}, 'r': {}, 's': {}, 't': {}, 'u': {}, 'v': {}, 'w': {},
	'x': {}, 'y': {}, 'z': {}, 'ä': {}, 'ö': {}, 'ñ': {}, 'ü': {}, 'à': {},
}

// gsm7Escape holds the extension table. Each of these is sent as ESC + code
// and therefore occupies two septets.
var gsm7Escape = map[rune]struct{}{
	'\f': {}, '^': {}, '{': {}, '}': {}, '\\': {}, '[': {}, '~': {}, ']': {}, '|': {}, '€': {},
}

const escapeWidth = 2

func normalize(text string) string {
	return norm.NFC.String(text)
}

// Classify reports the narrowest encoding able to carry text.
func Classify(text string) Encoding {
	return classify(normalize(text))
}

func classify(text string) Encoding {
	for _, r := range text {
		if _, ok := gsm7Basic[r]; ok {
			continue
		}
		if _, ok := gsm7Escape[r]; ok {
			continue
		}
		return EncodingExtended
	}
	return EncodingGSM7
}

// IsEscape reports whether r is sent through the GSM7 extension table.
func IsEscape(r rune) bool {
	_, ok := gsm7Escape[r]
	return ok
}

// Units returns how many encoding units text occupies: septets for GSM7
// (escape characters count twice) and UTF-16 code units for Extended.
func Units(text string, enc Encoding) int {
	return units(normalize(text), enc)
}

func units(text string, enc Encoding) int {
	if enc == EncodingExtended {
		return len(utf16.Encode([]rune(text)))
	}

	n := 0
	for _, r := range text {
		if IsEscape(r) {
			n += escapeWidth
			continue
		}
		n++
	}
	return n
}
