package sms

const (
	GSM7SingleCapacity     = 160
	GSM7MultiCapacity      = 153
	ExtendedSingleCapacity = 70
	ExtendedMultiCapacity  = 67

	DefaultMaxPages = 5
)

// Capacity returns the per-segment unit limits for enc.
func Capacity(enc Encoding) (single, multi int) {
	if enc == EncodingExtended {
		return ExtendedSingleCapacity, ExtendedMultiCapacity
	}
	return GSM7SingleCapacity, GSM7MultiCapacity
}

// Segments returns how many SMS segments text needs under enc. Empty text
// needs none.
func Segments(text string, enc Encoding) int {
	return segmentsFor(Units(text, enc), enc)
}

func segmentsFor(units int, enc Encoding) int {
	if units <= 0 {
		return 0
	}

	single, multi := Capacity(enc)
	if units <= single {
		return 1
	}

	extra := units - single
	return (extra+multi-1)/multi + 1
}

func capacityFor(segments int, enc Encoding) int {
	single, multi := Capacity(enc)
	if segments <= 1 {
		return single
	}
	return single + (segments-1)*multi
}

type Analysis struct {
	Encoding   Encoding `json:"encoding"`
	Units      int      `json:"units"`
	Segments   int      `json:"segments"`
	Remaining  int      `json:"remaining"`
	MaxPages   int      `json:"maxPages"`
	ExceedsMax bool     `json:"exceedsMax"`
}

// Analyze classifies and measures text in one pass. maxPages <= 0 falls back
// to DefaultMaxPages.
func Analyze(text string, maxPages int) Analysis {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	normalized := normalize(text)
	enc := classify(normalized)
	n := units(normalized, enc)
	segments := segmentsFor(n, enc)

	return Analysis{
		Encoding:   enc,
		Units:      n,
		Segments:   segments,
		Remaining:  capacityFor(segments, enc) - n,
		MaxPages:   maxPages,
		ExceedsMax: segments > maxPages,
	}
}
