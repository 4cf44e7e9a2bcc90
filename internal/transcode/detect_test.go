package transcode

import "testing"

func TestDetectTooShort(t *testing.T) {
	if got := Detect([]byte("ab")); got != LabelTooShort {
		t.Fatalf("got %s, want TOOSHORT", got)
	}
}

func TestDetectUTFBOM(t *testing.T) {
	buf := append([]byte{0xEF, 0xBB, 0xBF}, "hello"...)
	if got := Detect(buf); got != LabelUTFBOM {
		t.Fatalf("got %s, want UTFBOM", got)
	}
}

func TestDetectUTFXML(t *testing.T) {
	buf := []byte(`<?xml version="1.0" encoding="utf-8"?><a/>`)
	if got := Detect(buf); got != LabelUTFXML {
		t.Fatalf("got %s, want UTFXML", got)
	}
}

func TestDetectASCII(t *testing.T) {
	if got := Detect([]byte("hello world, plain ascii text")); got != LabelASCII {
		t.Fatalf("got %s, want ASCII", got)
	}
}

func TestDetectWinDetFromStatisticalHeuristic(t *testing.T) {
	// Bytes drawn almost entirely from the high end of the Windows-1251
	// range (0xC0-0xFF) without the UTF-8 D0/D1 lead-byte signature.
	buf := make([]byte, 0, 64)
	for i := 0; i < 64; i++ {
		buf = append(buf, 0xE0)
	}
	if got := Detect(buf); got != LabelWinDet {
		t.Fatalf("got %s, want WINDET", got)
	}
}

func TestDetectUTFDetFromCyrillicLeadBytes(t *testing.T) {
	// A run of valid two-byte UTF-8 sequences starting with 0xD0/0xD1
	// (the Cyrillic block) should be detected as already-UTF-8.
	buf := repeatBytes([]byte{0xD0, 0x90}, 40) // U+0410 'А' repeated
	if got := Detect(buf); got != LabelUTFDet {
		t.Fatalf("got %s, want UTFDET", got)
	}
}

func TestDetectWinXMLDeclarationForcesWinDet(t *testing.T) {
	buf := []byte(`<?xml version="1.0" encoding="windows-1251"?><a>` + string([]byte{0xC0}) + `</a>`)
	if got := Detect(buf); got != LabelWinDet {
		t.Fatalf("got %s, want WINDET", got)
	}
}

func TestDetectWinXMLWith0x98FallsToUnk(t *testing.T) {
	// Residual code path: a winxml buffer containing 0x98 yields UNK rather
	// than WINDET (spec.md §9 Open Questions).
	buf := []byte(`<?xml version="1.0" encoding="windows-1251"?><a>` + string([]byte{0x98}) + `</a>`)
	if got := Detect(buf); got != LabelUnk {
		t.Fatalf("got %s, want UNK", got)
	}
}

func repeatBytes(pattern []byte, n int) []byte {
	out := make([]byte, 0, len(pattern)*n)
	for i := 0; i < n; i++ {
		out = append(out, pattern...)
	}
	return out
}
