// Package transcode classifies text blobs by encoding and normalizes them to
// UTF-8, matching the heuristics of the source corpus-splitting tool exactly
// so that transcoded output is byte-identical across reruns.
package transcode

// Label is the closed set of outcomes the detector can return.
type Label string

const (
	LabelTooShort Label = "TOOSHORT"
	LabelUTFBOM   Label = "UTFBOM"
	LabelUTFXML   Label = "UTFXML"
	LabelWinDet   Label = "WINDET"
	LabelUTFDet   Label = "UTFDET"
	LabelASCII    Label = "ASCII"
	LabelUnk      Label = "UNK"
)

const sniffLimit = 8192

var (
	utf8BOM          = []byte{0xEF, 0xBB, 0xBF}
	utf8XMLPrefixes  = [][]byte{[]byte(`<?xml version="1.0" encoding="utf-8"`), []byte(`<?xml version="1.0" encoding="UTF-8"`)}
	win1251XMLPrefix = []byte(`<?xml version="1.0" encoding="windows-1251"`)
)

// Detect classifies buf (only the first 8192 bytes are consulted) into one
// of the labels above, reproducing the source tool's heuristic table in
// order: too-short, BOM, UTF-8 XML declaration, pure-ASCII, then the
// Windows-1251 statistical heuristics.
func Detect(buf []byte) Label {
	if len(buf) < 3 {
		return LabelTooShort
	}

	sniff := buf
	if len(sniff) > sniffLimit {
		sniff = sniff[:sniffLimit]
	}

	if hasPrefix(sniff, utf8BOM) {
		return LabelUTFBOM
	}
	for _, p := range utf8XMLPrefixes {
		if hasPrefix(sniff, p) {
			return LabelUTFXML
		}
	}

	var histo [256]int
	for _, b := range sniff {
		histo[b]++
	}
	highCount := 0
	for b := 0x80; b <= 0xFF; b++ {
		highCount += histo[b]
	}
	if highCount == 0 {
		return LabelASCII
	}

	winxml := hasPrefix(sniff, win1251XMLPrefix)

	cyrillicLikely := histo[0xA0] + histo[0x93] + histo[0x94]
	if highCount == cyrillicLikely && !winxml {
		return LabelWinDet
	}

	d0d1 := histo[0xD0] + histo[0xD1]
	if denom := highCount - d0d1; denom > 0 && !winxml {
		if float64(d0d1)/float64(denom) > 0.9 {
			return LabelUTFDet
		}
	}

	sumC0FF := 0
	for b := 0xC0; b <= 0xFF; b++ {
		sumC0FF += histo[b]
	}
	numerator := sumC0FF + cyrillicLikely
	if (float64(numerator)/float64(highCount) > 0.95 || winxml) && histo[0x98] == 0 {
		return LabelWinDet
	}

	return LabelUnk
}

func hasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if buf[i] != b {
			return false
		}
	}
	return true
}
