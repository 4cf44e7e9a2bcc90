package transcode

import (
	"bytes"
	"regexp"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	crlf = []byte("\r\n")
	lf   = []byte("\n")

	runsOfLF      = regexp.MustCompile(`\n{3,}`)
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)

	win1251Decl = []byte(`encoding="windows-1251"`)
	utf8Decl    = []byte(`encoding="utf-8"`)

	openSpeachTag  = []byte("<speach")
	openSpeechTag  = []byte("<speech")
	closeSpeachTag = []byte("</speach>")
	closeSpeechTag = []byte("</speech>")
)

// Transcode converts buf to normalized UTF-8 according to its detected
// label. UNK and TOOSHORT pass through unchanged: the source tool never
// attempts normalization when it cannot identify the encoding, and this
// reimplementation preserves that observed behavior rather than "fixing" it
// (see DESIGN.md Open Questions).
func Transcode(label Label, buf []byte) ([]byte, error) {
	switch label {
	case LabelUTFXML, LabelUTFDet, LabelASCII:
		return normalize(buf), nil

	case LabelUTFBOM:
		return normalize(bytes.TrimPrefix(buf, utf8BOM)), nil

	case LabelWinDet:
		return transcodeWindows1251(buf)

	case LabelUnk, LabelTooShort:
		return buf, nil

	default:
		return buf, nil
	}
}

// transcodeWindows1251 replaces stray 0x98 bytes with a space (0x98 has no
// assignment in CP1251 and otherwise breaks the decoder), decodes the
// remainder as Windows-1251, rewrites a windows-1251 XML encoding
// declaration to utf-8, and normalizes the result.
func transcodeWindows1251(buf []byte) ([]byte, error) {
	cleaned := bytes.ReplaceAll(buf, []byte{0x98}, []byte(" "))

	decoded, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), cleaned)
	if err != nil {
		return nil, err
	}

	decoded = bytes.Replace(decoded, win1251Decl, utf8Decl, 1)
	return normalize(decoded), nil
}

// normalize applies the textual fix-ups shared by every encoding except
// UNK/TOOSHORT: strip a leading BOM, convert CRLF to LF, collapse runs of
// three-or-more LFs to a double LF (iterated to a fixed point), strip
// trailing horizontal whitespace before a line break, and fix the one known
// tag typo in the corpus.
func normalize(buf []byte) []byte {
	buf = bytes.TrimPrefix(buf, utf8BOM)
	buf = bytes.ReplaceAll(buf, crlf, lf)

	for {
		collapsed := runsOfLF.ReplaceAll(buf, []byte("\n\n"))
		if bytes.Equal(collapsed, buf) {
			break
		}
		buf = collapsed
	}

	buf = trailingSpace.ReplaceAll(buf, []byte("\n"))

	buf = bytes.ReplaceAll(buf, closeSpeachTag, closeSpeechTag)
	buf = bytes.ReplaceAll(buf, openSpeachTag, openSpeechTag)

	return buf
}
