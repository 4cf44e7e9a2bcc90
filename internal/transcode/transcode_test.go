package transcode

import (
	"bytes"
	"testing"
)

func TestTranscodeASCIIPassesThroughNormalized(t *testing.T) {
	got, err := Transcode(LabelASCII, []byte("hello\n"))
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if string(got) != "hello\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTranscodeStripsBOM(t *testing.T) {
	buf := []byte{0xEF, 0xBB, 0xBF, 'a', '\n'}
	got, err := Transcode(LabelUTFBOM, buf)
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if string(got) != "a\n" {
		t.Fatalf("got %q, want %q", got, "a\n")
	}
}

func TestTranscodeCRLFAndLFCollapse(t *testing.T) {
	got, err := Transcode(LabelASCII, []byte("a\r\nb\r\n"))
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if string(got) != "a\nb\n" {
		t.Fatalf("got %q", got)
	}

	got, err = Transcode(LabelASCII, []byte("a\n\n\n\nb"))
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if string(got) != "a\n\nb" {
		t.Fatalf("got %q, want %q", got, "a\n\nb")
	}
}

func TestTranscodeStripsTrailingSpaceBeforeLF(t *testing.T) {
	got, err := Transcode(LabelASCII, []byte("line   \nnext\n"))
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if string(got) != "line\nnext\n" {
		t.Fatalf("got %q", got)
	}
}

func TestTranscodeFixesSpeachTypo(t *testing.T) {
	got, err := Transcode(LabelASCII, []byte("<speach id=\"1\">hi</speach>\n"))
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	want := "<speech id=\"1\">hi</speech>\n"
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestTranscodeWindows1251(t *testing.T) {
	// 0xC0 is Cyrillic capital А (U+0410) in CP1251.
	buf := []byte(`<?xml version="1.0" encoding="windows-1251"?>` + "\n<a>" + string([]byte{0xC0}) + "</a>\n")
	got, err := Transcode(LabelWinDet, buf)
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if !bytes.HasPrefix(got, []byte(`<?xml version="1.0" encoding="utf-8"?>`)) {
		t.Fatalf("expected rewritten utf-8 declaration, got %q", got)
	}
	if !bytes.Contains(got, []byte{0xD0, 0x90}) {
		t.Fatalf("expected UTF-8 encoding of U+0410 (D0 90), got %x", got)
	}
}

func TestTranscodeWindows1251Replaces0x98(t *testing.T) {
	buf := []byte("prefix" + string([]byte{0x98}) + "suffix " +
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	got, err := Transcode(LabelWinDet, buf)
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if bytes.Contains(got, []byte{0x98}) {
		t.Fatal("0x98 byte should have been replaced with a space before decoding")
	}
}

func TestTranscodeUnkAndTooShortPassThroughUnchanged(t *testing.T) {
	for _, label := range []Label{LabelUnk, LabelTooShort} {
		buf := []byte("a\r\n\r\n\r\nb   \n")
		got, err := Transcode(label, buf)
		if err != nil {
			t.Fatalf("Transcode(%s): %v", label, err)
		}
		if string(got) != string(buf) {
			t.Fatalf("Transcode(%s) modified input: got %q, want unchanged %q", label, got, buf)
		}
	}
}
