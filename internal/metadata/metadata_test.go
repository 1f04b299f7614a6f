package metadata

import "testing"

func TestTrailingIndexSuffix(t *testing.T) {
	cases := map[string]string{
		"TXXX":     "",
		"TXXX_1":   "_1",
		"TXXX_12":  "_12",
		"TXXX_abc": "",
		"_":        "",
	}
	for in, want := range cases {
		if got := trailingIndexSuffix(in); got != want {
			t.Errorf("trailingIndexSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsUserExtraTagKey(t *testing.T) {
	for _, known := range []string{"TIT2", "TPE1", "TALB", "TXXX", "COMM"} {
		if isUserExtraTagKey(known) {
			t.Errorf("isUserExtraTagKey(%q) = true, want false (recognized tag)", known)
		}
	}
	for _, unknown := range []string{"MY_CUSTOM_TAG", "RATING", ""} {
		if !isUserExtraTagKey(unknown) {
			t.Errorf("isUserExtraTagKey(%q) = false, want true (unrecognized tag)", unknown)
		}
	}
}

func TestSplitMulti(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Rock; Jazz", []string{"Rock", "Jazz"}},
		{"Rock/Jazz/Blues", []string{"Rock", "Jazz", "Blues"}},
		{"Rock,Jazz", []string{"Rock", "Jazz"}},
		{"  Rock  ", []string{"Rock"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitMulti(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("splitMulti(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("splitMulti(%q) = %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestPicturePointerType(t *testing.T) {
	cases := map[string]int{
		"Cover (front)":                        1,
		"Cover (back)":                         2,
		"Media (e.g. label side of CD)":        3,
		"Band/orchestra logotype":              4,
		"Band/artist":                          5,
		"Leaflet page":                         6,
		"some unrecognized label":              0,
		"":                                     0,
	}
	for label, want := range cases {
		if got := picturePointerType(label); got != want {
			t.Errorf("picturePointerType(%q) = %d, want %d", label, got, want)
		}
	}
}

func TestParseEmbeddedLyrics(t *testing.T) {
	got := parseEmbeddedLyrics("line one\nline two")
	if got.Synchronized {
		t.Fatal("expected embedded lyrics to be reported as unsynchronized")
	}
	if len(got.Lines) != 1 || got.Lines[0].Line != "line one\nline two" {
		t.Fatalf("got %+v, want a single line holding the raw text", got)
	}
}
