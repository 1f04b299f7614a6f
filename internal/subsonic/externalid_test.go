package subsonic

import (
	"testing"

	"lms/internal/ids"
)

func TestExternalIDRoundTrip(t *testing.T) {
	artist := ids.New[ids.ArtistKind](42)
	s := ArtistExternalID(artist)
	if s != "ar-42" {
		t.Fatalf("got %q, want ar-42", s)
	}
	got, err := ParseArtistID(s)
	if err != nil {
		t.Fatalf("ParseArtistID: %v", err)
	}
	if got != artist {
		t.Fatalf("got %+v, want %+v", got, artist)
	}
}

func TestParseArtistIDRejectsWrongPrefix(t *testing.T) {
	if _, err := ParseArtistID(TrackExternalID(ids.New[ids.TrackKind](1))); err == nil {
		t.Fatal("expected error mixing a track id into ParseArtistID")
	}
	if _, err := ParseArtistID("not-an-id"); err == nil {
		t.Fatal("expected error for malformed id")
	}
}

func TestIsRootID(t *testing.T) {
	if !IsRootID("root") {
		t.Fatal("expected \"root\" to be the browsing root id")
	}
	if IsRootID(ArtistExternalID(ids.New[ids.ArtistKind](1))) {
		t.Fatal("expected a real artist id not to be the browsing root")
	}
}

func TestCoverArtIDRoundTrip(t *testing.T) {
	c := NewCoverArtID(ids.New[ids.ArtworkKind](7), 1_700_000_000)
	s := c.String()
	if s != "art-7-1700000000" {
		t.Fatalf("got %q, want art-7-1700000000", s)
	}
	got, err := ParseCoverArtID(s)
	if err != nil {
		t.Fatalf("ParseCoverArtID: %v", err)
	}
	if got != c {
		t.Fatalf("got %+v, want %+v", got, c)
	}
}

func TestParseCoverArtIDRejectsMalformed(t *testing.T) {
	for _, s := range []string{"art-7", "art-7-notanumber", "wrong-7-123", "art-notanumber-123"} {
		if _, err := ParseCoverArtID(s); err == nil {
			t.Fatalf("expected error parsing %q", s)
		}
	}
}
