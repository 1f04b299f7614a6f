package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lms/internal/metadata"
	"lms/internal/partialdate"

	"github.com/stretchr/testify/assert"
)

func TestResolveArtistMBIDFallback(t *testing.T) {
	parsed := &metadata.Track{
		Artists: []metadata.ArtistRef{{Name: "Miles Davis", MBID: "mbid-1"}},
		Release: metadata.Release{
			Artists: []metadata.ArtistRef{{Name: "John Coltrane", MBID: "mbid-2"}},
		},
		ComposerArtists: []metadata.ArtistRef{{Name: "Miles Davis"}, {Name: "Unknown Composer"}},
		MixerArtists:    []metadata.ArtistRef{{Name: "John Coltrane"}},
		PerformerArtists: map[string][]metadata.ArtistRef{
			"sax": {{Name: "John Coltrane"}},
		},
	}

	resolveArtistMBIDFallback(parsed)

	assert.Equal(t, "mbid-1", parsed.ComposerArtists[0].MBID)
	assert.Equal(t, "", parsed.ComposerArtists[1].MBID)
	assert.Equal(t, "mbid-2", parsed.MixerArtists[0].MBID)
	assert.Equal(t, "mbid-2", parsed.PerformerArtists["sax"][0].MBID)
}

func TestResolveArtistMBIDFallbackDoesNotOverwriteExisting(t *testing.T) {
	parsed := &metadata.Track{
		Artists:         []metadata.ArtistRef{{Name: "Miles Davis", MBID: "mbid-1"}},
		ComposerArtists: []metadata.ArtistRef{{Name: "Miles Davis", MBID: "already-set"}},
	}

	resolveArtistMBIDFallback(parsed)

	assert.Equal(t, "already-set", parsed.ComposerArtists[0].MBID)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
}

func TestHashString(t *testing.T) {
	assert.Equal(t, "0000000000000000", hashString(0))
	assert.Equal(t, "000000000000000f", hashString(15))
	assert.Len(t, hashString(^uint64(0)), 16)
	assert.Equal(t, "ffffffffffffffff", hashString(^uint64(0)))
}

func TestSecondsToDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, secondsToDuration(90))
	assert.Equal(t, 500*time.Millisecond, secondsToDuration(0.5))
}

func TestParseDecimal(t *testing.T) {
	d := parseDecimal(" 1.5 ")
	if assert.NotNil(t, d) {
		f, _ := d.Float64()
		assert.InDelta(t, 1.5, f, 0.0001)
	}
	assert.Nil(t, parseDecimal("not-a-number"))
}

func TestFileSizeMissingFile(t *testing.T) {
	assert.Equal(t, int64(0), fileSize(filepath.Join(t.TempDir(), "missing.mp3")))
}

func TestFileSizeExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	assert.NoError(t, os.WriteFile(path, []byte("abcdefgh"), 0o644))
	assert.Equal(t, int64(8), fileSize(path))
}

func TestToTimeDefaultsAbsentFields(t *testing.T) {
	p := partialdate.FromYear(1992)
	got := toTime(p)
	assert.Equal(t, 1992, got.Year())
	assert.Equal(t, time.Month(1), got.Month())
	assert.Equal(t, 1, got.Day())
}

func TestToTimeFullPrecision(t *testing.T) {
	p, err := partialdate.FromString("1992-03-05T10:20:30")
	assert.NoError(t, err)
	got := toTime(p)
	assert.Equal(t, time.Date(1992, 3, 5, 10, 20, 30, 0, time.UTC), got)
}

func TestFindSidecarLyricsPrefersExistingFile(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "song.flac")
	assert.Equal(t, "", findSidecarLyrics(audio))

	lrc := filepath.Join(dir, "song.lrc")
	assert.NoError(t, os.WriteFile(lrc, []byte("[00:01.00]hello"), 0o644))
	assert.Equal(t, lrc, findSidecarLyrics(audio))
}

func TestFindSidecarLyricsIgnoresDirectory(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "song.mp3")
	assert.NoError(t, os.Mkdir(filepath.Join(dir, "song.txt"), 0o755))
	assert.Equal(t, "", findSidecarLyrics(audio))
}
