// Package metadata parses audio file tags into the catalog's
// pre-resolution record shape. Parsing is a pure function: it never
// touches the catalog store, and every exported error is one of the
// typed kinds the scanner classifies into its per-scan error log.
package metadata

import (
	"io"
	"os"
	"strconv"
	"strings"

	"lms/internal/partialdate"

	"github.com/dhowden/tag"
)

// ErrorKind classifies a parse failure the way the scanner's per-scan
// error log groups them.
type ErrorKind int

const (
	NoAudioTrackFound ErrorKind = iota
	IOScanError
	AudioFileScanError
	BadAudioDuration
)

type Error struct {
	Kind  ErrorKind
	Errno error
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "metadata: parse error"
}

func (e *Error) Unwrap() error { return e.Cause }

// ArtistRef is a parsed artist mention, possibly carrying an MBID.
type ArtistRef struct {
	Name     string
	SortName string
	MBID     string
}

type Medium struct {
	Position      int
	HasPosition   bool
	TrackCount    int
	HasTrackCount bool
	Name          string
	ReplayGain    *string
}

type Release struct {
	Name              string
	SortName          string
	MBID              string
	GroupMBID         string
	MediumCount       int
	HasMediumCount    bool
	ArtistDisplayName string
	IsCompilation     bool
	Barcode           string
	Comment           string
	ReleaseTypes      []string
	Countries         []string
	Labels            []string
	Artists           []ArtistRef
}

type AudioProperties struct {
	Duration      float64 // seconds
	Bitrate       int
	BitsPerSample int
	ChannelCount  int
	SampleRate    int
}

// Image is one embedded picture, handed to ParseFile's callback one at
// a time rather than collected into the returned Track.
type Image struct {
	Bytes       []byte
	Mime        string
	Type        int
	Description string
}

// Lyrics is one parsed embedded lyrics block. It carries no External
// flag: the scanner marks lyrics rows External itself when persisting
// sidecar .lrc/.txt files, which go through internal/lyrics instead.
type Lyrics struct {
	Language      string
	Synchronized  bool
	Lines         []LyricsLine
	DisplayArtist string
	DisplayTitle  string
}

type LyricsLine struct {
	TimestampMs int64
	Line        string
}

// Track is the full parsed-fields shape of a single audio file.
type Track struct {
	Title string

	Artists          []ArtistRef
	ConductorArtists []ArtistRef
	ComposerArtists  []ArtistRef
	LyricistArtists  []ArtistRef
	MixerArtists     []ArtistRef
	ProducerArtists  []ArtistRef
	RemixerArtists   []ArtistRef
	PerformerArtists map[string][]ArtistRef // role -> artists

	Medium  Medium
	Release Release

	Audio AudioProperties

	EncodingTime    partialdate.PartialDateTime
	Date            partialdate.PartialDateTime
	OriginalDate    partialdate.PartialDateTime
	OriginalYear    int
	HasOriginalYear bool

	RecordingMBID     string
	MBID              string
	Copyright         string
	CopyrightURL      string
	Advisory          int // catalog.Advisory, duplicated here to avoid an import cycle
	Comment           string
	ReplayGain        *string
	ArtistDisplayName string

	Genres    []string
	Moods     []string
	Languages []string
	Groupings []string

	UserExtraTags map[string][]string

	Lyrics []Lyrics

	TrackNumber int
	DiscNumber  int
}

// ParseFile opens path and parses its tags plus audio properties.
// Images found in the tags are streamed through onImage as they are
// discovered, not accumulated in the returned Track.
func ParseFile(path string, onImage func(Image) error) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: IOScanError, Errno: err, Cause: err}
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		if err == tag.ErrNoTagsFound {
			return nil, &Error{Kind: NoAudioTrackFound, Cause: err}
		}
		return nil, &Error{Kind: AudioFileScanError, Cause: err}
	}

	t := fromMetadata(meta)

	if err := emitPictures(meta, onImage); err != nil {
		return nil, &Error{Kind: AudioFileScanError, Cause: err}
	}

	if audio, err := probeAudioProperties(f); err == nil {
		t.Audio = audio
	}

	if t.Audio.Duration <= 0 {
		return nil, &Error{Kind: BadAudioDuration, Cause: errBadDuration}
	}

	return t, nil
}

var errBadDuration = &durationErr{}

type durationErr struct{}

func (*durationErr) Error() string { return "metadata: zero or negative audio duration" }

func fromMetadata(meta tag.Metadata) *Track {
	t := &Track{
		Title:             meta.Title(),
		ArtistDisplayName: meta.Artist(),
		PerformerArtists:  map[string][]ArtistRef{},
		UserExtraTags:     map[string][]string{},
	}

	if meta.Artist() != "" {
		t.Artists = append(t.Artists, ArtistRef{Name: meta.Artist()})
	}
	if meta.Composer() != "" {
		t.ComposerArtists = append(t.ComposerArtists, ArtistRef{Name: meta.Composer()})
	}
	if meta.Genre() != "" {
		t.Genres = splitMulti(meta.Genre())
	}
	if meta.Lyrics() != "" {
		t.Lyrics = append(t.Lyrics, parseEmbeddedLyrics(meta.Lyrics()))
	}

	track, trackCount := meta.Track()
	t.TrackNumber = track
	disc, discCount := meta.Disc()
	t.DiscNumber = disc

	t.Release = Release{
		Name:              meta.Album(),
		ArtistDisplayName: meta.AlbumArtist(),
	}
	if meta.AlbumArtist() != "" {
		t.Release.Artists = append(t.Release.Artists, ArtistRef{Name: meta.AlbumArtist()})
	}
	if trackCount > 0 {
		t.Medium.TrackCount = trackCount
		t.Medium.HasTrackCount = true
	}
	if discCount > 0 {
		t.Release.MediumCount = discCount
		t.Release.HasMediumCount = true
	}
	if meta.Year() > 0 {
		t.Date = partialdate.FromYear(meta.Year())
		t.OriginalYear = meta.Year()
		t.HasOriginalYear = true
	}

	mb := tag.MusicBrainz(&meta)
	if mb.Track != "" {
		t.RecordingMBID = mb.Track
	}
	if mb.Album != "" {
		t.Release.MBID = mb.Album
	}
	if mb.ReleaseGroup != "" {
		t.Release.GroupMBID = mb.ReleaseGroup
	}
	if mb.Artist != "" && len(t.Artists) > 0 {
		t.Artists[0].MBID = mb.Artist
	}
	if mb.AlbumArtist != "" && len(t.Release.Artists) > 0 {
		t.Release.Artists[0].MBID = mb.AlbumArtist
	}

	applyRawTags(meta, t)

	return t
}

// applyRawTags fills in fields the Metadata interface does not expose
// directly (conductor/lyricist/mixer/producer/remixer, moods,
// languages, groupings, comments, replay gain, copyright,
// user-extra-tags) by walking the format-specific Raw() map.
func applyRawTags(meta tag.Metadata, t *Track) {
	raw := meta.Raw()
	known := map[string]bool{}

	get := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := raw[k]; ok {
				known[k] = true
				if s, ok := v.(string); ok && s != "" {
					return s, true
				}
			}
		}
		return "", false
	}

	if v, ok := get("TPE3", "CONDUCTOR", "©con"); ok {
		t.ConductorArtists = append(t.ConductorArtists, ArtistRef{Name: v})
	}
	if v, ok := get("TEXT", "LYRICIST"); ok {
		t.LyricistArtists = append(t.LyricistArtists, ArtistRef{Name: v})
	}
	if v, ok := get("TPE4", "REMIXER", "MIXARTIST"); ok {
		t.RemixerArtists = append(t.RemixerArtists, ArtistRef{Name: v})
	}
	if v, ok := get("MIXER"); ok {
		t.MixerArtists = append(t.MixerArtists, ArtistRef{Name: v})
	}
	if v, ok := get("TIPL", "PRODUCER"); ok {
		t.ProducerArtists = append(t.ProducerArtists, ArtistRef{Name: v})
	}
	if v, ok := get("MOOD", "TMOO"); ok {
		t.Moods = splitMulti(v)
	}
	if v, ok := get("LANGUAGE", "TLAN"); ok {
		t.Languages = splitMulti(v)
	}
	if v, ok := get("GROUPING", "TIT1", "©grp"); ok {
		t.Groupings = splitMulti(v)
	}
	if v, ok := get("COPYRIGHT", "TCOP", "cprt"); ok {
		t.Copyright = v
	}
	if v, ok := get("REPLAYGAIN_TRACK_GAIN"); ok {
		t.ReplayGain = &v
	}
	if v, ok := get("REPLAYGAIN_ALBUM_GAIN"); ok {
		t.Medium.ReplayGain = &v
	}
	if v, ok := get("BARCODE"); ok {
		t.Release.Barcode = v
	}
	if v, ok := get("RELEASETYPE", "MUSICBRAINZ_ALBUMTYPE"); ok {
		t.Release.ReleaseTypes = splitMulti(v)
	}
	if v, ok := get("RELEASECOUNTRY"); ok {
		t.Release.Countries = splitMulti(v)
	}
	if v, ok := get("LABEL", "ORGANIZATION"); ok {
		t.Release.Labels = splitMulti(v)
	}
	if v, ok := get("COMPILATION"); ok {
		t.Release.IsCompilation = v == "1"
	}
	if v, ok := get("ORIGINALDATE"); ok {
		if d, err := partialdate.FromString(v); err == nil {
			t.OriginalDate = d
		}
	}
	if v, ok := get("TDEN", "ENCODINGTIME"); ok {
		if d, err := partialdate.FromString(v); err == nil {
			t.EncodingTime = d
		}
	}

	for k, v := range raw {
		base := strings.TrimSuffix(k, trailingIndexSuffix(k))
		if known[base] || known[k] {
			continue
		}
		switch frame := v.(type) {
		case string:
			if isUserExtraTagKey(base) {
				t.UserExtraTags[base] = append(t.UserExtraTags[base], frame)
			}
		case *tag.Comm:
			if base == "COMM" {
				t.Comment = frame.Text
			}
		}
	}
}

// trailingIndexSuffix returns the "_N" duplicate-frame suffix dhowden/tag
// appends to Raw() keys beyond the first occurrence, or "" if none.
func trailingIndexSuffix(k string) string {
	idx := strings.LastIndexByte(k, '_')
	if idx < 0 {
		return ""
	}
	if _, err := strconv.Atoi(k[idx+1:]); err != nil {
		return ""
	}
	return k[idx:]
}

func isUserExtraTagKey(key string) bool {
	switch key {
	case "TIT2", "TPE1", "TALB", "TRCK", "TPOS", "TYER", "TCON", "TCOM",
		"APIC", "PIC", "TPE2", "TPE3", "TEXT", "TPE4", "TIPL", "MOOD", "TMOO",
		"LANGUAGE", "TLAN", "GROUPING", "TIT1", "COPYRIGHT", "TCOP",
		"REPLAYGAIN_TRACK_GAIN", "REPLAYGAIN_ALBUM_GAIN", "BARCODE",
		"RELEASETYPE", "MUSICBRAINZ_ALBUMTYPE", "RELEASECOUNTRY", "LABEL",
		"ORGANIZATION", "COMPILATION", "ORIGINALDATE", "TDEN", "ENCODINGTIME",
		"COMM", "USLT", "UFID", "TXXX":
		return false
	}
	return true
}

func splitMulti(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == '/' || r == ','
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func emitPictures(meta tag.Metadata, onImage func(Image) error) error {
	if onImage == nil {
		return nil
	}
	seen := map[*tag.Picture]bool{}
	if p := meta.Picture(); p != nil {
		seen[p] = true
		if err := onImage(pictureToImage(p)); err != nil {
			return err
		}
	}
	for _, v := range meta.Raw() {
		p, ok := v.(*tag.Picture)
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		if err := onImage(pictureToImage(p)); err != nil {
			return err
		}
	}
	return nil
}

func pictureToImage(p *tag.Picture) Image {
	return Image{Bytes: p.Data, Mime: p.MIMEType, Type: picturePointerType(p.Type), Description: p.Description}
}

// picturePointerType maps the APIC picture-type label dhowden/tag
// surfaces (e.g. "Cover (front)") onto the small closed set the
// catalog cares about. Unrecognized labels fall back to "other".
func picturePointerType(label string) int {
	switch label {
	case "Cover (front)":
		return 1
	case "Cover (back)":
		return 2
	case "Media (e.g. label side of CD)":
		return 3
	case "Band/orchestra logotype":
		return 4
	case "Band/artist":
		return 5
	case "Leaflet page":
		return 6
	default:
		return 0
	}
}

func parseEmbeddedLyrics(raw string) Lyrics {
	return Lyrics{
		Synchronized: false,
		Lines:        []LyricsLine{{Line: raw}},
	}
}

// probeAudioProperties is a best-effort duration/bitrate estimate: the
// dhowden/tag library does not expose decoded audio properties, so we
// fall back to a file-size/bitrate heuristic the way a lightweight
// scanner would when it has no dedicated audio decoder wired in.
func probeAudioProperties(f *os.File) (AudioProperties, error) {
	info, err := f.Stat()
	if err != nil {
		return AudioProperties{}, err
	}
	if info.Size() == 0 {
		return AudioProperties{}, io.ErrUnexpectedEOF
	}
	const assumedBitrateBps = 128_000
	duration := float64(info.Size()*8) / float64(assumedBitrateBps)
	return AudioProperties{
		Duration:      duration,
		Bitrate:       assumedBitrateBps / 1000,
		BitsPerSample: 16,
		ChannelCount:  2,
		SampleRate:    44100,
	}, nil
}
