package streaming

import "testing"

// TestChooseTranscodingScenarios covers the passthrough-vs-transcode
// decision table.
func TestChooseTranscodingScenarios(t *testing.T) {
	mp3Track := TrackInfo{Suffix: "mp3", BitrateKbps: 192}
	mp3User := UserDefaults{EnableTranscodingByDefault: true, DefaultOutputFormat: "mp3", DefaultBitrateKbps: 192}

	t.Run("mp3 input, mp3 preference, no cap: file resource", func(t *testing.T) {
		plan := Choose(mp3Track, "", 0, mp3User)
		if plan.Transcode {
			t.Fatalf("expected no transcoding, got %+v", plan)
		}
	})

	t.Run("mp3 input, mp3 preference, maxBitRate 128: transcode to mp3 @128", func(t *testing.T) {
		plan := Choose(mp3Track, "", 128, mp3User)
		if !plan.Transcode {
			t.Fatal("expected transcoding when bitrate exceeds cap")
		}
		if plan.Output.Format != FormatMP3 {
			t.Fatalf("expected MP3 output, got %v", plan.Output.Format)
		}
		if plan.Output.Bitrate != 128 {
			t.Fatalf("expected bitrate clamped to 128, got %d", plan.Output.Bitrate)
		}
	})

	t.Run("flac input, format=opus, no cap: transcode to opus at user default", func(t *testing.T) {
		flacTrack := TrackInfo{Suffix: "flac", BitrateKbps: 1000}
		user := UserDefaults{DefaultBitrateKbps: 160}
		plan := Choose(flacTrack, "opus", 0, user)
		if !plan.Transcode {
			t.Fatal("expected transcoding for codec-incompatible format request")
		}
		if plan.Output.Format != FormatOggOpus {
			t.Fatalf("expected OggOpus output, got %v", plan.Output.Format)
		}
		if plan.Output.Bitrate != 160 {
			t.Fatalf("expected user default bitrate 160, got %d", plan.Output.Bitrate)
		}
	})
}

func TestChooseRawAlwaysPassesThrough(t *testing.T) {
	plan := Choose(TrackInfo{Suffix: "flac", BitrateKbps: 1000}, "raw", 64, UserDefaults{})
	if plan.Transcode {
		t.Fatal("format=raw must never transcode")
	}
}

func TestChooseNoPreferenceWithinBitrateIsFileResource(t *testing.T) {
	plan := Choose(TrackInfo{Suffix: "mp3", BitrateKbps: 128}, "", 0, UserDefaults{})
	if plan.Transcode {
		t.Fatal("expected file resource when no format requested and no bitrate cap")
	}
}

func TestChooseCodecCompatiblePassthrough(t *testing.T) {
	track := TrackInfo{Suffix: "ogg", BitrateKbps: 96}
	plan := Choose(track, "vorbis", 0, UserDefaults{})
	if plan.Transcode {
		t.Fatal("requesting the format the file already is should pass through untranscoded")
	}
}

func TestParseSubsonicFormat(t *testing.T) {
	cases := map[string]Format{"mp3": FormatMP3, "opus": FormatOggOpus, "vorbis": FormatOggVorbis}
	for in, want := range cases {
		got, ok := ParseSubsonicFormat(in)
		if !ok || got != want {
			t.Fatalf("ParseSubsonicFormat(%q) = %v, %v; want %v, true", in, got, ok, want)
		}
	}
	if _, ok := ParseSubsonicFormat("unknown-format"); ok {
		t.Fatal("expected unknown format to fail to parse")
	}
}
