package streaming

import "strings"

// TrackInfo is the subset of catalog.Track the choice-of-path
// algorithm needs; kept independent of the catalog package so this
// file has no import-cycle risk with internal/subsonic.
type TrackInfo struct {
	AbsoluteFilePath string
	Suffix           string // lowercase extension, no dot, e.g. "flac"
	BitrateKbps      int
	DurationSeconds  float64
}

// UserDefaults carries the per-user transcoding preferences.
type UserDefaults struct {
	EnableTranscodingByDefault bool
	DefaultOutputFormat        string // Subsonic wire name, e.g. "opus"
	DefaultBitrateKbps         int
}

// Plan is the resolved output of the choice-of-path algorithm: either
// "serve the file as-is" or "transcode to this format/bitrate".
type Plan struct {
	Transcode bool
	Output    OutputParameters
}

// suffixCompatible reports whether serving the raw file satisfies a
// requested output format without transcoding: true only when the
// container/codec the file already has is exactly what was asked for.
func suffixCompatible(suffix string, format Format) bool {
	switch format {
	case FormatMP3:
		return suffix == "mp3"
	case FormatOggOpus:
		return suffix == "opus"
	case FormatOggVorbis:
		return suffix == "ogg" || suffix == "oga"
	default:
		return false
	}
}

// Choose decides between serving the original file and transcoding.
func Choose(t TrackInfo, requestedFormat string, maxBitRateKbps int, user UserDefaults) Plan {
	if strings.EqualFold(requestedFormat, "raw") {
		return Plan{Transcode: false}
	}

	var requested Format
	haveRequested := false
	if requestedFormat != "" {
		if f, ok := ParseSubsonicFormat(requestedFormat); ok {
			requested, haveRequested = f, true
		}
	} else if user.EnableTranscodingByDefault && user.DefaultOutputFormat != "" {
		if f, ok := ParseSubsonicFormat(user.DefaultOutputFormat); ok {
			requested, haveRequested = f, true
		}
	}

	withinBitrate := maxBitRateKbps == 0 || t.BitrateKbps <= maxBitRateKbps

	if !haveRequested && withinBitrate {
		return Plan{Transcode: false}
	}
	if haveRequested && suffixCompatible(t.Suffix, requested) && withinBitrate {
		return Plan{Transcode: false}
	}

	if !haveRequested {
		// Bitrate exceeds the cap but the client named no format: fall
		// back to the user's configured default so the request still
		// succeeds with a best-effort transcode.
		if user.DefaultOutputFormat != "" {
			if f, ok := ParseSubsonicFormat(user.DefaultOutputFormat); ok {
				requested = f
			}
		} else {
			requested = FormatMP3
		}
	}

	bitrate := user.DefaultBitrateKbps
	if bitrate == 0 {
		bitrate = t.BitrateKbps
	}
	if maxBitRateKbps > 0 && (bitrate == 0 || bitrate > maxBitRateKbps) {
		bitrate = maxBitRateKbps
	}

	return Plan{
		Transcode: true,
		Output: OutputParameters{
			Format:  requested,
			Bitrate: bitrate,
		},
	}
}
