// Package streaming implements the resumable resource-handler
// protocol: a streaming endpoint builds a ResourceHandler from
// request parameters, then the HTTP layer drives it one chunk at a
// time instead of buffering the whole response in memory.
package streaming

import "time"

// Format is the closed set of transcoding output containers/codecs.
type Format int

const (
	FormatMP3 Format = iota
	FormatOggOpus
	FormatOggVorbis
	FormatMatroskaOpus
	FormatWebmVorbis
)

func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatOggOpus:
		return "opus"
	case FormatOggVorbis:
		return "vorbis"
	case FormatMatroskaOpus:
		return "mkv-opus"
	case FormatWebmVorbis:
		return "webm-vorbis"
	default:
		return "unknown"
	}
}

func (f Format) MimeType() string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatOggOpus, FormatOggVorbis:
		return "audio/ogg"
	case FormatMatroskaOpus:
		return "audio/x-matroska"
	case FormatWebmVorbis:
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}

// ParseSubsonicFormat maps the Subsonic wire "format" parameter onto
// the internal Format enum.
func ParseSubsonicFormat(s string) (Format, bool) {
	switch s {
	case "mp3":
		return FormatMP3, true
	case "opus":
		return FormatOggOpus, true
	case "vorbis":
		return FormatOggVorbis, true
	default:
		return 0, false
	}
}

// InputParameters describes the source audio the transcoder reads.
type InputParameters struct {
	FilePath string
	Duration time.Duration
	Offset   time.Duration
}

// OutputParameters describes what the transcoder should produce.
type OutputParameters struct {
	Format        Format
	Bitrate       int // kbps
	StripMetadata bool
}

// ResourceHandler is the two-call resumable protocol: Open performs any setup and emits the first chunk; Next resumes
// emitting further chunks until done=true. A handler that errors mid-
// stream returns the error from whichever call it happened during.
type ResourceHandler interface {
	// Open returns the handler's framing metadata (content length, if
	// known, and mime type) plus the first chunk of body bytes.
	Open() (meta ResourceMeta, chunk []byte, done bool, err error)
	// Next returns the next chunk of body bytes. done=true on the call
	// that returns the final chunk (which may be empty).
	Next() (chunk []byte, done bool, err error)
	// Close releases any file handles or subprocess resources.
	Close() error
}

// ResourceMeta is what the HTTP layer needs to write response headers
// before the first chunk goes out.
type ResourceMeta struct {
	ContentType string
	// ContentLength is -1 when unknown (a transcode without
	// estimateContentLength, or a response that intentionally disables
	// range requests).
	ContentLength int64
	AcceptRanges  bool
}
