// Package images provides the pure image probes the scanner uses to
// turn embedded-picture bytes into a TrackEmbeddedImage candidate
// without re-reading the source audio file.
package images

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cespare/xxhash/v2"
	"github.com/gabriel-vasile/mimetype"
)

var ErrImage = errors.New("images: could not decode image")

type Dimensions struct {
	Width  int
	Height int
}

// Probe decodes just enough of the image to report its pixel
// dimensions. It never fully rasterizes the pixel data.
func Probe(data []byte) (Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, ErrImage
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// Hash computes the 64-bit content hash used as half of the
// (size, hash) TrackEmbeddedImage dedup key.
func Hash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// DetectMime reports the best-effort MIME type of data, used when the
// tag's own reported MIME is empty or implausible.
func DetectMime(data []byte) string {
	return mimetype.Detect(data).String()
}

// HashingReader wraps an io.Writer-style hasher so the scanner can
// stream image bytes through a single pass computing size and hash
// together when a picture arrives as a stream rather than a slice.
type HashingReader struct {
	digest *xxhash.Digest
	size   int64
}

func NewHashingReader() *HashingReader {
	return &HashingReader{digest: xxhash.New()}
}

func (h *HashingReader) Write(p []byte) (int, error) {
	n, err := h.digest.Write(p)
	h.size += int64(n)
	return n, err
}

func (h *HashingReader) Sum() (size int64, hash uint64) {
	return h.size, h.digest.Sum64()
}
