package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodedPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestProbeReportsDimensions(t *testing.T) {
	data := encodedPNG(t, 16, 9)
	dims, err := Probe(data)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if dims.Width != 16 || dims.Height != 9 {
		t.Fatalf("got %+v, want 16x9", dims)
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	if _, err := Probe([]byte("not an image")); err != ErrImage {
		t.Fatalf("expected ErrImage, got %v", err)
	}
}

func TestHashIsDeterministicAndContentSensitive(t *testing.T) {
	a := encodedPNG(t, 4, 4)
	b := encodedPNG(t, 4, 4)
	c := encodedPNG(t, 5, 5)

	if Hash(a) != Hash(b) {
		t.Fatal("identical content should hash identically")
	}
	if Hash(a) == Hash(c) {
		t.Fatal("different content should (almost certainly) hash differently")
	}
}

func TestDetectMime(t *testing.T) {
	data := encodedPNG(t, 2, 2)
	if got := DetectMime(data); got != "image/png" {
		t.Fatalf("got %q, want image/png", got)
	}
}

func TestHashingReaderMatchesHash(t *testing.T) {
	data := encodedPNG(t, 8, 8)
	hr := NewHashingReader()
	if _, err := hr.Write(data[:10]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := hr.Write(data[10:]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	size, hash := hr.Sum()
	if size != int64(len(data)) {
		t.Fatalf("got size %d want %d", size, len(data))
	}
	if hash != Hash(data) {
		t.Fatalf("streamed hash %d != whole-buffer hash %d", hash, Hash(data))
	}
}
