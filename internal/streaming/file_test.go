package streaming

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func drain(t *testing.T, h ResourceHandler) ([]byte, ResourceMeta) {
	t.Helper()
	meta, chunk, done, err := h.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var buf bytes.Buffer
	buf.Write(chunk)
	for !done {
		var next []byte
		next, done, err = h.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		buf.Write(next)
	}
	return buf.Bytes(), meta
}

func TestFileResourceHandlerServesWholeFile(t *testing.T) {
	content := bytes.Repeat([]byte("abcdefgh"), 20000) // > one chunk
	path := writeTempFile(t, content)

	h := NewFileResourceHandler(path, "")
	defer h.Close()
	got, meta := drain(t, h)
	if !bytes.Equal(got, content) {
		t.Fatalf("got %d bytes, want %d", len(got), len(content))
	}
	if meta.ContentLength != int64(len(content)) {
		t.Fatalf("got content length %d want %d", meta.ContentLength, len(content))
	}
	if !meta.AcceptRanges {
		t.Fatal("expected AcceptRanges=true for file resource")
	}
}

func TestFileResourceHandlerRespectsRange(t *testing.T) {
	content := []byte("0123456789")
	path := writeTempFile(t, content)

	h := NewFileResourceHandler(path, "")
	h.RangeStart = 3
	h.RangeLen = 4
	defer h.Close()
	got, meta := drain(t, h)
	if string(got) != "3456" {
		t.Fatalf("got %q, want %q", got, "3456")
	}
	if meta.ContentLength != 4 {
		t.Fatalf("got content length %d want 4", meta.ContentLength)
	}
}

func TestFileResourceHandlerMissingFileIsNotFound(t *testing.T) {
	h := NewFileResourceHandler(filepath.Join(t.TempDir(), "missing.mp3"), "")
	_, _, _, err := h.Open()
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryResourceHandlerServesData(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 200000)
	h := NewMemoryResourceHandler(data, "image/jpeg")
	defer h.Close()
	got, meta := drain(t, h)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %d bytes, want %d", len(got), len(data))
	}
	if meta.ContentType != "image/jpeg" {
		t.Fatalf("got content type %q", meta.ContentType)
	}
	if meta.AcceptRanges {
		t.Fatal("memory resource handler should not advertise range support")
	}
}
