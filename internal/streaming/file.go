package streaming

import (
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by Open/Next when the underlying file has
// disappeared since the request was dispatched; the HTTP layer maps
// it to a bare 404.
var ErrNotFound = errors.New("streaming: resource not found")

const fileChunkSize = 64 * 1024

// FileResourceHandler streams an absolute file path with HTTP Range
// support. RangeStart/RangeLen restrict the served byte window;
// RangeLen -1 (as NewFileResourceHandler sets it) serves from
// RangeStart to EOF, and RangeLen 0 serves nothing.
type FileResourceHandler struct {
	Path         string
	MimeOverride string
	RangeStart   int64
	RangeLen     int64 // -1 means "to EOF"

	f         *os.File
	remaining int64
}

func NewFileResourceHandler(path, mimeOverride string) *FileResourceHandler {
	return &FileResourceHandler{Path: path, MimeOverride: mimeOverride, RangeLen: -1}
}

func (h *FileResourceHandler) mimeType() string {
	if h.MimeOverride != "" {
		return h.MimeOverride
	}
	if t := mime.TypeByExtension(filepath.Ext(h.Path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (h *FileResourceHandler) Open() (ResourceMeta, []byte, bool, error) {
	f, err := os.Open(h.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return ResourceMeta{}, nil, true, ErrNotFound
		}
		return ResourceMeta{}, nil, true, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return ResourceMeta{}, nil, true, err
	}

	size := info.Size()
	length := h.RangeLen
	if length < 0 {
		length = size - h.RangeStart
	}
	if h.RangeStart > 0 {
		if _, err := f.Seek(h.RangeStart, io.SeekStart); err != nil {
			f.Close()
			return ResourceMeta{}, nil, true, err
		}
	}

	h.f = f
	h.remaining = length
	meta := ResourceMeta{ContentType: h.mimeType(), ContentLength: length, AcceptRanges: true}
	return h.readNext(meta)
}

func (h *FileResourceHandler) Next() ([]byte, bool, error) {
	_, chunk, done, err := h.readNext(ResourceMeta{})
	return chunk, done, err
}

func (h *FileResourceHandler) readNext(meta ResourceMeta) (ResourceMeta, []byte, bool, error) {
	if h.remaining <= 0 {
		return meta, nil, true, nil
	}
	want := int64(fileChunkSize)
	if h.remaining < want {
		want = h.remaining
	}
	buf := make([]byte, want)
	n, err := h.f.Read(buf)
	if n > 0 {
		h.remaining -= int64(n)
	}
	if err != nil && err != io.EOF {
		return meta, nil, true, err
	}
	done := h.remaining <= 0 || err == io.EOF
	return meta, buf[:n], done, nil
}

func (h *FileResourceHandler) Close() error {
	if h.f == nil {
		return nil
	}
	return h.f.Close()
}

// MemoryResourceHandler serves an already-loaded byte slice, used for
// embedded cover art re-extracted from a tag at request time rather
// than read off disk.
type MemoryResourceHandler struct {
	Data     []byte
	MimeType string

	offset int
}

func NewMemoryResourceHandler(data []byte, mimeType string) *MemoryResourceHandler {
	return &MemoryResourceHandler{Data: data, MimeType: mimeType}
}

func (h *MemoryResourceHandler) Open() (ResourceMeta, []byte, bool, error) {
	meta := ResourceMeta{ContentType: h.MimeType, ContentLength: int64(len(h.Data)), AcceptRanges: false}
	return h.readNext(meta)
}

func (h *MemoryResourceHandler) Next() ([]byte, bool, error) {
	_, chunk, done, err := h.readNext(ResourceMeta{})
	return chunk, done, err
}

func (h *MemoryResourceHandler) readNext(meta ResourceMeta) (ResourceMeta, []byte, bool, error) {
	if h.offset >= len(h.Data) {
		return meta, nil, true, nil
	}
	end := h.offset + fileChunkSize
	if end > len(h.Data) {
		end = len(h.Data)
	}
	chunk := h.Data[h.offset:end]
	h.offset = end
	return meta, chunk, h.offset >= len(h.Data), nil
}

func (h *MemoryResourceHandler) Close() error { return nil }
