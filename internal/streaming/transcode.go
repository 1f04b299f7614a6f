package streaming

import (
	"fmt"
	"io"
	"os/exec"
)

// Transcoder is the external collaborator boundary: something that can turn InputParameters into a byte stream
// shaped by OutputParameters. Start returns the stream to read from;
// closing that stream releases the underlying process/resources.
type Transcoder interface {
	Start(in InputParameters, out OutputParameters) (stream io.ReadCloser, err error)
}

// FfmpegTranscoder shells out to ffmpeg when it is present on PATH.
// This is the concrete Transcoder LMS wires by default; any other
// implementation of the interface is equally valid, which is the
// point of keeping Transcoder an interface rather than a concrete type.
type FfmpegTranscoder struct {
	BinaryPath string // defaults to "ffmpeg" if empty
}

func (t FfmpegTranscoder) Start(in InputParameters, out OutputParameters) (io.ReadCloser, error) {
	bin := t.BinaryPath
	if bin == "" {
		bin = "ffmpeg"
	}

	args := []string{"-hide_banner", "-loglevel", "error"}
	if in.Offset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", in.Offset.Seconds()))
	}
	args = append(args, "-i", in.FilePath)
	if out.StripMetadata {
		args = append(args, "-map_metadata", "-1")
	}
	args = append(args, ffmpegCodecArgs(out.Format)...)
	if out.Bitrate > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%dk", out.Bitrate))
	}
	args = append(args, "-f", ffmpegContainer(out.Format), "pipe:1")

	cmd := exec.Command(bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &cmdReadCloser{ReadCloser: stdout, cmd: cmd}, nil
}

type cmdReadCloser struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (c *cmdReadCloser) Close() error {
	err := c.ReadCloser.Close()
	_ = c.cmd.Wait()
	return err
}

func ffmpegCodecArgs(f Format) []string {
	switch f {
	case FormatMP3:
		return []string{"-codec:a", "libmp3lame"}
	case FormatOggOpus, FormatMatroskaOpus:
		return []string{"-codec:a", "libopus"}
	case FormatOggVorbis, FormatWebmVorbis:
		return []string{"-codec:a", "libvorbis"}
	default:
		return nil
	}
}

func ffmpegContainer(f Format) string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatOggOpus, FormatOggVorbis:
		return "ogg"
	case FormatMatroskaOpus:
		return "matroska"
	case FormatWebmVorbis:
		return "webm"
	default:
		return "mp3"
	}
}

const transcodeChunkSize = 64 * 1024

// TranscodingResourceHandler drives an injected Transcoder and streams
// its stdout. Offset > 0 disables range (ResourceMeta.AcceptRanges is
// always false here; seeking happens by restarting the decoder at a
// new offset, not by byte-range on the compressed output).
type TranscodingResourceHandler struct {
	Transcoder            Transcoder
	Input                 InputParameters
	Output                OutputParameters
	EstimateContentLength bool

	stream io.ReadCloser
}

func NewTranscodingResourceHandler(t Transcoder, in InputParameters, out OutputParameters, estimate bool) *TranscodingResourceHandler {
	return &TranscodingResourceHandler{Transcoder: t, Input: in, Output: out, EstimateContentLength: estimate}
}

func (h *TranscodingResourceHandler) Open() (ResourceMeta, []byte, bool, error) {
	stream, err := h.Transcoder.Start(h.Input, h.Output)
	if err != nil {
		return ResourceMeta{}, nil, true, err
	}
	h.stream = stream

	meta := ResourceMeta{ContentType: h.Output.Format.MimeType(), ContentLength: -1, AcceptRanges: false}
	if h.EstimateContentLength && h.Output.Bitrate > 0 {
		bitsPerSecond := int64(h.Output.Bitrate) * 1000
		meta.ContentLength = bitsPerSecond / 8 * int64(h.Input.Duration.Seconds())
	}
	return h.readNext(meta)
}

func (h *TranscodingResourceHandler) Next() ([]byte, bool, error) {
	_, chunk, done, err := h.readNext(ResourceMeta{})
	return chunk, done, err
}

func (h *TranscodingResourceHandler) readNext(meta ResourceMeta) (ResourceMeta, []byte, bool, error) {
	buf := make([]byte, transcodeChunkSize)
	n, err := h.stream.Read(buf)
	if err == io.EOF {
		return meta, buf[:n], true, nil
	}
	if err != nil {
		return meta, nil, true, err
	}
	return meta, buf[:n], false, nil
}

func (h *TranscodingResourceHandler) Close() error {
	if h.stream == nil {
		return nil
	}
	return h.stream.Close()
}
