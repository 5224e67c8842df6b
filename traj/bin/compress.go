package bin

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

//zstdCloser gives the zstd decoder the io.ReadCloser
//signature, as Close on the decoder doesn't return an error.
type zstdCloser struct {
	*zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.Decoder.Close()
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Compressed returns true if the name of the file indicates a compressed
// trajectory: .zst (zstd) or .gz (gzip).
func Compressed(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".zst") || strings.HasSuffix(n, ".gz")
}

//decompressor returns a reader that decompresses r according to the
//suffix of name, or r itself if name has no known compression suffix.
func decompressor(name string, r io.Reader) (io.ReadCloser, error) {
	n := strings.ToLower(name)
	switch {
	case strings.HasSuffix(n, ".zst"):
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zstdCloser{d}, nil
	case strings.HasSuffix(n, ".gz"):
		return gzip.NewReader(r)
	}
	return io.NopCloser(r), nil
}

//compressor is the writing counterpart of decompressor.
func compressor(name string, w io.Writer) (io.WriteCloser, error) {
	n := strings.ToLower(name)
	switch {
	case strings.HasSuffix(n, ".zst"):
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	case strings.HasSuffix(n, ".gz"):
		return gzip.NewWriterLevel(w, gzip.BestSpeed)
	}
	return nopWriteCloser{w}, nil
}
