package compression

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/grpc/encoding"
	_ "google.golang.org/grpc/encoding/gzip" // registers "gzip"
)

func init() {
	encoding.RegisterCompressor(zstdCompressor{})
}

// GRPCName returns the gRPC compressor name for t, or "" when gRPC has no
// compressor registered for it.
func GRPCName(t Type) string {
	switch t {
	case TypeGzip, TypeZstd:
		if encoding.GetCompressor(string(t)) != nil {
			return string(t)
		}
	}
	return ""
}

type zstdCompressor struct{}

func (zstdCompressor) Name() string { return string(TypeZstd) }

func (zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
}

func (zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	d, err := zstd.NewReader(r,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(MaxDecompressedSize),
	)
	if err != nil {
		return nil, err
	}
	return &zstdStream{d: d}, nil
}

// zstdStream releases the decoder's goroutines once the message is read.
type zstdStream struct {
	d *zstd.Decoder
}

func (s *zstdStream) Read(p []byte) (int, error) {
	n, err := s.d.Read(p)
	if err != nil {
		s.d.Close()
	}
	return n, err
}
