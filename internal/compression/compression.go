// Package compression encodes and decodes OTLP request bodies for the
// HTTP transports and registers the zstd compressor for gRPC.
package compression

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type is a compression algorithm.
type Type string

const (
	TypeNone    Type = "none"
	TypeGzip    Type = "gzip"
	TypeZstd    Type = "zstd"
	TypeSnappy  Type = "snappy"
	TypeZlib    Type = "zlib"
	TypeDeflate Type = "deflate"
	TypeLZ4     Type = "lz4"
)

// Level is an algorithm specific compression level. Zero selects the
// algorithm default.
type Level int

const (
	LevelDefault Level = 0
	LevelFastest Level = 1
	LevelBest    Level = 9
)

// MaxDecompressedSize bounds the output of Decompress.
const MaxDecompressedSize = 64 << 20

// ErrTooLarge is returned when a body inflates beyond MaxDecompressedSize.
var ErrTooLarge = errors.New("decompressed body exceeds size limit")

// Config holds compression configuration.
type Config struct {
	Type  Type
	Level Level
}

// Enabled reports whether the configuration compresses anything.
func (c Config) Enabled() bool {
	return c.Type != "" && c.Type != TypeNone
}

// ParseType parses a compression type name.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case "", TypeNone:
		return TypeNone, nil
	case TypeGzip, TypeZstd, TypeSnappy, TypeZlib, TypeDeflate, TypeLZ4:
		return t, nil
	default:
		return TypeNone, fmt.Errorf("unsupported compression type: %s", s)
	}
}

// ContentEncoding returns the Content-Encoding header value for t.
func (t Type) ContentEncoding() string {
	if t == TypeNone {
		return ""
	}
	return string(t)
}

// ParseContentEncoding maps a Content-Encoding header value to a Type.
// Unknown encodings map to TypeNone.
func ParseContentEncoding(encoding string) Type {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		return TypeGzip
	case "zstd":
		return TypeZstd
	case "snappy", "x-snappy-framed":
		return TypeSnappy
	case "zlib":
		return TypeZlib
	case "deflate":
		return TypeDeflate
	case "lz4":
		return TypeLZ4
	default:
		return TypeNone
	}
}

// Compress compresses data with cfg. Without compression data is returned
// unchanged.
func Compress(data []byte, cfg Config) ([]byte, error) {
	if !cfg.Enabled() {
		return data, nil
	}

	var out []byte
	var err error
	switch cfg.Type {
	case TypeZstd:
		var enc *zstd.Encoder
		if enc, err = zstdEncoder(cfg.Level); err == nil {
			out = enc.EncodeAll(data, make([]byte, 0, len(data)/2))
		}
	case TypeSnappy:
		out = snappy.Encode(nil, data)
	case TypeGzip, TypeZlib, TypeDeflate, TypeLZ4:
		var buf bytes.Buffer
		if err = streamCompress(&buf, data, cfg); err == nil {
			out = buf.Bytes()
		}
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%s compress: %w", cfg.Type, err)
	}
	recordBytes(cfg.Type, len(data), len(out))
	return out, nil
}

func streamCompress(buf *bytes.Buffer, data []byte, cfg Config) error {
	var w io.WriteCloser
	var err error
	level := int(cfg.Level)
	if cfg.Level == LevelDefault {
		level = flate.DefaultCompression
	}
	switch cfg.Type {
	case TypeGzip:
		w, err = gzip.NewWriterLevel(buf, level)
	case TypeZlib:
		w, err = zlib.NewWriterLevel(buf, level)
	case TypeDeflate:
		w, err = flate.NewWriter(buf, level)
	case TypeLZ4:
		lw := lz4.NewWriter(buf)
		switch {
		case cfg.Level == LevelDefault:
		case cfg.Level < 1 || cfg.Level > 9:
			err = fmt.Errorf("lz4 level %d out of range 1-9", cfg.Level)
		default:
			// lz4.Level1 is 1<<8, each level doubles.
			err = lw.Apply(lz4.CompressionLevelOption(lz4.CompressionLevel(1 << (7 + cfg.Level))))
		}
		w = lw
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Close()
}

// Decompress inflates data compressed with t. Output is capped at
// MaxDecompressedSize.
func Decompress(data []byte, t Type) ([]byte, error) {
	var r io.Reader
	switch t {
	case "", TypeNone:
		return data, nil
	case TypeZstd:
		out, err := zstdDecoder().DecodeAll(data, nil)
		if err != nil {
			if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
				return nil, ErrTooLarge
			}
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case TypeSnappy:
		n, err := snappy.DecodedLen(data)
		if err != nil {
			return nil, fmt.Errorf("snappy decompress: %w", err)
		}
		if n > MaxDecompressedSize {
			return nil, ErrTooLarge
		}
		return snappy.Decode(nil, data)
	case TypeGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w", err)
		}
		defer gr.Close()
		r = gr
	case TypeZlib:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zlib decompress: %w", err)
		}
		defer zr.Close()
		r = zr
	case TypeDeflate:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		r = fr
	case TypeLZ4:
		r = lz4.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}

	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", t, err)
	}
	if len(out) > MaxDecompressedSize {
		return nil, ErrTooLarge
	}
	return out, nil
}

// zstd encoders and the decoder are safe for concurrent EncodeAll/DecodeAll
// and expensive to build, so one of each is shared per level.
var (
	zstdEncoders sync.Map // zstd.EncoderLevel -> *zstd.Encoder
	zstdDecoder  = sync.OnceValue(func() *zstd.Decoder {
		d, _ := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(MaxDecompressedSize),
		)
		return d
	})
)

func zstdLevel(l Level) zstd.EncoderLevel {
	switch {
	case l == LevelDefault:
		return zstd.SpeedDefault
	case l <= 1:
		return zstd.SpeedFastest
	case l <= 3:
		return zstd.SpeedDefault
	case l <= 6:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func zstdEncoder(l Level) (*zstd.Encoder, error) {
	level := zstdLevel(l)
	if enc, ok := zstdEncoders.Load(level); ok {
		return enc.(*zstd.Encoder), nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	actual, loaded := zstdEncoders.LoadOrStore(level, enc)
	if loaded {
		_ = enc.Close()
	}
	return actual.(*zstd.Encoder), nil
}
