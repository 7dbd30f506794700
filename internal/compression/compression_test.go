package compression

import (
	"bytes"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
		wantErr  bool
	}{
		{"", TypeNone, false},
		{"none", TypeNone, false},
		{"gzip", TypeGzip, false},
		{"GZIP", TypeGzip, false},
		{"zstd", TypeZstd, false},
		{"snappy", TypeSnappy, false},
		{"zlib", TypeZlib, false},
		{"deflate", TypeDeflate, false},
		{"lz4", TypeLZ4, false},
		{"unknown", TypeNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("ParseType(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestContentEncoding(t *testing.T) {
	tests := []struct {
		t        Type
		expected string
	}{
		{TypeNone, ""},
		{TypeGzip, "gzip"},
		{TypeZstd, "zstd"},
		{TypeSnappy, "snappy"},
		{TypeZlib, "zlib"},
		{TypeDeflate, "deflate"},
		{TypeLZ4, "lz4"},
	}

	for _, tt := range tests {
		t.Run(string(tt.t), func(t *testing.T) {
			got := tt.t.ContentEncoding()
			if got != tt.expected {
				t.Errorf("ContentEncoding() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseContentEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
	}{
		{"", TypeNone},
		{"gzip", TypeGzip},
		{"x-gzip", TypeGzip},
		{"zstd", TypeZstd},
		{"snappy", TypeSnappy},
		{"x-snappy-framed", TypeSnappy},
		{"zlib", TypeZlib},
		{"deflate", TypeDeflate},
		{"lz4", TypeLZ4},
		{"unknown", TypeNone},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseContentEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("ParseContentEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCompressDecompress(t *testing.T) {
	testData := []byte("Hello, World! This is some test data for compression testing. Let's make it a bit longer to see actual compression.")

	tests := []struct {
		name  string
		cfg   Config
	}{
		{"none", Config{Type: TypeNone}},
		{"gzip-default", Config{Type: TypeGzip, Level: LevelDefault}},
		{"gzip-fast", Config{Type: TypeGzip, Level: LevelFastest}},
		{"gzip-best", Config{Type: TypeGzip, Level: LevelBest}},
		{"zstd-default", Config{Type: TypeZstd, Level: LevelDefault}},
		{"zstd-fastest", Config{Type: TypeZstd, Level: LevelFastest}},
		{"zstd-better", Config{Type: TypeZstd, Level: 5}},
		{"zstd-best", Config{Type: TypeZstd, Level: LevelBest}},
		{"snappy", Config{Type: TypeSnappy}},
		{"zlib-default", Config{Type: TypeZlib, Level: LevelDefault}},
		{"zlib-best", Config{Type: TypeZlib, Level: LevelBest}},
		{"deflate-default", Config{Type: TypeDeflate, Level: LevelDefault}},
		{"deflate-best", Config{Type: TypeDeflate, Level: LevelBest}},
		{"lz4-default", Config{Type: TypeLZ4, Level: LevelDefault}},
		{"lz4-best", Config{Type: TypeLZ4, Level: LevelBest}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := Compress(testData, tt.cfg)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}

			decompressed, err := Decompress(compressed, tt.cfg.Type)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}

			if !bytes.Equal(decompressed, testData) {
				t.Errorf("Decompressed data doesn't match original. Got %d bytes, want %d bytes", len(decompressed), len(testData))
			}
		})
	}
}

func TestCompressNone(t *testing.T) {
	data := []byte("test data")
	cfg := Config{Type: TypeNone}

	compressed, err := Compress(data, cfg)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	if !bytes.Equal(compressed, data) {
		t.Error("Compress with TypeNone should return original data")
	}
}

func TestDecompressNone(t *testing.T) {
	data := []byte("test data")

	decompressed, err := Decompress(data, TypeNone)
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}

	if !bytes.Equal(decompressed, data) {
		t.Error("Decompress with TypeNone should return original data")
	}
}

func TestCompressUnsupportedType(t *testing.T) {
	_, err := Compress([]byte("test"), Config{Type: Type("invalid")})
	if err == nil {
		t.Error("expected error for unsupported compression type")
	}
}

func TestDecompressUnsupportedType(t *testing.T) {
	_, err := Decompress([]byte("test"), Type("invalid"))
	if err == nil {
		t.Error("expected error for unsupported compression type")
	}
}

func TestDecompressInvalidData(t *testing.T) {
	invalidData := []byte("not compressed data")

	tests := []Type{
		TypeGzip,
		TypeZstd,
		TypeSnappy,
		TypeZlib,
		TypeDeflate,
		TypeLZ4,
	}

	for _, tt := range tests {
		t.Run(string(tt), func(t *testing.T) {
			_, err := Decompress(invalidData, tt)
			if err == nil {
				t.Errorf("expected error for invalid %s data", tt)
			}
		})
	}
}

func TestEmptyData(t *testing.T) {
	emptyData := []byte{}

	tests := []Config{
		{Type: TypeNone},
		{Type: TypeGzip},
		{Type: TypeZstd},
		{Type: TypeSnappy},
		{Type: TypeZlib},
		{Type: TypeDeflate},
		{Type: TypeLZ4},
	}

	for _, tt := range tests {
		t.Run(string(tt.Type), func(t *testing.T) {
			compressed, err := Compress(emptyData, tt)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}

			decompressed, err := Decompress(compressed, tt.Type)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}

			if !bytes.Equal(decompressed, emptyData) {
				t.Error("Decompressed data should be empty")
			}
		})
	}
}

func TestLZ4LevelOutOfRange(t *testing.T) {
	if _, err := Compress([]byte("x"), Config{Type: TypeLZ4, Level: 12}); err == nil {
		t.Error("expected error for lz4 level 12")
	}
}

func TestDecompressSizeLimit(t *testing.T) {
	big := make([]byte, MaxDecompressedSize+1024)
	for _, typ := range []Type{TypeGzip, TypeZstd, TypeSnappy} {
		t.Run(string(typ), func(t *testing.T) {
			compressed, err := Compress(big, Config{Type: typ})
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if _, err := Decompress(compressed, typ); !errors.Is(err, ErrTooLarge) {
				t.Errorf("Decompress error = %v, want ErrTooLarge", err)
			}
		})
	}
}

func TestGRPCName(t *testing.T) {
	tests := map[Type]string{
		TypeGzip:   "gzip",
		TypeZstd:   "zstd",
		TypeSnappy: "",
		TypeNone:   "",
	}
	for typ, want := range tests {
		if got := GRPCName(typ); got != want {
			t.Errorf("GRPCName(%s) = %q, want %q", typ, got, want)
		}
	}
}

func TestZstdGRPCCompressorRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := zstdCompressor{}.Compress(&buf)
	if err != nil {
		t.Fatal(err)
	}
	payload := bytes.Repeat([]byte("span"), 512)
	if _, err := w.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := zstdCompressor{}.Decompress(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Error("round trip mismatch")
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestCompressRecordsBytes(t *testing.T) {
	in := compressionBytesTotal.WithLabelValues(string(TypeGzip), "in")
	before := counterValue(t, in)
	if _, err := Compress(make([]byte, 100), Config{Type: TypeGzip}); err != nil {
		t.Fatal(err)
	}
	if got := counterValue(t, in) - before; got != 100 {
		t.Errorf("in bytes delta = %v, want 100", got)
	}
}
