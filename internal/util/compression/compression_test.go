package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name        string
		expectError bool
	}{
		{name: "zstd"},
		{name: ""},
		{name: "gzip"},
		{name: "brotli", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.name)
			if tc.expectError {
				if err == nil {
					t.Error("Expected error for unknown compression")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("Expected a compressor")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	content := []byte("%%%\ntitle = \"Draft\"\n%%%\n" + strings.Repeat("Some paragraph text. ", 200))

	for _, c := range []Compressor{ZstdCompressor{}, GzipCompressor{}} {
		compressed, err := c.Compress(content)
		if err != nil {
			t.Fatalf("%T: compress failed: %v", c, err)
		}
		if len(compressed) >= len(content) {
			t.Errorf("%T: expected repetitive content to shrink, %d >= %d", c, len(compressed), len(content))
		}

		decompressed, err := c.Decompress(compressed)
		if err != nil {
			t.Fatalf("%T: decompress failed: %v", c, err)
		}
		if !bytes.Equal(decompressed, content) {
			t.Errorf("%T: round trip changed the content", c)
		}
	}
}

func TestDecompressGarbage(t *testing.T) {
	for _, c := range []Compressor{ZstdCompressor{}, GzipCompressor{}} {
		if _, err := c.Decompress([]byte("not compressed")); err == nil {
			t.Errorf("%T: expected error decompressing garbage", c)
		}
	}
}
