// Package compression stores post markdown compressed at rest.
package compression

import (
	"fmt"

	"github.com/debemdeboas/the-press/internal/config"
)

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// New returns the compressor registered under name ("zstd" or "gzip").
func New(name string) (Compressor, error) {
	switch name {
	case "", config.CompressionZstd:
		return ZstdCompressor{}, nil
	case config.CompressionGzip:
		return GzipCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}
