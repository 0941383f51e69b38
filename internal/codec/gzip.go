package codec

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"mbak/internal/backup"
)

// GzipCompressor implements backup.Compressor with gzip. The filename
// contract ties the .gz suffix to this format, so it is the only compressor
// the factory hands out.
type GzipCompressor struct {
	level int
}

var _ backup.Compressor = (*GzipCompressor)(nil)

// NewGzipCompressor creates a GzipCompressor at the default level.
func NewGzipCompressor() *GzipCompressor {
	return &GzipCompressor{level: gzip.DefaultCompression}
}

// Compress reads plaintext from r and writes a gzip stream to w.
func (c *GzipCompressor) Compress(r io.Reader, w io.Writer) error {
	zw, err := gzip.NewWriterLevel(w, c.level)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := io.Copy(zw, r); err != nil {
		return fmt.Errorf("compressing data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing gzip stream: %w", err)
	}
	return nil
}

// Decompress reads a gzip stream from r and writes plaintext to w.
// A truncated or corrupted stream fails here rather than producing partial
// output silently.
func (c *GzipCompressor) Decompress(r io.Reader, w io.Writer) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer zr.Close()

	if _, err := io.Copy(w, zr); err != nil {
		return fmt.Errorf("decompressing data: %w", err)
	}
	if err := zr.Close(); err != nil {
		return fmt.Errorf("finalizing gzip stream: %w", err)
	}
	return nil
}
