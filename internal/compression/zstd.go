// Package compression wraps zstd for at-rest block compression.
//
// Compressed payloads are detected by the zstd frame magic, so stores can mix
// compressed and passthrough blocks freely and disable compression without
// migrating existing data.
package compression

import (
	"bytes"

	"github.com/klauspost/compress/zstd"
)

// Blocks smaller than this rarely win anything from zstd and are stored as-is.
const minCompressSize = 128

var frameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Compressor holds a reusable encoder/decoder pair.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

// NewCompressor creates a compressor. Levels 1..3 map to fastest, default and
// better compression; anything else falls back to the default level. A
// disabled compressor still decompresses blocks written earlier.
func NewCompressor(level int, enabled bool) (*Compressor, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	if !enabled {
		return &Compressor{decoder: decoder}, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		decoder.Close()
		return nil, err
	}

	return &Compressor{encoder: encoder, decoder: decoder, enabled: true}, nil
}

// Compress returns the zstd frame for data, or data itself when compression
// is disabled, the payload is tiny, or compression would not shrink it.
func (c *Compressor) Compress(data []byte) []byte {
	if !c.enabled || len(data) < minCompressSize {
		return data
	}

	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
	if len(compressed) >= len(data) {
		return data
	}
	return compressed
}

// Decompress reverses Compress. Payloads without the zstd frame magic were
// stored as-is and are returned unchanged.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, frameMagic) {
		return data, nil
	}
	return c.decoder.DecodeAll(data, nil)
}

// Close releases the encoder and decoder.
func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
