// Package compression provides the byte-to-byte compressors that protocols
// select for their batches.
package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"voxelgate.ai/internal/protocol"
)

// MaxDecompressedSize bounds the output of Decompress.
const MaxDecompressedSize = 8 << 20

var ErrTooLarge = errors.New("compression: decompressed payload too large")

// Compressor is safe for concurrent use.
type Compressor interface {
	Name() string
	// NetworkID is the algorithm id sent in batch headers.
	NetworkID() uint16
	Compress(b []byte) ([]byte, error)
	Decompress(b []byte) ([]byte, error)
}

const (
	NameNone   = "none"
	NameZlib   = "zlib"
	NameSnappy = "snappy"
	NameZstd   = "zstd"
	NameLZ4    = "lz4"
)

var (
	None   Compressor = noneCompressor{}
	Zlib   Compressor = &flateCompressor{level: 7}
	Snappy Compressor = snappyCompressor{}
	Zstd   Compressor = newZstdCompressor()
	LZ4    Compressor = lz4Compressor{}
)

func ByName(name string) (Compressor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameNone:
		return None, nil
	case NameZlib, "":
		return Zlib, nil
	case NameSnappy:
		return Snappy, nil
	case NameZstd:
		return Zstd, nil
	case NameLZ4:
		return LZ4, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

// ForProtocol returns the compressor configured for protocol p.
func ForProtocol(r *protocol.Registry, p protocol.ID) (Compressor, error) {
	name, err := r.Compression(p)
	if err != nil {
		return nil, err
	}
	return ByName(name)
}

// ValidateRegistry checks that every accepted protocol names a known compressor.
func ValidateRegistry(r *protocol.Registry) error {
	for _, p := range r.Accepted() {
		if _, err := ForProtocol(r, p); err != nil {
			return fmt.Errorf("protocol %d: %w", p, err)
		}
	}
	return nil
}

type noneCompressor struct{}

func (noneCompressor) Name() string      { return NameNone }
func (noneCompressor) NetworkID() uint16 { return 0xff }

func (noneCompressor) Compress(b []byte) ([]byte, error) {
	return append([]byte(nil), b...), nil
}

func (noneCompressor) Decompress(b []byte) ([]byte, error) {
	if len(b) > MaxDecompressedSize {
		return nil, ErrTooLarge
	}
	return append([]byte(nil), b...), nil
}

// flateCompressor writes raw DEFLATE streams.
type flateCompressor struct {
	level   int
	writers sync.Pool
}

func (*flateCompressor) Name() string      { return NameZlib }
func (*flateCompressor) NetworkID() uint16 { return 0 }

func (c *flateCompressor) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, _ := c.writers.Get().(*flate.Writer)
	if w == nil {
		var err error
		if w, err = flate.NewWriter(&buf, c.level); err != nil {
			return nil, err
		}
	} else {
		w.Reset(&buf)
	}
	defer c.writers.Put(w)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (*flateCompressor) Decompress(b []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxDecompressedSize {
		return nil, ErrTooLarge
	}
	return out, nil
}

type snappyCompressor struct{}

func (snappyCompressor) Name() string      { return NameSnappy }
func (snappyCompressor) NetworkID() uint16 { return 1 }

func (snappyCompressor) Compress(b []byte) ([]byte, error) {
	return snappy.Encode(nil, b), nil
}

func (snappyCompressor) Decompress(b []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(b)
	if err != nil {
		return nil, err
	}
	if n > MaxDecompressedSize {
		return nil, ErrTooLarge
	}
	return snappy.Decode(nil, b)
}

// zstd.Encoder and zstd.Decoder are safe for concurrent EncodeAll/DecodeAll.
type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCompressor() *zstdCompressor {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compression: zstd encoder initialization failed: " + err.Error())
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecompressedSize))
	if err != nil {
		panic("compression: zstd decoder initialization failed: " + err.Error())
	}
	return &zstdCompressor{enc: enc, dec: dec}
}

func (*zstdCompressor) Name() string      { return NameZstd }
func (*zstdCompressor) NetworkID() uint16 { return 2 }

func (c *zstdCompressor) Compress(b []byte) ([]byte, error) {
	return c.enc.EncodeAll(b, nil), nil
}

func (c *zstdCompressor) Decompress(b []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(b, nil)
	if err != nil {
		return nil, err
	}
	if len(out) > MaxDecompressedSize {
		return nil, ErrTooLarge
	}
	return out, nil
}

// lz4Compressor frames an LZ4 block as uvarint(size) + mode byte + data.
// Incompressible input is stored raw.
type lz4Compressor struct{}

const (
	lz4ModeRaw   byte = 0
	lz4ModeBlock byte = 1
)

func (lz4Compressor) Name() string      { return NameLZ4 }
func (lz4Compressor) NetworkID() uint16 { return 3 }

func (lz4Compressor) Compress(b []byte) ([]byte, error) {
	var hdr [binary.MaxVarintLen64 + 1]byte
	n := binary.PutUvarint(hdr[:], uint64(len(b)))

	dst := make([]byte, lz4.CompressBlockBound(len(b)))
	written, err := lz4.CompressBlock(b, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || written >= len(b) {
		hdr[n] = lz4ModeRaw
		return append(append([]byte(nil), hdr[:n+1]...), b...), nil
	}
	hdr[n] = lz4ModeBlock
	return append(append([]byte(nil), hdr[:n+1]...), dst[:written]...), nil
}

func (lz4Compressor) Decompress(b []byte) ([]byte, error) {
	size, n := binary.Uvarint(b)
	if n <= 0 || n >= len(b)+1 || len(b) < n+1 {
		return nil, fmt.Errorf("lz4 decompress: bad header")
	}
	if size > MaxDecompressedSize {
		return nil, ErrTooLarge
	}
	mode, body := b[n], b[n+1:]
	switch mode {
	case lz4ModeRaw:
		if uint64(len(body)) != size {
			return nil, fmt.Errorf("lz4 decompress: raw size %d, expected %d", len(body), size)
		}
		return append([]byte(nil), body...), nil
	case lz4ModeBlock:
		out := make([]byte, size)
		read, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint64(read) != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("lz4 decompress: unknown mode %d", mode)
	}
}
