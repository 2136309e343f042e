package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/protocol/dictionary"
)

// Context carries what an encoder needs to know about the receiving session.
type Context struct {
	Protocol   protocol.ID
	Dictionary protocol.DictionaryID
	Items      *dictionary.ItemTypeDictionary
}

// Writer is a little-endian packet body writer. The first error (from a
// nested encoder) sticks and is reported by Err.
type Writer struct {
	ctx Context
	buf bytes.Buffer
	err error
}

func NewWriter(ctx Context) *Writer {
	return &Writer{ctx: ctx}
}

func (w *Writer) Context() Context { return w.ctx }
func (w *Writer) Protocol() protocol.ID { return w.ctx.Protocol }
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }
func (w *Writer) Len() int { return w.buf.Len() }
func (w *Writer) Err() error { return w.err }

// Fail records err unless an earlier error is already recorded.
func (w *Writer) Fail(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *Writer) Uint8(v uint8) { w.buf.WriteByte(v) }

func (w *Writer) Bool(v bool) {
	if v {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}

func (w *Writer) Int16(v int16) { w.Uint16(uint16(v)) }

func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Varuint32(v uint32) { w.Varuint64(uint64(v)) }

func (w *Writer) Varint32(v int32) {
	var tmp [binary.MaxVarintLen32]byte
	n := binary.PutVarint(tmp[:], int64(v))
	w.buf.Write(tmp[:n])
}

func (w *Writer) Varuint64(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf.Write(tmp[:n])
}

func (w *Writer) String(s string) {
	w.Varuint32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *Writer) ByteSlice(b []byte) {
	w.Varuint32(uint32(len(b)))
	w.buf.Write(b)
}

// Raw appends b without a length prefix.
func (w *Writer) Raw(b []byte) { w.buf.Write(b) }

func (w *Writer) UUID(id uuid.UUID) {
	// Two little-endian int64 halves, most significant half first.
	w.Uint64(binary.BigEndian.Uint64(id[:8]))
	w.Uint64(binary.BigEndian.Uint64(id[8:]))
}

var ErrShortBuffer = errors.New("packet: short buffer")

// Reader mirrors Writer for the subset of types the server needs to read back.
type Reader struct {
	b   []byte
	off int
	err error
}

func NewReader(b []byte) *Reader { return &Reader{b: b} }

func (r *Reader) Err() error { return r.err }
func (r *Reader) Remaining() int { return len(r.b) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.b) {
		r.err = ErrShortBuffer
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool { return r.Uint8() != 0 }

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Int16() int16 { return int16(r.Uint16()) }

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Varuint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.b[r.off:])
	if n <= 0 {
		r.err = fmt.Errorf("packet: bad varuint at %d", r.off)
		return 0
	}
	r.off += n
	return v
}

func (r *Reader) Varuint32() uint32 {
	v := r.Varuint64()
	if v > math.MaxUint32 {
		r.err = fmt.Errorf("packet: varuint32 overflow")
		return 0
	}
	return uint32(v)
}

func (r *Reader) Varint32() int32 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.b[r.off:])
	if n <= 0 || v < math.MinInt32 || v > math.MaxInt32 {
		r.err = fmt.Errorf("packet: bad varint at %d", r.off)
		return 0
	}
	r.off += n
	return int32(v)
}

func (r *Reader) ByteSlice() []byte {
	n := r.Varuint32()
	return r.take(int(n))
}

func (r *Reader) String() string { return string(r.ByteSlice()) }
