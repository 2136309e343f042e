package packet

import (
	"fmt"
)

const (
	IDLevelChunk   uint32 = 0x3a
	IDCraftingData uint32 = 0x34
)

type Packet interface {
	ID() uint32
	Marshal(w *Writer)
}

// Encode writes the packet header and body.
func Encode(ctx Context, pk Packet) ([]byte, error) {
	w := NewWriter(ctx)
	w.Varuint32(pk.ID())
	pk.Marshal(w)
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("encode packet 0x%x: %w", pk.ID(), err)
	}
	return w.Bytes(), nil
}

// Batch frames already-encoded packets as length-prefixed entries. This is
// the plaintext that a protocol's compressor operates on.
func Batch(encoded ...[]byte) []byte {
	w := NewWriter(Context{})
	for _, b := range encoded {
		w.ByteSlice(b)
	}
	return w.Bytes()
}

// EncodeBatch encodes pks and frames them into one batch.
func EncodeBatch(ctx Context, pks ...Packet) ([]byte, error) {
	encoded := make([][]byte, 0, len(pks))
	for _, pk := range pks {
		b, err := Encode(ctx, pk)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, b)
	}
	return Batch(encoded...), nil
}

// SplitBatch reverses Batch.
func SplitBatch(b []byte) ([][]byte, error) {
	r := NewReader(b)
	var out [][]byte
	for r.Remaining() > 0 {
		pk := r.ByteSlice()
		if err := r.Err(); err != nil {
			return nil, err
		}
		out = append(out, pk)
	}
	return out, nil
}

// PacketID reads the header of an encoded packet and returns its id and body.
func PacketID(encoded []byte) (uint32, []byte, error) {
	r := NewReader(encoded)
	id := r.Varuint32()
	if err := r.Err(); err != nil {
		return 0, nil, err
	}
	return id, encoded[len(encoded)-r.Remaining():], nil
}
