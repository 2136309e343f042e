package packet

// LevelChunk carries one chunk column. With the blob cache enabled the
// subchunk and biome blobs are referenced by hash and RawPayload holds only
// the border blocks and block entity data.
type LevelChunk struct {
	X, Z          int32
	Dimension     int32
	SubChunkCount uint32
	CacheEnabled  bool
	BlobHashes    []uint64
	RawPayload    []byte
}

func (*LevelChunk) ID() uint32 { return IDLevelChunk }

func (pk *LevelChunk) Marshal(w *Writer) {
	w.Varint32(pk.X)
	w.Varint32(pk.Z)
	if w.Protocol().HasChunkDimension() {
		w.Varint32(pk.Dimension)
	}
	w.Varuint32(pk.SubChunkCount)
	w.Bool(pk.CacheEnabled)
	if pk.CacheEnabled {
		w.Varuint32(uint32(len(pk.BlobHashes)))
		for _, h := range pk.BlobHashes {
			w.Uint64(h)
		}
	}
	w.ByteSlice(pk.RawPayload)
}

// Unmarshal reads a LEVEL_CHUNK body written for the protocol in ctx.
func (pk *LevelChunk) Unmarshal(ctx Context, r *Reader) error {
	pk.X = r.Varint32()
	pk.Z = r.Varint32()
	if ctx.Protocol.HasChunkDimension() {
		pk.Dimension = r.Varint32()
	}
	pk.SubChunkCount = r.Varuint32()
	pk.CacheEnabled = r.Bool()
	pk.BlobHashes = nil
	if pk.CacheEnabled {
		n := r.Varuint32()
		if r.Err() == nil && int(n)*8 > r.Remaining() {
			return ErrShortBuffer
		}
		for i := uint32(0); i < n; i++ {
			pk.BlobHashes = append(pk.BlobHashes, r.Uint64())
		}
	}
	pk.RawPayload = append([]byte(nil), r.ByteSlice()...)
	return r.Err()
}
