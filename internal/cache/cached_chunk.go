// Package cache holds the shared, ready-to-send artifacts: encoded chunks
// and per-protocol crafting data packets.
package cache

import (
	"sync"

	"voxelgate.ai/internal/compression"
	"voxelgate.ai/internal/packet"
	"voxelgate.ai/internal/protocol"
)

// CachedChunk is one encoded chunk column. Subchunk blobs are keyed by their
// content hash, so identical subchunks share one slot. Once sealed it is
// read-only and safe to share between sessions.
type CachedChunk struct {
	mu     sync.RWMutex
	sealed bool

	subChunks map[uint64][]byte
	// refs lists subchunk hashes bottom to top; a hash repeats when
	// subchunks are identical.
	refs []uint64

	hasBiomes  bool
	biomesHash uint64
	biomes     []byte

	packets map[protocol.ID][]byte
}

func NewCachedChunk() *CachedChunk {
	return &CachedChunk{
		subChunks: map[uint64][]byte{},
		packets:   map[protocol.ID][]byte{},
	}
}

func (c *CachedChunk) mustBeOpen(op string) {
	if c.sealed {
		protocol.AssumptionFailed("%s on sealed chunk artifact", op)
	}
}

// AddSubChunk stores b under hash and appends hash to the reference list.
// The artifact takes ownership of b.
func (c *CachedChunk) AddSubChunk(hash uint64, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen("AddSubChunk")
	c.subChunks[hash] = b
	c.refs = append(c.refs, hash)
}

// SetBiomes replaces the single biome blob.
func (c *CachedChunk) SetBiomes(hash uint64, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen("SetBiomes")
	c.hasBiomes = true
	c.biomesHash = hash
	c.biomes = b
}

// CompressPackets builds the LEVEL_CHUNK packet for protocol p around raw,
// wraps it in a batch, compresses it, and stores the result for p.
func (c *CachedChunk) CompressPackets(x, z int32, raw []byte, compressor compression.Compressor, ctx packet.Context, p protocol.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mustBeOpen("CompressPackets")

	ctx.Protocol = p
	pk := &packet.LevelChunk{
		X:             x,
		Z:             z,
		SubChunkCount: uint32(len(c.refs)),
		CacheEnabled:  true,
		BlobHashes:    c.hashListLocked(),
		RawPayload:    raw,
	}
	encoded, err := packet.Encode(ctx, pk)
	if err != nil {
		return protocol.Wrap(err, protocol.ErrEncodeFailed, "level chunk %d,%d", x, z)
	}
	compressed, err := compressor.Compress(packet.Batch(encoded))
	if err != nil {
		return protocol.Wrap(err, protocol.ErrEncodeFailed, "compress level chunk %d,%d with %s", x, z, compressor.Name())
	}
	c.packets[p] = compressed
	return nil
}

// Packet returns the compressed packet for p; ok is false if it was never built.
func (c *CachedChunk) Packet(p protocol.ID) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.packets[p]
	return b, ok
}

// Protocols lists the protocols with a built packet.
func (c *CachedChunk) Protocols() []protocol.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]protocol.ID, 0, len(c.packets))
	for p := range c.packets {
		out = append(out, p)
	}
	return out
}

// SubChunks returns a copy of the hash-keyed blob set.
func (c *CachedChunk) SubChunks() map[uint64][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint64][]byte, len(c.subChunks))
	for h, b := range c.subChunks {
		out[h] = b
	}
	return out
}

func (c *CachedChunk) SubChunk(hash uint64) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.subChunks[hash]
	return b, ok
}

func (c *CachedChunk) Biomes() (hash uint64, b []byte, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.biomesHash, c.biomes, c.hasBiomes
}

// HashList returns the blob references in wire order: subchunks bottom to
// top, then the biome blob.
func (c *CachedChunk) HashList() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hashListLocked()
}

func (c *CachedChunk) hashListLocked() []uint64 {
	out := make([]uint64, 0, len(c.refs)+1)
	out = append(out, c.refs...)
	if c.hasBiomes {
		out = append(out, c.biomesHash)
	}
	return out
}

// Seal makes the artifact read-only. Mutating a sealed artifact panics.
func (c *CachedChunk) Seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

func (c *CachedChunk) Sealed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sealed
}
