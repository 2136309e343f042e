package chunk

import (
	"github.com/sandertv/gophertunnel/minecraft/nbt"

	"voxelgate.ai/internal/packet"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/protocol/dictionary"
)

const (
	subChunkVersion = 9
	// copyLastBiomes marks a biome storage identical to the one below it.
	copyLastBiomes = 0x7f<<1 | 1
)

var storageBitSizes = [...]int{1, 2, 3, 4, 5, 6, 8, 16}

func bitsPerEntry(paletteSize int, allowEmpty bool) int {
	if paletteSize <= 1 && allowEmpty {
		return 0
	}
	for _, b := range storageBitSizes {
		if 1<<b >= paletteSize {
			return b
		}
	}
	protocol.AssumptionFailed("palette of %d entries exceeds any storage size", paletteSize)
	return 0
}

// writeStorage writes one paletted storage of SubChunkVolume entries with
// runtime palette ids.
func writeStorage(w *packet.Writer, indices []uint16, palette []int32, allowEmpty bool) {
	bits := bitsPerEntry(len(palette), allowEmpty)
	w.Uint8(uint8(bits<<1 | 1))
	if bits != 0 {
		perWord := 32 / bits
		words := make([]uint32, (SubChunkVolume+perWord-1)/perWord)
		for i, v := range indices {
			words[i/perWord] |= uint32(v) << ((i % perWord) * bits)
		}
		for _, word := range words {
			w.Uint32(word)
		}
		w.Varint32(int32(len(palette)))
	}
	for _, id := range palette {
		w.Varint32(id)
	}
}

// localPalette remaps chunk palette indices to first-appearance order.
func localPalette(layer []uint16) (indices []uint16, order []uint16) {
	indices = make([]uint16, SubChunkVolume)
	seen := map[uint16]uint16{}
	for i := 0; i < SubChunkVolume; i++ {
		var v uint16
		if layer != nil {
			v = layer[i]
		}
		local, ok := seen[v]
		if !ok {
			local = uint16(len(order))
			seen[v] = local
			order = append(order, v)
		}
		indices[i] = local
	}
	return indices, order
}

// SerializeSubChunks encodes subchunks 0 through the highest non-empty one
// in the v9 network format, with block runtime ids from blocks. A palette
// state missing from blocks yields an E_ENCODE_FAILED error.
func SerializeSubChunks(c *Chunk, blocks *dictionary.BlockStateDictionary, p protocol.ID) ([][]byte, error) {
	top := c.HighestSubChunk()
	runtimeIDs := make([]int32, len(c.palette))
	resolved := make([]bool, len(c.palette))

	out := make([][]byte, 0, top+1)
	for i := 0; i <= top; i++ {
		sub := &c.subChunks[i]
		w := packet.NewWriter(packet.Context{Protocol: p})
		w.Uint8(subChunkVersion)
		layers := sub.LayerCount()
		if sub.Empty() {
			layers = 0
		}
		w.Uint8(uint8(layers))
		w.Uint8(uint8(int8(i + MinSubChunkY)))
		for l := 0; l < layers; l++ {
			indices, order := localPalette(sub.layers[l])
			palette := make([]int32, len(order))
			for j, idx := range order {
				if !resolved[idx] {
					id, ok := blocks.LookupStateIDFromData(c.palette[idx])
					if !ok {
						return nil, protocol.Errorf(protocol.ErrEncodeFailed, "chunk %d,%d: block state %s has no runtime id on protocol %d", c.CX, c.CZ, c.palette[idx].Key(), p)
					}
					runtimeIDs[idx], resolved[idx] = int32(id), true
				}
				palette[j] = runtimeIDs[idx]
			}
			writeStorage(w, indices, palette, p.SupportsEmptyStorage())
		}
		out = append(out, w.Bytes())
	}
	return out, nil
}

// SerializeBiomes writes one biome storage per subchunk. Column biomes are
// identical in every subchunk, so all storages after the first are written
// as copies of the previous one.
func SerializeBiomes(c *Chunk, w *packet.Writer) {
	indices := make([]uint16, SubChunkVolume)
	seen := map[uint8]uint16{}
	var palette []int32
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			b := c.biomes[z<<4|x]
			local, ok := seen[b]
			if !ok {
				local = uint16(len(palette))
				seen[b] = local
				palette = append(palette, int32(b))
			}
			for y := 0; y < 16; y++ {
				indices[subIndex(x, y, z)] = local
			}
		}
	}
	writeStorage(w, indices, palette, true)
	for i := 1; i < SubChunkCount; i++ {
		w.Uint8(copyLastBiomes)
	}
}

// SerializeChunkData writes the blob-cache payload: border blocks followed by
// the pre-encoded tile data.
func SerializeChunkData(w *packet.Writer, tiles []byte) {
	w.Uint8(0)
	w.Raw(tiles)
}

// SerializeTiles encodes every block entity of c as a network little-endian
// NBT compound.
func SerializeTiles(c *Chunk) ([]byte, error) {
	var out []byte
	for _, t := range c.Tiles() {
		m := make(map[string]any, len(t.Data)+4)
		for k, v := range t.Data {
			m[k] = v
		}
		m["id"] = t.ID
		m["x"] = c.CX*16 + t.Pos.X
		m["y"] = t.Pos.Y
		m["z"] = c.CZ*16 + t.Pos.Z
		b, err := nbt.MarshalEncoding(m, nbt.NetworkLittleEndian)
		if err != nil {
			return nil, protocol.Wrap(err, protocol.ErrEncodeFailed, "tile %s at %d,%d,%d", t.ID, t.Pos.X, t.Pos.Y, t.Pos.Z)
		}
		out = append(out, b...)
	}
	return out, nil
}
