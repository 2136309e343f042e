// Package chunk holds the server-side chunk column model and its network
// and snapshot serializers.
package chunk

import (
	"fmt"
	"sort"

	"voxelgate.ai/internal/protocol/dictionary"
)

const (
	SubChunkCount = 24
	// MinSubChunkY is the y index of the lowest subchunk.
	MinSubChunkY = -4
	MinY         = MinSubChunkY * 16
	MaxY         = MinY + SubChunkCount*16

	SubChunkVolume = 16 * 16 * 16
	MaxLayers      = 2
)

// AirState is always palette index 0.
var AirState = dictionary.BlockStateData{Name: "minecraft:air", States: map[string]any{}}

// SubChunk stores up to MaxLayers layers of palette indices in XZY order.
// A nil layer is all air.
type SubChunk struct {
	layers [MaxLayers][]uint16
}

func subIndex(x, y, z int) int {
	return x<<8 | z<<4 | y
}

func (s *SubChunk) Empty() bool {
	for _, l := range s.layers {
		for _, v := range l {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// LayerCount is the number of layers up to the highest non-nil one.
func (s *SubChunk) LayerCount() int {
	n := 0
	for i, l := range s.layers {
		if l != nil {
			n = i + 1
		}
	}
	return n
}

// Layer returns layer i; nil means all air.
func (s *SubChunk) Layer(i int) []uint16 {
	return s.layers[i]
}

// TilePos holds chunk-local x/z and world y.
type TilePos struct {
	X, Y, Z int32
}

// Tile is a block entity. Data must hold NBT-encodable values with sized
// integer types.
type Tile struct {
	Pos  TilePos
	ID   string
	Data map[string]any
}

// Chunk is one column of SubChunkCount subchunks with a chunk-local block
// palette, 16x16 column biomes, and block entities.
type Chunk struct {
	CX, CZ int32

	palette      []dictionary.BlockStateData
	paletteIndex map[string]uint16
	subChunks    [SubChunkCount]SubChunk
	biomes       [256]uint8
	tiles        map[TilePos]Tile
}

func New(cx, cz int32) *Chunk {
	c := &Chunk{
		CX:           cx,
		CZ:           cz,
		paletteIndex: map[string]uint16{},
		tiles:        map[TilePos]Tile{},
	}
	c.paletteID(AirState)
	return c
}

func (c *Chunk) paletteID(state dictionary.BlockStateData) uint16 {
	key := state.Key()
	if id, ok := c.paletteIndex[key]; ok {
		return id
	}
	if len(c.palette) > 0xFFFF {
		panic(fmt.Sprintf("chunk %d,%d: palette overflow", c.CX, c.CZ))
	}
	id := uint16(len(c.palette))
	c.palette = append(c.palette, state)
	c.paletteIndex[key] = id
	return id
}

// Palette returns the chunk-local block palette. Index 0 is air.
func (c *Chunk) Palette() []dictionary.BlockStateData {
	return append([]dictionary.BlockStateData(nil), c.palette...)
}

func (c *Chunk) SubChunk(i int) *SubChunk {
	return &c.subChunks[i]
}

func inColumn(x, y, z int) bool {
	return x >= 0 && x < 16 && z >= 0 && z < 16 && y >= MinY && y < MaxY
}

// SetBlock sets the block at local x/z and world y on the given layer.
func (c *Chunk) SetBlock(x, y, z, layer int, state dictionary.BlockStateData) error {
	if !inColumn(x, y, z) {
		return fmt.Errorf("block %d,%d,%d outside chunk column", x, y, z)
	}
	if layer < 0 || layer >= MaxLayers {
		return fmt.Errorf("layer %d out of range", layer)
	}
	id := c.paletteID(state)
	sub := &c.subChunks[(y>>4)-MinSubChunkY]
	l := sub.layers[layer]
	if l == nil {
		if id == 0 {
			return nil
		}
		l = make([]uint16, SubChunkVolume)
		sub.layers[layer] = l
	}
	l[subIndex(x, y&15, z)] = id
	return nil
}

func (c *Chunk) Block(x, y, z, layer int) dictionary.BlockStateData {
	if !inColumn(x, y, z) || layer < 0 || layer >= MaxLayers {
		return AirState
	}
	l := c.subChunks[(y>>4)-MinSubChunkY].layers[layer]
	if l == nil {
		return AirState
	}
	return c.palette[l[subIndex(x, y&15, z)]]
}

// Fill sets layer 0 of every block in [minY, maxY) to state.
func (c *Chunk) Fill(minY, maxY int, state dictionary.BlockStateData) error {
	for y := minY; y < maxY; y++ {
		for z := 0; z < 16; z++ {
			for x := 0; x < 16; x++ {
				if err := c.SetBlock(x, y, z, 0, state); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Chunk) SetBiome(x, z int, id uint8) {
	c.biomes[z<<4|x] = id
}

func (c *Chunk) Biome(x, z int) uint8 {
	return c.biomes[z<<4|x]
}

// HighestSubChunk returns the index of the topmost non-empty subchunk, or -1.
func (c *Chunk) HighestSubChunk() int {
	for i := SubChunkCount - 1; i >= 0; i-- {
		if !c.subChunks[i].Empty() {
			return i
		}
	}
	return -1
}

// SetTile adds or replaces the block entity at t.Pos.
func (c *Chunk) SetTile(t Tile) {
	c.tiles[t.Pos] = t
}

func (c *Chunk) RemoveTile(pos TilePos) {
	delete(c.tiles, pos)
}

// Tiles returns the block entities ordered by y, z, x.
func (c *Chunk) Tiles() []Tile {
	out := make([]Tile, 0, len(c.tiles))
	for _, t := range c.tiles {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
	return out
}

// Clone returns a deep copy sharing no mutable state with c. Tile data maps
// are copied one level deep.
func (c *Chunk) Clone() *Chunk {
	out := &Chunk{
		CX:           c.CX,
		CZ:           c.CZ,
		palette:      append([]dictionary.BlockStateData(nil), c.palette...),
		paletteIndex: make(map[string]uint16, len(c.paletteIndex)),
		biomes:       c.biomes,
		tiles:        make(map[TilePos]Tile, len(c.tiles)),
	}
	for k, v := range c.paletteIndex {
		out.paletteIndex[k] = v
	}
	for i := range c.subChunks {
		for l, layer := range c.subChunks[i].layers {
			if layer != nil {
				out.subChunks[i].layers[l] = append([]uint16(nil), layer...)
			}
		}
	}
	for pos, t := range c.tiles {
		data := make(map[string]any, len(t.Data))
		for k, v := range t.Data {
			data[k] = v
		}
		t.Data = data
		out.tiles[pos] = t
	}
	return out
}
