package chunk

import (
	"bytes"
	"testing"

	"voxelgate.ai/internal/packet"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/protocol/dictionary"
)

var (
	stone = dictionary.BlockStateData{Name: "minecraft:stone", States: map[string]any{"stone_type": "stone"}}
	slab  = dictionary.BlockStateData{Name: "minecraft:stone_slab", States: map[string]any{"top_slot_bit": uint8(1), "stone_slab_type": "stone"}}
	chest = dictionary.BlockStateData{Name: "minecraft:chest", States: map[string]any{"facing_direction": int32(2)}}
)

func testBlocks(t *testing.T) *dictionary.BlockStateDictionary {
	t.Helper()
	d, err := dictionary.NewBlockStateDictionary([]dictionary.BlockStateData{{Name: "minecraft:air"}, stone, slab, chest})
	if err != nil {
		t.Fatalf("NewBlockStateDictionary: %v", err)
	}
	return d
}

func sampleChunk(t *testing.T) *Chunk {
	t.Helper()
	c := New(2, -3)
	if err := c.Fill(-64, -60, stone); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if err := c.SetBlock(1, 70, 2, 0, slab); err != nil {
		t.Fatalf("SetBlock: %v", err)
	}
	if err := c.SetBlock(3, 64, 3, 0, chest); err != nil {
		t.Fatalf("SetBlock: %v", err)
	}
	c.SetBiome(5, 5, 2)
	c.SetTile(Tile{Pos: TilePos{X: 3, Y: 64, Z: 3}, ID: "Chest", Data: map[string]any{"CustomName": "loot"}})
	return c
}

func TestChunk_SetBlockBounds(t *testing.T) {
	c := New(0, 0)
	if err := c.SetBlock(16, 0, 0, 0, stone); err == nil {
		t.Fatalf("expected out of column error")
	}
	if err := c.SetBlock(0, MaxY, 0, 0, stone); err == nil {
		t.Fatalf("expected y out of range error")
	}
	if err := c.SetBlock(0, 0, 0, MaxLayers, stone); err == nil {
		t.Fatalf("expected layer out of range error")
	}
	if err := c.SetBlock(0, MinY, 0, 0, AirState); err != nil || c.HighestSubChunk() != -1 {
		t.Fatalf("setting air must not allocate a layer")
	}
}

func TestTerrainSnapshot_RoundTrip(t *testing.T) {
	c := sampleChunk(t)
	b, err := SerializeTerrain(c)
	if err != nil {
		t.Fatalf("SerializeTerrain: %v", err)
	}
	again, _ := SerializeTerrain(c)
	if !bytes.Equal(b, again) {
		t.Fatalf("snapshot encoding is not deterministic")
	}
	got, err := DeserializeTerrain(b)
	if err != nil {
		t.Fatalf("DeserializeTerrain: %v", err)
	}
	if got.CX != 2 || got.CZ != -3 {
		t.Fatalf("coords=%d,%d", got.CX, got.CZ)
	}
	for _, pt := range []struct{ x, y, z int }{{0, -64, 0}, {15, -61, 15}, {1, 70, 2}, {3, 64, 3}, {0, 0, 0}} {
		if want, have := c.Block(pt.x, pt.y, pt.z, 0), got.Block(pt.x, pt.y, pt.z, 0); want.Key() != have.Key() {
			t.Fatalf("block %v: %s vs %s", pt, have.Key(), want.Key())
		}
	}
	if got.Biome(5, 5) != 2 {
		t.Fatalf("biome lost")
	}
	if len(got.Tiles()) != 0 {
		t.Fatalf("tiles are not part of the terrain snapshot")
	}
}

func TestDeserializeTerrain_RejectsGarbage(t *testing.T) {
	if _, err := DeserializeTerrain([]byte{0xff, 0x00}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	c := sampleChunk(t)
	cp := c.Clone()
	if err := c.SetBlock(0, -64, 0, 0, slab); err != nil {
		t.Fatal(err)
	}
	c.Tiles()[0].Data["CustomName"] = "changed"
	if cp.Block(0, -64, 0, 0).Key() != stone.Key() {
		t.Fatalf("clone observed block mutation")
	}
	if cp.Tiles()[0].Data["CustomName"] != "loot" {
		t.Fatalf("clone observed tile mutation")
	}
}

func TestSerializeSubChunks_IdenticalSubChunksHaveIdenticalBytes(t *testing.T) {
	c := New(0, 0)
	if err := c.Fill(-64, -32, stone); err != nil {
		t.Fatal(err)
	}
	subs, err := SerializeSubChunks(c, testBlocks(t), protocol.V1_20_80)
	if err != nil {
		t.Fatalf("SerializeSubChunks: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("subchunks=%d want 2", len(subs))
	}
	// The y index byte differs; the storages must not.
	if !bytes.Equal(subs[0][3:], subs[1][3:]) {
		t.Fatalf("uniform storages differ")
	}
}

func TestSerializeSubChunks_EmptyStorageIsProtocolGated(t *testing.T) {
	c := New(0, 0)
	if err := c.Fill(-64, -48, stone); err != nil {
		t.Fatal(err)
	}
	cur, err := SerializeSubChunks(c, testBlocks(t), protocol.V1_20_80)
	if err != nil {
		t.Fatal(err)
	}
	old, err := SerializeSubChunks(c, testBlocks(t), protocol.V1_19_70)
	if err != nil {
		t.Fatal(err)
	}
	// version, layers, index, header, runtime id
	if len(cur[0]) != 5 || cur[0][3] != 1 {
		t.Fatalf("expected zero-bit storage, got %d bytes header %x", len(cur[0]), cur[0][3])
	}
	if old[0][3] != 1<<1|1 || len(old[0]) <= len(cur[0]) {
		t.Fatalf("old protocols need a one-bit storage")
	}
}

func TestSerializeSubChunks_UnmappedStateFails(t *testing.T) {
	c := New(0, 0)
	if err := c.SetBlock(0, 0, 0, 0, dictionary.BlockStateData{Name: "minecraft:bedrock"}); err != nil {
		t.Fatal(err)
	}
	if _, err := SerializeSubChunks(c, testBlocks(t), protocol.V1_20_80); !protocol.IsCode(err, protocol.ErrEncodeFailed) {
		t.Fatalf("expected E_ENCODE_FAILED, got %v", err)
	}
}

func TestSerializeBiomes_CopiesAfterFirstStorage(t *testing.T) {
	c := New(0, 0)
	w := packet.NewWriter(packet.Context{})
	SerializeBiomes(c, w)
	b := w.Bytes()
	// zero-bit header, one palette entry (biome 0), then 23 copy markers.
	if len(b) != 2+SubChunkCount-1 || b[0] != 1 || b[len(b)-1] != copyLastBiomes {
		t.Fatalf("biome bytes=%x", b)
	}
}

func TestSerializeTiles(t *testing.T) {
	c := sampleChunk(t)
	b, err := SerializeTiles(c)
	if err != nil || len(b) == 0 {
		t.Fatalf("SerializeTiles=%d,%v", len(b), err)
	}
	c.SetTile(Tile{Pos: TilePos{}, ID: "Sign", Data: map[string]any{"bad": make(chan int)}})
	if _, err := SerializeTiles(c); !protocol.IsCode(err, protocol.ErrEncodeFailed) {
		t.Fatalf("expected encode failure, got %v", err)
	}
}
