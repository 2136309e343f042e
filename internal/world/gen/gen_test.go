package gen

import (
	"bytes"
	"testing"

	"voxelgate.ai/internal/world/chunk"
)

func TestFloorDivMod(t *testing.T) {
	if FloorDiv(-1, 16) != -1 || Mod(-1, 16) != 15 || FloorDiv(16, 16) != 1 || Mod(17, 16) != 1 {
		t.Fatalf("floor div/mod wrong")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := New(Config{Seed: 42})
	a, err := chunk.SerializeTerrain(g.Generate(3, -7))
	if err != nil {
		t.Fatalf("SerializeTerrain: %v", err)
	}
	b, _ := chunk.SerializeTerrain(g.Generate(3, -7))
	if !bytes.Equal(a, b) {
		t.Fatalf("generation is not deterministic")
	}
	c, _ := chunk.SerializeTerrain(New(Config{Seed: 43}).Generate(3, -7))
	if bytes.Equal(a, c) {
		t.Fatalf("seed had no effect")
	}
}

func TestGenerate_Surface(t *testing.T) {
	c := New(Config{Seed: 1, SurfaceY: 10}).Generate(0, 0)
	if got := c.Block(0, chunk.MinY, 0, 0); got.Name != "minecraft:stone" && got.Name != "minecraft:iron_ore" && got.Name != "minecraft:coal_ore" {
		t.Fatalf("bottom block=%s", got.Name)
	}
	if got := c.Block(0, 11, 0, 0).Name; got != "minecraft:air" && got != "minecraft:chest" {
		t.Fatalf("above surface=%s", got)
	}
	top := c.Block(0, 10, 0, 0).Name
	if top != "minecraft:grass" && top != "minecraft:sand" {
		t.Fatalf("surface=%s", top)
	}
}
