package item

import (
	"errors"
	"testing"

	"voxelgate.ai/internal/protocol/dictionary"
)

func TestCodec_SerializeRoundTrip(t *testing.T) {
	c := NewCodec(
		TypeDef{Name: "minecraft:potion", MaxMeta: 42},
		TypeDef{Name: "minecraft:furnace", BlockItem: true},
	)
	block := &dictionary.BlockStateData{Name: "minecraft:furnace", States: map[string]any{"facing_direction": int32(2)}}
	for _, it := range []Item{
		New("minecraft:potion", 5, 1),
		{Name: "minecraft:furnace", Count: 1, Block: block},
	} {
		saved, err := c.SerializeType(it)
		if err != nil {
			t.Fatalf("SerializeType(%s): %v", it.Name, err)
		}
		back, err := c.DeserializeType(saved)
		if err != nil {
			t.Fatalf("DeserializeType(%s): %v", saved, err)
		}
		again, _ := c.SerializeType(back)
		if !again.Equal(saved) {
			t.Fatalf("round trip mismatch: %s vs %s", again, saved)
		}
	}
}

func TestCodec_Rejects(t *testing.T) {
	c := NewCodec(TypeDef{Name: "minecraft:stick"})
	if _, err := c.SerializeType(New("minecraft:nope", 0, 1)); !errors.Is(err, ErrTypeSerialize) {
		t.Fatalf("unknown type: %v", err)
	}
	if _, err := c.SerializeType(New("minecraft:stick", 3, 1)); !errors.Is(err, ErrTypeSerialize) {
		t.Fatalf("bad meta: %v", err)
	}
	if _, err := c.DeserializeType(SavedItemData{Name: "minecraft:stick", Block: &dictionary.BlockStateData{Name: "x"}}); !errors.Is(err, ErrTypeDeserialize) {
		t.Fatalf("unexpected block: %v", err)
	}
}

func TestItem_IsNull(t *testing.T) {
	if !(Item{}).IsNull() || !New(Air, 0, 1).IsNull() || !New("minecraft:stick", 0, 0).IsNull() {
		t.Fatalf("expected null items")
	}
	if New("minecraft:stick", 0, 1).IsNull() {
		t.Fatalf("stick is not null")
	}
}

func TestLoadCatalog_RepoItems(t *testing.T) {
	c, digest, err := LoadCatalog("../../configs/items.json")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if digest == "" || len(c.Names()) == 0 {
		t.Fatalf("empty catalog")
	}
	if _, err := c.SerializeType(New("minecraft:potion", 42, 1)); err != nil {
		t.Fatalf("potion meta 42: %v", err)
	}
	block := &dictionary.BlockStateData{Name: "minecraft:crafting_table"}
	saved, err := c.SerializeType(Item{Name: "minecraft:crafting_table", Count: 1, Block: block})
	if err != nil || saved.Block == nil {
		t.Fatalf("crafting_table must keep its block: %v %v", saved, err)
	}
}
