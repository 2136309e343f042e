package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"voxelgate.ai/internal/protocol"
)

func TestItemTypeDictionary_Bidirectional(t *testing.T) {
	d, err := NewItemTypeDictionary([]ItemTypeEntry{
		{Name: "minecraft:stone", ID: 1},
		{Name: "minecraft:stick", ID: 280},
	})
	if err != nil {
		t.Fatalf("NewItemTypeDictionary: %v", err)
	}
	id, ok := d.FromStringID("minecraft:stick")
	if !ok || id != 280 {
		t.Fatalf("FromStringID=%d,%v", id, ok)
	}
	name, ok := d.FromIntID(1)
	if !ok || name != "minecraft:stone" {
		t.Fatalf("FromIntID=%q,%v", name, ok)
	}
	if _, ok := d.FromStringID("minecraft:unknown"); ok {
		t.Fatalf("unknown name resolved")
	}
	if _, ok := d.FromIntID(9); ok {
		t.Fatalf("unknown id resolved")
	}
}

func TestItemTypeDictionary_RejectsDuplicates(t *testing.T) {
	if _, err := NewItemTypeDictionary([]ItemTypeEntry{{Name: "a", ID: 1}, {Name: "b", ID: 1}}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if _, err := NewItemTypeDictionary([]ItemTypeEntry{{Name: "a", ID: 1}, {Name: "a", ID: 2}}); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestBlockStateData_KeyIgnoresMapOrderAndNormalizesJSON(t *testing.T) {
	a := BlockStateData{Name: "minecraft:stone_slab", States: map[string]any{"top_slot_bit": uint8(1), "stone_slab_type": "stone"}}
	b := BlockStateData{Name: "minecraft:stone_slab", States: map[string]any{"stone_slab_type": "stone", "top_slot_bit": uint8(1)}}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %s vs %s", a.Key(), b.Key())
	}
	norm, err := NormalizeStates(map[string]any{"top_slot_bit": true, "stone_slab_type": "stone"})
	if err != nil {
		t.Fatalf("NormalizeStates: %v", err)
	}
	c := BlockStateData{Name: "minecraft:stone_slab", States: norm}
	if c.Key() != a.Key() {
		t.Fatalf("normalized key %s != %s", c.Key(), a.Key())
	}
	s := BlockStateData{Name: "x", States: map[string]any{"v": "1"}}
	i := BlockStateData{Name: "x", States: map[string]any{"v": int32(1)}}
	if s.Key() == i.Key() {
		t.Fatalf("string and int state values must not collide")
	}
}

func TestBlockStateDictionary_RuntimeIDsAreTablePositions(t *testing.T) {
	d, err := NewBlockStateDictionary([]BlockStateData{
		{Name: "minecraft:air"},
		{Name: "minecraft:furnace", States: map[string]any{"facing_direction": float64(2)}},
	})
	if err != nil {
		t.Fatalf("NewBlockStateDictionary: %v", err)
	}
	id, ok := d.LookupStateIDFromData(BlockStateData{Name: "minecraft:air"})
	if !ok || id != 0 {
		t.Fatalf("air runtime id=%d,%v", id, ok)
	}
	id, ok = d.LookupStateIDFromData(BlockStateData{Name: "minecraft:furnace", States: map[string]any{"facing_direction": int32(2)}})
	if !ok || id != 1 {
		t.Fatalf("furnace runtime id=%d,%v", id, ok)
	}
	if _, ok := d.LookupStateIDFromData(BlockStateData{Name: "minecraft:furnace", States: map[string]any{"facing_direction": int32(5)}}); ok {
		t.Fatalf("unmapped state resolved")
	}
	data, ok := d.DataFromStateID(1)
	if !ok || data.Name != "minecraft:furnace" {
		t.Fatalf("DataFromStateID=%v,%v", data, ok)
	}
	if _, ok := d.DataFromStateID(2); ok {
		t.Fatalf("out of range runtime id resolved")
	}
}

func TestLoad_RepoDictionaries(t *testing.T) {
	ids := []protocol.DictionaryID{575, 589, 618, 671}
	s, err := Load("../../../configs/dictionaries", ids)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.IDs(); len(got) != len(ids) {
		t.Fatalf("ids=%v", got)
	}
	old, _ := s.Items(575)
	cur, _ := s.Items(671)
	if _, ok := old.FromStringID("minecraft:cherry_log"); ok {
		t.Fatalf("cherry_log must not exist in 575")
	}
	if _, ok := cur.FromStringID("minecraft:cherry_log"); !ok {
		t.Fatalf("cherry_log must exist in 671")
	}
	d, _ := s.Get(589)
	if d.ItemsDigest == "" || d.BlocksDigest == "" {
		t.Fatalf("missing digests")
	}
}

func TestLoadDictionaries_SchemaRejectsBadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, itemTypesFile), []byte(`[{"name":"a","id":"seven"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDictionaries(dir); err == nil {
		t.Fatalf("expected schema validation error")
	}
}
