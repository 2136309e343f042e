package convert

import (
	"testing"

	"voxelgate.ai/internal/crafting"
	"voxelgate.ai/internal/item"
	"voxelgate.ai/internal/packet"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/protocol/dictionary"
)

const (
	dictOld protocol.DictionaryID = 575
	dictNew protocol.DictionaryID = 671
)

var furnaceState = dictionary.BlockStateData{Name: "minecraft:furnace", States: map[string]any{"facing_direction": int32(2)}}

func newTestTranslator(t *testing.T) *ItemTranslator {
	t.Helper()
	set := dictionary.NewSet()
	for _, c := range []struct {
		id     protocol.DictionaryID
		items  []dictionary.ItemTypeEntry
		blocks []dictionary.BlockStateData
	}{
		{
			id: dictOld,
			items: []dictionary.ItemTypeEntry{
				{Name: "minecraft:stick", ID: 10},
				{Name: "minecraft:furnace", ID: 11},
				{Name: "minecraft:potion", ID: 12},
			},
			blocks: []dictionary.BlockStateData{{Name: "minecraft:air"}, furnaceState},
		},
		{
			id: dictNew,
			items: []dictionary.ItemTypeEntry{
				{Name: "minecraft:stick", ID: 20},
				{Name: "minecraft:furnace", ID: 21},
				{Name: "minecraft:potion", ID: 22},
				{Name: "minecraft:cherry_log", ID: 23},
			},
			blocks: []dictionary.BlockStateData{{Name: "minecraft:air"}, {Name: "minecraft:stone"}, furnaceState},
		},
	} {
		items, err := dictionary.NewItemTypeDictionary(c.items)
		if err != nil {
			t.Fatalf("items: %v", err)
		}
		blocks, err := dictionary.NewBlockStateDictionary(c.blocks)
		if err != nil {
			t.Fatalf("blocks: %v", err)
		}
		set.Add(c.id, &dictionary.Dictionaries{Items: items, Blocks: blocks})
	}
	codec := item.NewCodec(
		item.TypeDef{Name: "minecraft:stick"},
		item.TypeDef{Name: "minecraft:furnace", BlockItem: true},
		item.TypeDef{Name: "minecraft:potion", MaxMeta: 42},
		item.TypeDef{Name: "minecraft:cherry_log"},
		item.TypeDef{Name: "minecraft:chest", BlockItem: true},
	)
	return NewItemTranslator(set, codec, codec)
}

func furnaceItem() item.Item {
	b := furnaceState
	return item.Item{Name: "minecraft:furnace", Count: 1, Block: &b}
}

func TestItemTranslator_RoundTrip(t *testing.T) {
	tr := newTestTranslator(t)
	for _, d := range []protocol.DictionaryID{dictOld, dictNew} {
		for _, it := range []item.Item{item.New("minecraft:stick", 0, 1), item.New("minecraft:potion", 7, 1), furnaceItem()} {
			id, err := tr.ToNetworkID(it, d)
			if err != nil {
				t.Fatalf("ToNetworkID(%s, %d): %v", it.Name, d, err)
			}
			if (it.Block == nil) != (id.BlockRuntimeID == NoBlockRuntimeID) {
				t.Fatalf("%s: block runtime id %d disagrees with block presence", it.Name, id.BlockRuntimeID)
			}
			back, err := tr.FromNetworkID(id.ID, id.Meta, id.BlockRuntimeID, d)
			if err != nil {
				t.Fatalf("FromNetworkID(%v): %v", id, err)
			}
			if back.Name != it.Name || back.Meta != it.Meta {
				t.Fatalf("round trip %s:%d -> %s:%d", it.Name, it.Meta, back.Name, back.Meta)
			}
			if it.Block != nil && (back.Block == nil || !back.Block.Equal(*it.Block)) {
				t.Fatalf("block state lost for %s", it.Name)
			}
		}
	}
}

func TestItemTranslator_IDsDifferPerDictionary(t *testing.T) {
	tr := newTestTranslator(t)
	old, _ := tr.ToNetworkID(furnaceItem(), dictOld)
	cur, _ := tr.ToNetworkID(furnaceItem(), dictNew)
	if old.ID != 11 || cur.ID != 21 {
		t.Fatalf("ids old=%d new=%d", old.ID, cur.ID)
	}
	if old.BlockRuntimeID != 1 || cur.BlockRuntimeID != 2 {
		t.Fatalf("runtime ids old=%d new=%d", old.BlockRuntimeID, cur.BlockRuntimeID)
	}
}

func TestItemTranslator_NotRepresentable(t *testing.T) {
	tr := newTestTranslator(t)
	cherry := item.New("minecraft:cherry_log", 0, 1)
	if _, err := tr.ToNetworkID(cherry, dictOld); !protocol.IsCode(err, protocol.ErrNotRepresentable) {
		t.Fatalf("expected not representable, got %v", err)
	}
	if _, ok := tr.ToNetworkIDQuiet(cherry, dictOld); ok {
		t.Fatalf("quiet form must agree with raising form")
	}
	if _, ok := tr.ToNetworkIDQuiet(cherry, dictNew); !ok {
		t.Fatalf("cherry_log must be representable on %d", dictNew)
	}
	if _, err := tr.ToNetworkID(item.New("minecraft:unknown", 0, 1), dictNew); !protocol.IsCode(err, protocol.ErrNotRepresentable) {
		t.Fatalf("serializer failure must be not representable, got %v", err)
	}
}

func TestItemTranslator_FromNetworkErrors(t *testing.T) {
	tr := newTestTranslator(t)
	if _, err := tr.FromNetworkID(999, 0, NoBlockRuntimeID, dictNew); !protocol.IsCode(err, protocol.ErrBadNetworkID) {
		t.Fatalf("bad id: %v", err)
	}
	if _, err := tr.FromNetworkID(21, 0, 77, dictNew); !protocol.IsCode(err, protocol.ErrBadBlockRuntimeID) {
		t.Fatalf("bad runtime id: %v", err)
	}
	if _, err := tr.FromNetworkID(20, 0, 2, dictNew); !protocol.IsCode(err, protocol.ErrBadItemData) {
		t.Fatalf("stick with block: %v", err)
	}
	if _, err := tr.FromNetworkID(22, 99, NoBlockRuntimeID, dictNew); !protocol.IsCode(err, protocol.ErrBadItemData) {
		t.Fatalf("bad meta: %v", err)
	}
}

func expectInvariant(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if _, ok := recover().(*protocol.InvariantError); !ok {
			t.Fatalf("expected invariant panic")
		}
	}()
	fn()
}

func TestItemTranslator_InvariantViolations(t *testing.T) {
	tr := newTestTranslator(t)
	expectInvariant(t, func() {
		_, _ = tr.ToNetworkID(item.New("minecraft:stick", 0, 1), 999)
	})
	// chest is a block item for the codec but its state is absent from the table.
	expectInvariant(t, func() {
		chest := item.Item{Name: "minecraft:chest", Count: 1, Block: &dictionary.BlockStateData{Name: "minecraft:chest"}}
		_, _ = tr.ToNetworkIDQuiet(chest, dictNew)
	})
}

type fixedResolver map[protocol.ID]protocol.DictionaryID

func (r fixedResolver) DictionaryProtocol(p protocol.ID) (protocol.DictionaryID, error) {
	d, ok := r[p]
	if !ok {
		return 0, protocol.Errorf(protocol.ErrUnknownProtocol, "protocol %d", p)
	}
	return d, nil
}

func TestItemTranslator_ForProtocol(t *testing.T) {
	tr := newTestTranslator(t)
	r := fixedResolver{protocol.V1_19_80: dictOld}
	id, err := tr.ToNetworkIDForProtocol(item.New("minecraft:stick", 0, 1), r, protocol.V1_19_80)
	if err != nil || id.ID != 10 {
		t.Fatalf("ForProtocol=%v,%v", id, err)
	}
	if _, err := tr.ToNetworkIDForProtocol(item.New("minecraft:stick", 0, 1), r, 1); !protocol.IsCode(err, protocol.ErrUnknownProtocol) {
		t.Fatalf("unknown protocol: %v", err)
	}
}

func TestTypeConverter_Stacks(t *testing.T) {
	c := NewTypeConverter(newTestTranslator(t))
	s, err := c.CoreItemStackToNet(item.Item{}, dictNew)
	if err != nil || s.NetworkID != 0 {
		t.Fatalf("null stack=%+v,%v", s, err)
	}
	s, err = c.CoreItemStackToNet(furnaceItem().WithCount(3), dictNew)
	if err != nil || s.NetworkID != 21 || s.Count != 3 || s.BlockRuntimeID != 2 {
		t.Fatalf("furnace stack=%+v,%v", s, err)
	}
	back, err := c.NetItemStackToCore(s, dictNew)
	if err != nil || back.Count != 3 || back.Block == nil {
		t.Fatalf("NetItemStackToCore=%+v,%v", back, err)
	}

	in, err := c.CoreRecipeIngredientToNet(crafting.AnyMetaOf("minecraft:potion", 2), dictNew)
	if err != nil || in.Meta != packet.WildcardMeta || in.Count != 2 || in.NetworkID != 22 {
		t.Fatalf("wildcard ingredient=%+v,%v", in, err)
	}
	in, err = c.CoreRecipeIngredientToNet(crafting.Ingredient{}, dictNew)
	if err != nil || in != (packet.RecipeIngredient{}) {
		t.Fatalf("empty ingredient=%+v,%v", in, err)
	}
}
