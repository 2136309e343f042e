package convert

import (
	"voxelgate.ai/internal/crafting"
	"voxelgate.ai/internal/item"
	"voxelgate.ai/internal/packet"
	"voxelgate.ai/internal/protocol"
)

// TypeConverter builds wire item structures on top of an ItemTranslator.
type TypeConverter struct {
	items *ItemTranslator
}

func NewTypeConverter(items *ItemTranslator) *TypeConverter {
	return &TypeConverter{items: items}
}

func (c *TypeConverter) Items() *ItemTranslator { return c.items }

func (c *TypeConverter) CoreItemStackToNet(it item.Item, d protocol.DictionaryID) (packet.ItemStack, error) {
	if it.IsNull() {
		return packet.ItemStack{}, nil
	}
	id, err := c.items.ToNetworkID(it, d)
	if err != nil {
		return packet.ItemStack{}, err
	}
	return packet.ItemStack{
		NetworkID:      id.ID,
		Meta:           id.Meta,
		BlockRuntimeID: id.BlockRuntimeID,
		Count:          uint16(it.Count),
		NBT:            it.NBT,
	}, nil
}

func (c *TypeConverter) NetItemStackToCore(s packet.ItemStack, d protocol.DictionaryID) (item.Item, error) {
	if s.NetworkID == 0 {
		return item.Item{}, nil
	}
	it, err := c.items.FromNetworkID(s.NetworkID, s.Meta, s.BlockRuntimeID, d)
	if err != nil {
		return item.Item{}, err
	}
	it.Count = int(s.Count)
	it.NBT = s.NBT
	return it, nil
}

func (c *TypeConverter) CoreRecipeIngredientToNet(in crafting.Ingredient, d protocol.DictionaryID) (packet.RecipeIngredient, error) {
	if in.Item.IsNull() {
		return packet.RecipeIngredient{}, nil
	}
	id, err := c.items.ToNetworkID(in.Item, d)
	if err != nil {
		return packet.RecipeIngredient{}, err
	}
	meta := id.Meta
	if in.AnyMeta {
		meta = packet.WildcardMeta
	}
	return packet.RecipeIngredient{NetworkID: id.ID, Meta: meta, Count: int32(in.Item.Count)}, nil
}
