// Package convert translates between the server's item model and the numeric
// wire identifiers of each dictionary protocol.
package convert

import (
	"voxelgate.ai/internal/item"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/protocol/dictionary"
)

// NoBlockRuntimeID marks an item stack without an attached block. It is also
// a valid block runtime id; only context tells the two meanings apart.
const NoBlockRuntimeID uint32 = 0

// NetworkItemID is the wire identity of an item on one dictionary protocol.
type NetworkItemID struct {
	ID             int16
	Meta           int16
	BlockRuntimeID uint32
}

// DictionaryResolver maps a wire protocol to its dictionary protocol.
type DictionaryResolver interface {
	DictionaryProtocol(protocol.ID) (protocol.DictionaryID, error)
}

// ItemTranslator converts items to and from NetworkItemID. It holds only
// immutable tables and is safe for concurrent use.
type ItemTranslator struct {
	dicts        *dictionary.Set
	serializer   item.Serializer
	deserializer item.Deserializer
}

func NewItemTranslator(dicts *dictionary.Set, serializer item.Serializer, deserializer item.Deserializer) *ItemTranslator {
	return &ItemTranslator{
		dicts:        dicts,
		serializer:   serializer,
		deserializer: deserializer,
	}
}

func (t *ItemTranslator) itemTypes(d protocol.DictionaryID) *dictionary.ItemTypeDictionary {
	dict, ok := t.dicts.Items(d)
	if !ok {
		protocol.AssumptionFailed("no item type dictionary for protocol %d", d)
	}
	return dict
}

func (t *ItemTranslator) blockStates(d protocol.DictionaryID) *dictionary.BlockStateDictionary {
	dict, ok := t.dicts.Blocks(d)
	if !ok {
		protocol.AssumptionFailed("no block state dictionary for protocol %d", d)
	}
	return dict
}

// ToNetworkID returns an E_NOT_REPRESENTABLE TranslationError when the item
// has no id on dictionary protocol d.
func (t *ItemTranslator) ToNetworkID(it item.Item, d protocol.DictionaryID) (NetworkItemID, error) {
	data, err := t.serializer.SerializeType(it)
	if err != nil {
		return NetworkItemID{}, protocol.Wrap(err, protocol.ErrNotRepresentable, "item %s", it.Name)
	}

	numericID, ok := t.itemTypes(d).FromStringID(data.Name)
	if !ok {
		return NetworkItemID{}, protocol.Errorf(protocol.ErrNotRepresentable, "item %s has no id on protocol %d", data.Name, d)
	}

	blockRuntimeID := NoBlockRuntimeID
	if data.Block != nil {
		id, ok := t.blockStates(d).LookupStateIDFromData(*data.Block)
		if !ok {
			protocol.AssumptionFailed("unmapped blockstate returned by item serializer: %s", data.Block.Key())
		}
		blockRuntimeID = id
	}

	return NetworkItemID{ID: numericID, Meta: data.Meta, BlockRuntimeID: blockRuntimeID}, nil
}

// ToNetworkIDQuiet is ToNetworkID with the not-representable case reported
// as ok=false.
func (t *ItemTranslator) ToNetworkIDQuiet(it item.Item, d protocol.DictionaryID) (NetworkItemID, bool) {
	id, err := t.ToNetworkID(it, d)
	if err != nil {
		return NetworkItemID{}, false
	}
	return id, true
}

// FromNetworkID reverses ToNetworkID. Unknown ids arriving from a client are
// reported as TranslationErrors.
func (t *ItemTranslator) FromNetworkID(networkID, meta int16, blockRuntimeID uint32, d protocol.DictionaryID) (item.Item, error) {
	name, ok := t.itemTypes(d).FromIntID(networkID)
	if !ok {
		return item.Item{}, protocol.Errorf(protocol.ErrBadNetworkID, "invalid network itemstack id %d", networkID)
	}

	var block *dictionary.BlockStateData
	if blockRuntimeID != NoBlockRuntimeID {
		data, ok := t.blockStates(d).DataFromStateID(blockRuntimeID)
		if !ok {
			return item.Item{}, protocol.Errorf(protocol.ErrBadBlockRuntimeID, "blockstate runtime id %d does not correspond to any known blockstate", blockRuntimeID)
		}
		block = &data
	}

	it, err := t.deserializer.DeserializeType(item.SavedItemData{Name: name, Meta: meta, Block: block})
	if err != nil {
		return item.Item{}, protocol.Wrap(err, protocol.ErrBadItemData, "invalid network itemstack data")
	}
	return it, nil
}

// ToNetworkIDForProtocol resolves the wire protocol first.
func (t *ItemTranslator) ToNetworkIDForProtocol(it item.Item, r DictionaryResolver, p protocol.ID) (NetworkItemID, error) {
	d, err := r.DictionaryProtocol(p)
	if err != nil {
		return NetworkItemID{}, err
	}
	return t.ToNetworkID(it, d)
}

func (t *ItemTranslator) FromNetworkIDForProtocol(networkID, meta int16, blockRuntimeID uint32, r DictionaryResolver, p protocol.ID) (item.Item, error) {
	d, err := r.DictionaryProtocol(p)
	if err != nil {
		return item.Item{}, err
	}
	return t.FromNetworkID(networkID, meta, blockRuntimeID, d)
}
