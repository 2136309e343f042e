package packet

import (
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// WildcardMeta in a recipe ingredient matches any meta value.
const WildcardMeta int16 = 0x7fff

// ItemStack is the wire form of an item stack.
type ItemStack struct {
	NetworkID      int16
	Meta           int16
	BlockRuntimeID uint32
	Count          uint16
	NBT            map[string]any
}

func (s ItemStack) marshal(w *Writer) {
	w.Varint32(int32(s.NetworkID))
	if s.NetworkID == 0 {
		return
	}
	w.Uint16(s.Count)
	w.Varuint32(uint32(uint16(s.Meta)))
	w.Varint32(int32(s.BlockRuntimeID))
	if len(s.NBT) == 0 {
		w.Varuint32(0)
		return
	}
	b, err := nbt.MarshalEncoding(s.NBT, nbt.LittleEndian)
	if err != nil {
		w.Fail(err)
		return
	}
	w.ByteSlice(b)
}

// RecipeIngredient is the wire form of a recipe input.
type RecipeIngredient struct {
	NetworkID int16
	Meta      int16
	Count     int32
}

const (
	descriptorInvalid uint8 = 0
	descriptorDefault uint8 = 1
)

func (i RecipeIngredient) marshal(w *Writer) {
	if i.NetworkID == 0 {
		w.Uint8(descriptorInvalid)
		w.Varint32(i.Count)
		return
	}
	w.Uint8(descriptorDefault)
	w.Int16(i.NetworkID)
	w.Int16(i.Meta)
	w.Varint32(i.Count)
}
